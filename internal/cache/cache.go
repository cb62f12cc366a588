package cache

import (
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
)

// keySep separates the parts of composite keys. It cannot appear in
// registered names.
const keySep = "\x1f"

// ColumnKey is the StoreColumn key of a (table, column) pair.
func ColumnKey(table, column string) string {
	return table + keySep + column
}

// MemoKey is the StoreMemo key of one call of a memoized callable.
func MemoKey(name, signature string) string {
	return name + keySep + signature
}

// MemoPrefix is the common prefix of every MemoKey of name.
func MemoPrefix(name string) string {
	return name + keySep
}

type entry struct {
	value any
	scope Scope
}

// Cache is the four-store scoped cache. It is not safe for concurrent use
// by several engines; one engine owns one Cache.
type Cache struct {
	stores  [numStores]*gocache.Cache
	enabled bool

	registry *prometheus.Registry
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
}

// New returns an empty, enabled cache with its own metrics registry.
func New() *Cache {
	c := &Cache{
		enabled:  true,
		registry: prometheus.NewRegistry(),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablegrid",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache lookups served from a stored entry, by store.",
		}, []string{"store"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablegrid",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache lookups that ran the computation, by store.",
		}, []string{"store"}),
	}
	for i := range c.stores {
		c.stores[i] = gocache.New(gocache.NoExpiration, 0)
	}
	c.registry.MustRegister(c.hits, c.misses)
	return c
}

// Enabled reports whether lookups are served from stored entries.
func (c *Cache) Enabled() bool { return c.enabled }

// Enable turns caching on.
func (c *Cache) Enable() { c.enabled = true }

// Disable turns caching off. Computed values are still written through.
func (c *Cache) Disable() { c.enabled = false }

// Disabled runs fn with caching disabled and restores the previous state
// when fn returns or panics.
func (c *Cache) Disabled(fn func() error) error {
	prev := c.enabled
	c.enabled = false
	defer func() { c.enabled = prev }()
	return fn()
}

// GetOrCompute returns the entry stored under key when caching is enabled.
// Otherwise it runs compute and stores the result under scope. Errors from
// compute are returned as is and nothing is stored.
func (c *Cache) GetOrCompute(store Store, key string, scope Scope, compute func() (any, error)) (any, error) {
	if c.enabled {
		if v, ok := c.stores[store].Get(key); ok {
			c.hits.WithLabelValues(store.String()).Inc()
			return v.(entry).value, nil
		}
	}
	c.misses.WithLabelValues(store.String()).Inc()

	v, err := compute()
	if err != nil {
		return nil, err
	}
	c.stores[store].Set(key, entry{value: v, scope: scope}, gocache.NoExpiration)
	return v, nil
}

// Invalidate drops one entry.
func (c *Cache) Invalidate(store Store, key string) {
	c.stores[store].Delete(key)
}

// InvalidatePrefix drops every entry of store whose key starts with prefix.
func (c *Cache) InvalidatePrefix(store Store, prefix string) {
	for k := range c.stores[store].Items() {
		if strings.HasPrefix(k, prefix) {
			c.stores[store].Delete(k)
		}
	}
}

// Clear empties every store.
func (c *Cache) Clear() {
	for _, s := range c.stores {
		s.Flush()
	}
}

// ClearScope drops the entries tagged with scope or a narrower scope from
// every store.
func (c *Cache) ClearScope(scope Scope) {
	for _, s := range c.stores {
		for k, item := range s.Items() {
			if item.Object.(entry).scope <= scope {
				s.Delete(k)
			}
		}
	}
}

// Keys lists the keys of store in sorted order.
func (c *Cache) Keys(store Store) []string {
	items := c.stores[store].Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of entries in store.
func (c *Cache) Len(store Store) int {
	return c.stores[store].ItemCount()
}

// Registry is the prometheus registry holding the cache's counters.
func (c *Cache) Registry() prometheus.Gatherer { return c.registry }

// Stats is a snapshot of the hit and miss counters.
type Stats struct {
	Hits   map[string]float64
	Misses map[string]float64
}

// Stats gathers the current hit and miss totals per store.
func (c *Cache) Stats() (Stats, error) {
	st := Stats{Hits: map[string]float64{}, Misses: map[string]float64{}}
	families, err := c.registry.Gather()
	if err != nil {
		return st, err
	}
	for _, mf := range families {
		var dst map[string]float64
		switch mf.GetName() {
		case "tablegrid_cache_hits_total":
			dst = st.Hits
		case "tablegrid_cache_misses_total":
			dst = st.Misses
		default:
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "store" {
					dst[lp.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	return st, nil
}
