package broadcast

import (
	"github.com/vk/tablegrid/internal/errdefs"
)

// Node is one table of a merge tree. Children broadcast onto Table.
type Node struct {
	Table    string
	Children []*Node
}

// Merge is one pairwise join of a plan: Cast is merged into Onto using the
// Broadcast between them.
type Merge struct {
	Broadcast
}

// BuildTree roots a merge tree at target over the participating tables,
// using only broadcasts whose tables all participate. Children are ordered
// by the order of bcs. The target always participates.
func BuildTree(target string, tables []string, bcs []Broadcast) (*Node, error) {
	participating := map[string]bool{target: true}
	for _, t := range tables {
		participating[t] = true
	}
	ontos := make(map[string][]Broadcast)
	for _, b := range bcs {
		if participating[b.Cast] && participating[b.Onto] {
			ontos[b.Onto] = append(ontos[b.Onto], b)
		}
	}

	root := &Node{Table: target}
	seen := map[string]bool{target: true}
	queue := []*Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, b := range ontos[n.Table] {
			if seen[b.Cast] {
				return nil, errdefs.Structuralf("table %q is reachable through more than one broadcast path from %q", b.Cast, target)
			}
			seen[b.Cast] = true
			child := &Node{Table: b.Cast}
			n.Children = append(n.Children, child)
			queue = append(queue, child)
		}
	}

	for _, t := range tables {
		if !seen[t] {
			return nil, errdefs.Structuralf("table %q cannot be broadcast onto %q with the registered broadcasts", t, target)
		}
	}
	return root, nil
}

// Tables lists the tables of the tree in breadth-first order.
func (n *Node) Tables() []string {
	var out []string
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur.Table)
		queue = append(queue, cur.Children...)
	}
	return out
}

// Plan returns the pairwise merges that collapse the tree into its root.
// A child is merged into its parent only after its own subtree has been
// collapsed; siblings are merged in child order.
func (n *Node) Plan(bcs []Broadcast) ([]Merge, error) {
	byPair := make(map[pair]Broadcast, len(bcs))
	for _, b := range bcs {
		byPair[pair{b.Cast, b.Onto}] = b
	}

	type visit struct {
		node   *Node
		parent *Node
		next   int
	}
	var plan []Merge
	stack := []*visit{{node: n}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next < len(top.node.Children) {
			child := top.node.Children[top.next]
			top.next++
			stack = append(stack, &visit{node: child, parent: top.node})
			continue
		}
		stack = stack[:len(stack)-1]
		if top.parent == nil {
			continue
		}
		b, ok := byPair[pair{top.node.Table, top.parent.Table}]
		if !ok {
			return nil, errdefs.Structuralf("no broadcast of %q onto %q", top.node.Table, top.parent.Table)
		}
		plan = append(plan, Merge{Broadcast: b})
	}
	return plan, nil
}
