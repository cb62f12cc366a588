// Package resmon polls the resource usage of the current process and host
// while a run is in progress and summarizes it at the end.
package resmon

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/vk/tablegrid/internal/ctxlog"
	"github.com/vk/tablegrid/internal/errdefs"
)

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Sample is a single poll.
type Sample struct {
	At         time.Time
	ProcessRSS uint64
	ProcessVMS uint64
	ProcessCPU float64
	HostUsed   uint64
	HostCPU    float64
}

// Summary aggregates every sample of a poller. Memory is in bytes, CPU in
// percent.
type Summary struct {
	Name     string
	Polls    int
	Duration time.Duration

	ProcessRSSAvg  uint64
	ProcessRSSPeak uint64
	ProcessVMSAvg  uint64
	ProcessVMSPeak uint64
	ProcessCPUAvg  float64
	ProcessCPUPeak float64

	HostUsedAvg  uint64
	HostUsedPeak uint64
	HostCPUAvg   float64
	HostCPUPeak  float64
	HostTotal    uint64
	SwapTotal    uint64
}

// LogAttrs renders the summary as slog key/value pairs.
func (s Summary) LogAttrs() []any {
	return []any{
		"name", s.Name,
		"polls", s.Polls,
		"duration", s.Duration,
		"process_rss_avg_mb", mb(s.ProcessRSSAvg),
		"process_rss_peak_mb", mb(s.ProcessRSSPeak),
		"process_vms_peak_mb", mb(s.ProcessVMSPeak),
		"process_cpu_avg_pct", s.ProcessCPUAvg,
		"process_cpu_peak_pct", s.ProcessCPUPeak,
		"host_used_avg_mb", mb(s.HostUsedAvg),
		"host_used_peak_mb", mb(s.HostUsedPeak),
		"host_total_mb", mb(s.HostTotal),
		"host_cpu_peak_pct", s.HostCPUPeak,
	}
}

func mb(b uint64) uint64 { return b >> 20 }

// Poller samples resources on its own goroutine until End is called.
type Poller struct {
	name    string
	proc    *process.Process
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	samples []Sample
	summary *Summary
}

// Start takes a first sample immediately and then one every interval until
// End is called or ctx is cancelled.
func Start(ctx context.Context, name string, interval time.Duration) (*Poller, error) {
	if interval <= 0 {
		return nil, errdefs.Validationf("interval", "must be positive, got %s", interval)
	}
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("unable to inspect own process: %w", err)
	}

	p := &Poller{name: name, proc: proc, started: time.Now(), done: make(chan struct{})}
	first, err := p.sample(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take first resource sample: %w", err)
	}
	p.samples = append(p.samples, first)

	logger := ctxlog.FromContext(ctx)
	logger.Info("📈 Resource polling started.", "name", name, "pid", proc.Pid, "interval", interval)

	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.loop(pollCtx, interval)
	return p, nil
}

func (p *Poller) loop(ctx context.Context, interval time.Duration) {
	defer close(p.done)
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, err := p.sample(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Debug("Resource sample failed.", "name", p.name, "error", err)
				}
				continue
			}
			p.mu.Lock()
			p.samples = append(p.samples, s)
			p.mu.Unlock()
		}
	}
}

func (p *Poller) sample(ctx context.Context) (Sample, error) {
	s := Sample{At: time.Now()}
	mi, err := p.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("process memory: %w", err)
	}
	s.ProcessRSS = mi.RSS + mi.Swap
	s.ProcessVMS = mi.VMS
	if s.ProcessCPU, err = p.proc.CPUPercentWithContext(ctx); err != nil {
		return s, fmt.Errorf("process cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("host memory: %w", err)
	}
	s.HostUsed = vm.Used
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return s, fmt.Errorf("host cpu: %w", err)
	}
	if len(pct) > 0 {
		s.HostCPU = pct[0]
	}
	return s, nil
}

// Samples returns a copy of the samples taken so far.
func (p *Poller) Samples() []Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Sample(nil), p.samples...)
}

// End stops polling and returns the summary. Later calls return the same
// summary.
func (p *Poller) End() Summary {
	p.cancel()
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.summary != nil {
		return *p.summary
	}
	s := summarize(p.name, p.samples)
	s.Duration = time.Since(p.started)
	if vm, err := mem.VirtualMemory(); err == nil {
		s.HostTotal = vm.Total
	}
	if sw, err := mem.SwapMemory(); err == nil {
		s.SwapTotal = sw.Total
	}
	p.summary = &s
	return s
}

func summarize(name string, samples []Sample) Summary {
	s := Summary{Name: name, Polls: len(samples)}
	if len(samples) == 0 {
		return s
	}
	var rss, vms, used uint64
	var pcpu, hcpu float64
	for _, x := range samples {
		rss += x.ProcessRSS
		vms += x.ProcessVMS
		used += x.HostUsed
		pcpu += x.ProcessCPU
		hcpu += x.HostCPU
		s.ProcessRSSPeak = max(s.ProcessRSSPeak, x.ProcessRSS)
		s.ProcessVMSPeak = max(s.ProcessVMSPeak, x.ProcessVMS)
		s.HostUsedPeak = max(s.HostUsedPeak, x.HostUsed)
		s.ProcessCPUPeak = max(s.ProcessCPUPeak, x.ProcessCPU)
		s.HostCPUPeak = max(s.HostCPUPeak, x.HostCPU)
	}
	n := uint64(len(samples))
	s.ProcessRSSAvg = rss / n
	s.ProcessVMSAvg = vms / n
	s.HostUsedAvg = used / n
	s.ProcessCPUAvg = pcpu / float64(n)
	s.HostCPUAvg = hcpu / float64(n)
	return s
}
