package observability

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Probe reads host and process figures for the status response and the
// debug overlay. Host figures are read once and cached. Heap figures are
// sampled on demand and shared through LastHeap.
type Probe struct {
	once     sync.Once
	cpuModel string
	memTotal uint64

	heap    atomic.Pointer[[2]uint64]
	samples atomic.Int64
}

// NewProbe returns a Probe.
func NewProbe() *Probe { return &Probe{} }

func (p *Probe) load(ctx context.Context) {
	p.once.Do(func() {
		p.cpuModel = "unknown"
		if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 && infos[0].ModelName != "" {
			p.cpuModel = infos[0].ModelName
		}
		if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
			p.memTotal = vm.Total
		}
	})
}

// CPUModel returns the model name of the first CPU, or "unknown".
func (p *Probe) CPUModel(ctx context.Context) string {
	p.load(ctx)
	return p.cpuModel
}

// MemoryTotal returns total host memory in bytes, or 0 if unavailable.
func (p *Probe) MemoryTotal(ctx context.Context) uint64 {
	p.load(ctx)
	return p.memTotal
}

// Heap returns the bytes of heap in use and obtained from the OS.
func (p *Probe) Heap() (used, total uint64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, ms.HeapSys
}

// SampleHeap reads the heap figures and stores them for LastHeap.
func (p *Probe) SampleHeap() (used, total uint64) {
	used, total = p.Heap()
	p.heap.Store(&[2]uint64{used, total})
	p.samples.Add(1)
	return used, total
}

// LastHeap returns the figures stored by the latest SampleHeap. It samples
// once if nothing has been stored yet.
func (p *Probe) LastHeap() (used, total uint64) {
	if h := p.heap.Load(); h != nil {
		return h[0], h[1]
	}
	return p.SampleHeap()
}

// Samples returns how many times SampleHeap has read the runtime.
func (p *Probe) Samples() int64 { return p.samples.Load() }
