package tuner

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceSample is a point-in-time CPU/memory reading, surfaced in
// tuner logs during long parallel sweeps.
type ResourceSample struct {
	CPUPercent    float64
	MemUsedPct    float64
	SampledAt     time.Time
}

// SampleResources takes a single CPU/memory reading. The CPU percentage
// is measured over a 100ms window so the call stays cheap enough to run
// between trial batches.
func SampleResources() (ResourceSample, error) {
	cpuPct, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return ResourceSample{}, err
	}
	var cpuVal float64
	if len(cpuPct) > 0 {
		cpuVal = cpuPct[0]
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return ResourceSample{}, err
	}
	return ResourceSample{
		CPUPercent: cpuVal,
		MemUsedPct: vm.UsedPercent,
		SampledAt:  time.Now(),
	}, nil
}
