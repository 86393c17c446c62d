package sysstats

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

const sampleRate = 500 * time.Millisecond

var (
	mu        sync.Mutex
	lastCheck time.Time
	lastUsage float64
)

type Stats struct {
	NumCPU      int     `json:"num_cpu"`
	GoRoutines  int     `json:"go_routines"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryAlloc uint64  `json:"memory_alloc"`
	MemorySys   uint64  `json:"memory_sys"`
}

// CPUUsage samples total CPU usage, reusing the last sample for 500ms.
func CPUUsage() float64 {
	mu.Lock()
	defer mu.Unlock()

	if !lastCheck.IsZero() && time.Since(lastCheck) < sampleRate {
		return lastUsage
	}

	percentages, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		return 0
	}

	lastCheck = time.Now()
	lastUsage = percentages[0]
	return lastUsage
}

func Collect() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Stats{
		NumCPU:      runtime.NumCPU(),
		GoRoutines:  runtime.NumGoroutine(),
		CPUUsage:    CPUUsage(),
		MemoryAlloc: mem.Alloc,
		MemorySys:   mem.Sys,
	}
}
