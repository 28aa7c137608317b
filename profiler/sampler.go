// Package profiler measures the cost of a code window: wall time, process CPU
// time, CPU utilisation and resident memory, and folds repeated measurements
// into summary statistics.
package profiler

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// Sample is the measurement of one window.
type Sample struct {
	// Elapsed is the wall clock time of the window.
	Elapsed time.Duration
	// CPUTime is the user+system CPU time consumed by the process.
	CPUTime time.Duration
	// CPUPercent is the process CPU utilisation over the window, where 100
	// means one fully busy core.
	CPUPercent float64
	// MemoryMB is the resident set size at the end of the window.
	MemoryMB float64
}

// Sampler measures windows of the current process. It is created once and
// reused; Start resets the window.
type Sampler struct {
	proc    *process.Process
	start   time.Time
	cpu0    float64
	running bool
}

// NewSampler binds a sampler to the current process.
func NewSampler() (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "open process handle")
	}
	return &Sampler{proc: proc}, nil
}

// Start opens a measurement window. The CPU percent counter is primed here so
// the next reading covers only this window.
func (s *Sampler) Start() error {
	if _, err := s.proc.Percent(0); err != nil {
		return errors.Wrap(err, "prime cpu percent")
	}
	cpu, err := s.cpuSeconds()
	if err != nil {
		return err
	}
	s.cpu0 = cpu
	s.running = true
	s.start = time.Now()
	return nil
}

// Stop closes the window opened by Start and returns its measurement.
func (s *Sampler) Stop() (Sample, error) {
	elapsed := time.Since(s.start)
	if !s.running {
		return Sample{}, errors.New("sampler: Stop without Start")
	}
	s.running = false

	cpu, err := s.cpuSeconds()
	if err != nil {
		return Sample{}, err
	}
	percent, err := s.proc.Percent(0)
	if err != nil {
		return Sample{}, errors.Wrap(err, "read cpu percent")
	}
	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return Sample{}, errors.Wrap(err, "read memory info")
	}

	return Sample{
		Elapsed:    elapsed,
		CPUTime:    time.Duration((cpu - s.cpu0) * float64(time.Second)),
		CPUPercent: percent,
		MemoryMB:   float64(mem.RSS) / (1024 * 1024),
	}, nil
}

func (s *Sampler) cpuSeconds() (float64, error) {
	t, err := s.proc.Times()
	if err != nil {
		return 0, errors.Wrap(err, "read cpu times")
	}
	return t.User + t.System, nil
}
