package profiler

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Summary describes the values recorded by a Tracker. Every statistic is NaN
// when the tracker is empty or holds a NaN value.
type Summary struct {
	Name   string
	Count  int
	Mean   float64
	Min    float64
	Max    float64
	StdDev float64
}

// Tracker accumulates the values of one metric.
type Tracker struct {
	name   string
	values []float64
}

// NewTracker creates an empty tracker.
func NewTracker(name string) *Tracker {
	return &Tracker{name: name}
}

// Record appends a value. NaN marks a failed measurement.
func (t *Tracker) Record(value float64) {
	t.values = append(t.values, value)
}

// Count returns the number of recorded values.
func (t *Tracker) Count() int {
	return len(t.values)
}

// Reset drops every recorded value, keeping the allocation.
func (t *Tracker) Reset() {
	t.values = t.values[:0]
}

// Summary computes the statistics of the recorded values.
func (t *Tracker) Summary() Summary {
	s := Summary{
		Name:   t.name,
		Count:  len(t.values),
		Mean:   math.NaN(),
		Min:    math.NaN(),
		Max:    math.NaN(),
		StdDev: math.NaN(),
	}
	if len(t.values) == 0 {
		return s
	}
	for _, v := range t.values {
		if math.IsNaN(v) {
			return s
		}
	}

	data := stats.Float64Data(t.values)
	// stats only fails on empty input, which is excluded above.
	s.Mean, _ = stats.Mean(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.StdDev, _ = stats.StandardDeviation(data)
	return s
}

// Series folds the Samples of repeated windows into per-field trackers.
type Series struct {
	Elapsed    *Tracker
	CPUTime    *Tracker
	CPUPercent *Tracker
	MemoryMB   *Tracker
}

// NewSeries creates an empty series.
func NewSeries() *Series {
	return &Series{
		Elapsed:    NewTracker("elapsed"),
		CPUTime:    NewTracker("cpu_time"),
		CPUPercent: NewTracker("cpu_percent"),
		MemoryMB:   NewTracker("memory_mb"),
	}
}

// Record adds a measured window. Durations are recorded in seconds.
func (s *Series) Record(sample Sample) {
	s.Elapsed.Record(sample.Elapsed.Seconds())
	s.CPUTime.Record(sample.CPUTime.Seconds())
	s.CPUPercent.Record(sample.CPUPercent)
	s.MemoryMB.Record(sample.MemoryMB)
}

// Fail records a window that could not be measured.
func (s *Series) Fail() {
	nan := math.NaN()
	s.Elapsed.Record(nan)
	s.CPUTime.Record(nan)
	s.CPUPercent.Record(nan)
	s.MemoryMB.Record(nan)
}

// Len returns the number of windows recorded.
func (s *Series) Len() int {
	return s.Elapsed.Count()
}

// Reset clears every tracker.
func (s *Series) Reset() {
	s.Elapsed.Reset()
	s.CPUTime.Reset()
	s.CPUPercent.Reset()
	s.MemoryMB.Reset()
}
