package benchmark

import (
	"math"
	"runtime"
	"strings"

	"github.com/nvr-ai/filterbench/profiler"
	"github.com/pkg/errors"
)

// Metric identifies one measured or derived quantity.
type Metric int

// Metric constants, in canonical report order.
const (
	// MetricUndefined is the zero value.
	MetricUndefined Metric = iota
	// Time is the mean wall time of a pass in seconds.
	Time
	// TimeMin is the fastest pass in seconds.
	TimeMin
	// TimeMax is the slowest pass in seconds.
	TimeMax
	// FPS is frames per second at the mean pass time.
	FPS
	// CPUTime is the mean process CPU time of a pass in seconds.
	CPUTime
	// CPUUsage is the mean CPU utilisation in percent of one core.
	CPUUsage
	// MemoryUsage is the mean resident memory in MB.
	MemoryUsage
	// Efficiency is the speed-up over the single thread run divided by the thread count.
	Efficiency
	// CPUEfficiency is CPUUsage normalised by the available cores.
	CPUEfficiency

	metricEnd
)

const metricCount = int(metricEnd) - 1

var metricNames = map[Metric]string{
	Time:          "TIME",
	TimeMin:       "TIME_MIN",
	TimeMax:       "TIME_MAX",
	FPS:           "FPS",
	CPUTime:       "CPU_TIME",
	CPUUsage:      "CPU_USAGE",
	MemoryUsage:   "MEMORY_USAGE",
	Efficiency:    "EFFICIENCY",
	CPUEfficiency: "CPU_EFFICIENCY",
}

// allName is the token of the ALL aggregate. It is not a Metric.
const allName = "ALL"

// Metrics returns every concrete metric in canonical order.
func Metrics() []Metric {
	out := make([]Metric, 0, metricCount)
	for m := Time; m < metricEnd; m++ {
		out = append(out, m)
	}
	return out
}

// String returns the symbolic name.
func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return "UNDEFINED"
}

// Valid reports whether m is a concrete metric.
func (m Metric) Valid() bool {
	return m > MetricUndefined && m < metricEnd
}

// HigherIsBetter reports whether larger values rank first.
func (m Metric) HigherIsBetter() bool {
	switch m {
	case FPS, Efficiency, CPUEfficiency:
		return true
	default:
		return false
	}
}

// ParseMetric resolves a metric name (case-insensitive). ALL is rejected.
func ParseMetric(name string) (Metric, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for m, n := range metricNames {
		if n == upper {
			return m, nil
		}
	}
	if upper == allName {
		return MetricUndefined, errors.Wrap(ErrConfiguration, "ALL is an aggregate, not a single metric")
	}
	return MetricUndefined, errors.Wrapf(ErrConfiguration, "unknown metric %q", name)
}

// MetricSet is a selection of metrics. The zero value is empty.
type MetricSet struct {
	all  bool
	tags [metricCount]bool
}

// AllMetrics selects every concrete metric.
var AllMetrics = MetricSet{all: true}

// NewMetricSet selects the given metrics. Invalid tags are ignored.
func NewMetricSet(ms ...Metric) MetricSet {
	var s MetricSet
	for _, m := range ms {
		if m.Valid() {
			s.tags[m-1] = true
		}
	}
	return s
}

// ParseMetricSet parses "ALL" or a comma separated list such as "TIME,FPS".
func ParseMetricSet(s string) (MetricSet, error) {
	var set MetricSet
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.EqualFold(part, allName) {
			set.all = true
			continue
		}
		m, err := ParseMetric(part)
		if err != nil {
			return MetricSet{}, err
		}
		set.tags[m-1] = true
	}
	return set, nil
}

// IsAll reports whether the set is the ALL aggregate.
func (s MetricSet) IsAll() bool {
	return s.all
}

// Contains reports whether m is selected.
func (s MetricSet) Contains(m Metric) bool {
	return m.Valid() && (s.all || s.tags[m-1])
}

// Metrics returns the selected concrete metrics in canonical order. The ALL
// aggregate expands to every metric and is never yielded itself.
func (s MetricSet) Metrics() []Metric {
	var out []Metric
	for _, m := range Metrics() {
		if s.Contains(m) {
			out = append(out, m)
		}
	}
	return out
}

// Single returns the one concrete metric of the set. Ranking needs exactly
// one metric, so ALL, the empty set and multi-metric sets are rejected.
func (s MetricSet) Single() (Metric, error) {
	if s.all {
		return MetricUndefined, errors.Wrap(ErrConfiguration, "cannot compare on ALL, pick a single metric")
	}
	ms := s.Metrics()
	switch len(ms) {
	case 1:
		return ms[0], nil
	case 0:
		return MetricUndefined, errors.Wrap(ErrConfiguration, "no metric selected")
	default:
		return MetricUndefined, errors.Wrapf(ErrConfiguration, "cannot compare on %d metrics at once", len(ms))
	}
}

// String renders the set in the form accepted by ParseMetricSet.
func (s MetricSet) String() string {
	if s.all {
		return allName
	}
	names := make([]string, 0, metricCount)
	for _, m := range s.Metrics() {
		names = append(names, m.String())
	}
	return strings.Join(names, ",")
}

// Aggregated holds one value per concrete metric for a results cell.
type Aggregated map[Metric]float64

// Clone returns a copy.
func (a Aggregated) Clone() Aggregated {
	out := make(Aggregated, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// HasNaN reports whether any value is NaN.
func (a Aggregated) HasNaN() bool {
	for _, v := range a {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// effectiveThreads maps the unbounded policy (0) to the core count.
func effectiveThreads(threads int) int {
	if threads <= 0 {
		return runtime.NumCPU()
	}
	return threads
}

// efficiency returns the parallel efficiency (t1/tn)/n. It is 1.0 for a
// single thread or when no baseline is known.
func efficiency(baseline float64, hasBaseline bool, tn float64, n int) float64 {
	if n == 1 || !hasBaseline {
		return 1.0
	}
	return (baseline / tn) / float64(n)
}

// aggregate folds the samples of one cell into every metric. A single failed
// pass makes every metric NaN.
//
// Arguments:
// - series: The samples of the cell.
// - frames: Frames rendered per pass.
// - threads: Thread key of the cell (0 for the unbounded policy).
// - baseline: Mean single thread time of the same case, resolution and format.
// - hasBaseline: Whether baseline is known.
//
// Returns:
// - The aggregated metrics.
func aggregate(series *profiler.Series, frames, threads int, baseline float64, hasBaseline bool) Aggregated {
	elapsed := series.Elapsed.Summary()
	cpuTime := series.CPUTime.Summary()
	cpuPercent := series.CPUPercent.Summary()
	memory := series.MemoryMB.Summary()

	out := make(Aggregated, metricCount)
	if math.IsNaN(elapsed.Mean) || math.IsNaN(cpuTime.Mean) || math.IsNaN(cpuPercent.Mean) || math.IsNaN(memory.Mean) {
		for _, m := range Metrics() {
			out[m] = math.NaN()
		}
		return out
	}

	n := effectiveThreads(threads)
	out[Time] = elapsed.Mean
	out[TimeMin] = elapsed.Min
	out[TimeMax] = elapsed.Max
	out[FPS] = float64(frames) / elapsed.Mean
	out[CPUTime] = cpuTime.Mean
	out[CPUUsage] = cpuPercent.Mean
	out[MemoryUsage] = memory.Mean
	out[Efficiency] = efficiency(baseline, hasBaseline, elapsed.Mean, n)
	out[CPUEfficiency] = cpuPercent.Mean / (100 * float64(n))
	return out
}
