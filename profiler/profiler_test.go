package profiler

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spin int

func TestSampler_Window(t *testing.T) {
	s, err := NewSampler()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Start())
		deadline := time.Now().Add(20 * time.Millisecond)
		for time.Now().Before(deadline) {
			spin++
		}
		sample, err := s.Stop()
		require.NoError(t, err)

		assert.GreaterOrEqual(t, sample.Elapsed, 20*time.Millisecond)
		assert.GreaterOrEqual(t, sample.CPUTime, time.Duration(0))
		assert.GreaterOrEqual(t, sample.CPUPercent, 0.0)
		assert.Greater(t, sample.MemoryMB, 0.0)
	}
}

func TestSampler_StopWithoutStart(t *testing.T) {
	s, err := NewSampler()
	require.NoError(t, err)

	_, err = s.Stop()
	assert.Error(t, err)
}

func TestTracker_Summary(t *testing.T) {
	tr := NewTracker("elapsed")
	for _, v := range []float64{3, 1, 2} {
		tr.Record(v)
	}
	s := tr.Summary()
	assert.Equal(t, "elapsed", s.Name)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2.0, s.Mean)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)
	assert.InDelta(t, 0.8165, s.StdDev, 1e-4)
}

func TestTracker_NaNPoisonsSummary(t *testing.T) {
	tr := NewTracker("x")
	tr.Record(1)
	tr.Record(math.NaN())
	s := tr.Summary()
	assert.True(t, math.IsNaN(s.Mean))
	assert.True(t, math.IsNaN(s.Min))
	assert.True(t, math.IsNaN(s.Max))

	empty := NewTracker("y").Summary()
	assert.True(t, math.IsNaN(empty.Mean))
	assert.Equal(t, 0, empty.Count)
}

func TestSeries(t *testing.T) {
	s := NewSeries()
	s.Record(Sample{Elapsed: 500 * time.Millisecond, CPUTime: time.Second, CPUPercent: 200, MemoryMB: 10})
	s.Record(Sample{Elapsed: 1500 * time.Millisecond, CPUTime: time.Second, CPUPercent: 100, MemoryMB: 30})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1.0, s.Elapsed.Summary().Mean)
	assert.Equal(t, 150.0, s.CPUPercent.Summary().Mean)
	assert.Equal(t, 20.0, s.MemoryMB.Summary().Mean)

	s.Fail()
	assert.True(t, math.IsNaN(s.CPUTime.Summary().Mean))

	s.Reset()
	assert.Equal(t, 0, s.Len())
}
