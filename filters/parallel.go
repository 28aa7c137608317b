package filters

import (
	"sync"

	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
)

// Parallel splits [0, dataSize) into contiguous partitions and runs fn on each
// from its own goroutine. The partition count follows frames.Threads().
//
// Arguments:
// - dataSize: The size of the data to process.
// - fn: Function to execute for each partition (receives start and end indices).
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	workers := frames.Threads()

	// Too small to be worth the goroutines.
	if workers <= 1 || dataSize < workers*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / workers

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize
		// Last partition takes the remainder.
		if i == workers-1 {
			partEnd = dataSize
		}
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}
	wg.Wait()
}

// Clamp restricts value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// EdgeMode defines how out of bounds coordinates are resolved.
type EdgeMode string

const (
	// ClampEdgeMode repeats the border sample.
	ClampEdgeMode EdgeMode = "clamp"
	// MirrorEdgeMode reflects around the border.
	MirrorEdgeMode EdgeMode = "mirror"
	// WrapEdgeMode tiles the line.
	WrapEdgeMode EdgeMode = "wrap"
)

// ParseEdgeMode validates an edge mode name.
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch m := EdgeMode(s); m {
	case ClampEdgeMode, MirrorEdgeMode, WrapEdgeMode:
		return m, nil
	}
	return "", errors.Errorf("unknown edge mode %q", s)
}

// MapCoord maps coord into [0, max) according to mode.
func MapCoord(coord, max int, mode EdgeMode) int {
	switch mode {
	case MirrorEdgeMode:
		for coord < 0 || coord >= max {
			if coord < 0 {
				coord = -coord - 1
			} else {
				coord = 2*max - coord - 1
			}
		}
		return coord
	case WrapEdgeMode:
		return (coord%max + max) % max
	default:
		if coord < 0 {
			return 0
		} else if coord >= max {
			return max - 1
		}
		return coord
	}
}

// mapPlanes derives a clip of the same shape where every selected plane is
// replaced by fn(src). Unselected planes are shared with the input frame.
func mapPlanes(in *frames.Clip, sel []bool, fn func(format frames.Format, src *frames.Plane) *frames.Plane) *frames.Clip {
	return in.Transform(in.Format, in.Width, in.Height, func(f *frames.Frame) (*frames.Frame, error) {
		planes := make([]*frames.Plane, len(f.Planes))
		for i, p := range f.Planes {
			if i < len(sel) && sel[i] {
				planes[i] = fn(f.Format, p)
			} else {
				planes[i] = p
			}
		}
		return f.WithPlanes(planes), nil
	})
}
