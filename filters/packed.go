package filters

import (
	"image"
	"sync"

	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
)

var packedSignature = Signature{
	Params: []string{"hradius", "vradius", "edge"},
}

// rgbaPool reuses the interleaved buffers between frames.
type rgbaPool struct {
	rgba sync.Pool // *image.RGBA
}

func (p *rgbaPool) get(bounds image.Rectangle) *image.RGBA {
	if v := p.rgba.Get(); v != nil {
		img := v.(*image.RGBA)
		if img.Rect == bounds {
			return img
		}
	}
	return image.NewRGBA(bounds)
}

func (p *rgbaPool) put(img *image.RGBA) {
	p.rgba.Put(img)
}

// packedChunk picks the number of rows or columns handled per goroutine.
func packedChunk(n int) int {
	switch {
	case n >= 2048:
		return 128
	case n >= 512:
		return 64
	default:
		return 32
	}
}

// runChunked calls task for every index in [0, n), in parallel chunks when
// more than one thread is allowed.
func runChunked(n int, task func(i int)) {
	if frames.Threads() <= 1 || n < 4 {
		for i := 0; i < n; i++ {
			task(i)
		}
		return
	}
	chunk := packedChunk(n)
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				task(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// pack interleaves up to four 8-bit planes into dst.
func pack(dst *image.RGBA, planes []*frames.Plane) {
	for c, p := range planes {
		for i, v := range p.Pix {
			dst.Pix[i*4+c] = uint8(v)
		}
	}
}

func unpack(src *image.RGBA, n, width, height int) []*frames.Plane {
	out := make([]*frames.Plane, n)
	for c := range out {
		p := frames.NewPlane(width, height)
		for i := range p.Pix {
			p.Pix[i] = float32(src.Pix[i*4+c])
		}
		out[c] = p
	}
	return out
}

// slideRGBA runs a sliding window box blur over n lines of size samples.
// Sample i of line l lives at offset(l, i) in both buffers.
func slideRGBA(src, dst *image.RGBA, lines, size, r int, edge EdgeMode, offset func(line, i int) int) {
	window := uint32(2*r + 1)
	half := window / 2
	runChunked(lines, func(l int) {
		var sum [4]uint32
		load := func(i int) []uint8 {
			off := offset(l, MapCoord(i, size, edge))
			return src.Pix[off : off+4 : off+4]
		}
		for d := -r; d <= r; d++ {
			p := load(d)
			for c := range sum {
				sum[c] += uint32(p[c])
			}
		}
		for i := 0; i < size; i++ {
			off := offset(l, i)
			for c := range sum {
				dst.Pix[off+c] = uint8((sum[c] + half) / window)
			}
			// Unsigned wrap-around keeps the running sum exact.
			left, right := load(i-r), load(i+r+1)
			for c := range sum {
				sum[c] += uint32(right[c]) - uint32(left[c])
			}
		}
	})
}

// BoxBlurPacked interleaves the planes of an 8-bit frame into one RGBA
// buffer and blurs every channel at once with integer sliding windows. It
// accepts formats of up to four full resolution 8-bit planes.
func BoxBlurPacked() Benchmarkable {
	pool := &rgbaPool{}
	return Func{
		Sig: packedSignature,
		Fn: func(in *frames.Clip, params Params) (*frames.Clip, error) {
			if in.Format.IsFloat() || in.Format.Bits() != 8 || in.Format.NumPlanes() > 4 {
				return nil, errors.Errorf("boxblur.packed: %s is not an 8-bit format", in.Format)
			}
			if sw, sh := in.Format.Subsampling(); sw != 0 || sh != 0 {
				return nil, errors.Errorf("boxblur.packed: %s is subsampled", in.Format)
			}
			hr, err := params.Int("hradius", 1)
			if err != nil {
				return nil, err
			}
			vr, err := params.Int("vradius", hr)
			if err != nil {
				return nil, err
			}
			if hr < 0 || vr < 0 {
				return nil, errors.Errorf("boxblur.packed: radius must be >= 0, got %d/%d", hr, vr)
			}
			name, err := params.Text("edge", string(ClampEdgeMode))
			if err != nil {
				return nil, err
			}
			edge, err := ParseEdgeMode(name)
			if err != nil {
				return nil, err
			}

			return in.Transform(in.Format, in.Width, in.Height, func(f *frames.Frame) (*frames.Frame, error) {
				w, h := f.Width, f.Height
				bounds := image.Rect(0, 0, w, h)
				src, tmp := pool.get(bounds), pool.get(bounds)
				defer pool.put(src)
				defer pool.put(tmp)

				pack(src, f.Planes)
				stride := src.Stride
				cur, next := src, tmp
				if hr > 0 {
					slideRGBA(cur, next, h, w, hr, edge, func(y, x int) int { return y*stride + x*4 })
					cur, next = next, cur
				}
				if vr > 0 {
					slideRGBA(cur, next, w, h, vr, edge, func(x, y int) int { return y*stride + x*4 })
					cur = next
				}
				return f.WithPlanes(unpack(cur, len(f.Planes), w, h)), nil
			}), nil
		},
	}
}
