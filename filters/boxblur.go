package filters

import (
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
)

var boxBlurSignature = Signature{
	Params: []string{"hradius", "vradius", "hpasses", "vpasses", "planes", "edge"},
}

// boxLineFunc blurs the n samples of one line starting at off with the given
// stride, writing the quantized means into dst.
type boxLineFunc func(dst, src []float32, off, stride, n, radius int, mode EdgeMode, q func(float32) float32)

// boxLineNaive sums the full window for every output sample.
func boxLineNaive(dst, src []float32, off, stride, n, radius int, mode EdgeMode, q func(float32) float32) {
	div := float64(2*radius + 1)
	for i := 0; i < n; i++ {
		var sum float64
		for k := -radius; k <= radius; k++ {
			sum += float64(src[off+MapCoord(i+k, n, mode)*stride])
		}
		dst[off+i*stride] = q(float32(sum / div))
	}
}

// boxLineSliding keeps a running window sum, so the cost per sample does not
// depend on the radius.
func boxLineSliding(dst, src []float32, off, stride, n, radius int, mode EdgeMode, q func(float32) float32) {
	div := float64(2*radius + 1)
	var sum float64
	for k := -radius; k <= radius; k++ {
		sum += float64(src[off+MapCoord(k, n, mode)*stride])
	}
	dst[off] = q(float32(sum / div))
	for i := 1; i < n; i++ {
		sum += float64(src[off+MapCoord(i+radius, n, mode)*stride])
		sum -= float64(src[off+MapCoord(i-1-radius, n, mode)*stride])
		dst[off+i*stride] = q(float32(sum / div))
	}
}

type boxBlurArgs struct {
	hradius, vradius int
	hpasses, vpasses int
	edge             EdgeMode
	planes           []bool
}

func parseBoxBlur(in *frames.Clip, params Params) (boxBlurArgs, error) {
	var (
		a   boxBlurArgs
		err error
	)
	if a.hradius, err = params.Int("hradius", 1); err != nil {
		return a, err
	}
	if a.vradius, err = params.Int("vradius", a.hradius); err != nil {
		return a, err
	}
	if a.hpasses, err = params.Int("hpasses", 1); err != nil {
		return a, err
	}
	if a.vpasses, err = params.Int("vpasses", a.hpasses); err != nil {
		return a, err
	}
	if a.hradius < 0 || a.vradius < 0 {
		return a, errors.Errorf("boxblur: radius must be >= 0, got %d/%d", a.hradius, a.vradius)
	}
	if a.hpasses < 0 || a.vpasses < 0 {
		return a, errors.Errorf("boxblur: passes must be >= 0, got %d/%d", a.hpasses, a.vpasses)
	}
	edge, err := params.Text("edge", string(ClampEdgeMode))
	if err != nil {
		return a, err
	}
	if a.edge, err = ParseEdgeMode(edge); err != nil {
		return a, err
	}
	a.planes, err = selectPlanes(params, in.Format.NumPlanes())
	return a, err
}

// boxBlurPlane runs the horizontal passes then the vertical passes over src.
func boxBlurPlane(format frames.Format, src *frames.Plane, a boxBlurArgs, line boxLineFunc, parallel bool) *frames.Plane {
	q := format.Quantize
	cur := src
	run := func(size int, fn func(start, end int)) {
		if parallel {
			Parallel(size, fn)
		} else {
			fn(0, size)
		}
	}

	if a.hradius > 0 {
		for pass := 0; pass < a.hpasses; pass++ {
			dst := frames.NewPlane(cur.Width, cur.Height)
			from := cur
			run(cur.Height, func(start, end int) {
				for y := start; y < end; y++ {
					line(dst.Pix, from.Pix, y*from.Width, 1, from.Width, a.hradius, a.edge, q)
				}
			})
			cur = dst
		}
	}
	if a.vradius > 0 {
		for pass := 0; pass < a.vpasses; pass++ {
			dst := frames.NewPlane(cur.Width, cur.Height)
			from := cur
			run(cur.Width, func(start, end int) {
				for x := start; x < end; x++ {
					line(dst.Pix, from.Pix, x, from.Width, from.Height, a.vradius, a.edge, q)
				}
			})
			cur = dst
		}
	}
	if cur == src {
		return src.Clone()
	}
	return cur
}

func boxBlurVariant(line boxLineFunc, parallel bool) Benchmarkable {
	return Func{
		Sig: boxBlurSignature,
		Fn: func(in *frames.Clip, params Params) (*frames.Clip, error) {
			a, err := parseBoxBlur(in, params)
			if err != nil {
				return nil, err
			}
			return mapPlanes(in, a.planes, func(format frames.Format, src *frames.Plane) *frames.Plane {
				return boxBlurPlane(format, src, a, line, parallel)
			}), nil
		},
	}
}

// BoxBlur is the reference box blur: the whole window is summed per sample.
func BoxBlur() Benchmarkable { return boxBlurVariant(boxLineNaive, false) }

// BoxBlurRows is BoxBlur with rows and columns split across goroutines.
func BoxBlurRows() Benchmarkable { return boxBlurVariant(boxLineNaive, true) }

// BoxBlurSliding uses a running window sum.
func BoxBlurSliding() Benchmarkable { return boxBlurVariant(boxLineSliding, false) }
