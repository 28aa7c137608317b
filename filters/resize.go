package filters

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
)

// kernel is a resampling kernel.
type kernel struct {
	// Support is the kernel radius in source pixels at scale 1.
	Support float64
	// At evaluates the kernel at distance x.
	At func(x float64) float64
}

// kernels maps the "kernel" parameter to its resampling function.
var kernels = map[string]kernel{
	"nearest": {
		Support: 0.5,
		At: func(x float64) float64 {
			if math.Abs(x) < 0.5 {
				return 1.0
			}
			return 0.0
		},
	},
	"bilinear": {
		Support: 1.0,
		At: func(x float64) float64 {
			x = math.Abs(x)
			if x < 1.0 {
				return 1.0 - x
			}
			return 0.0
		},
	},
	"bicubic": {
		Support: 2.0,
		At: func(x float64) float64 {
			// Catmull-Rom (B=0, C=0.5).
			x = math.Abs(x)
			if x < 1.0 {
				return (1.5*x-2.5)*x*x + 1.0
			}
			if x < 2.0 {
				return ((-0.5*x+2.5)*x-4.0)*x + 2.0
			}
			return 0.0
		},
	},
	"lanczos": {
		Support: 3.0,
		At: func(x float64) float64 {
			if x == 0.0 {
				return 1.0
			}
			x = math.Abs(x)
			if x >= 3.0 {
				return 0.0
			}
			// sinc(x) * sinc(x/3)
			pix := math.Pi * x
			return (math.Sin(pix) / pix) * (math.Sin(pix/3.0) / (pix / 3.0))
		},
	},
	"mitchell": {
		Support: 2.0,
		At: func(x float64) float64 {
			// B=1/3, C=1/3.
			x = math.Abs(x)
			if x < 1.0 {
				return ((1.16666666666667*x-2.0)*x)*x + 0.888888888888889
			}
			if x < 2.0 {
				return ((-0.388888888888889*x+2.0)*x-3.333333333333333)*x + 1.777777777777778
			}
			return 0.0
		},
	},
}

// nfntKernels maps the same names to nfnt/resize interpolation functions.
var nfntKernels = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"lanczos":  resize.Lanczos3,
	"mitchell": resize.MitchellNetravali,
}

var resizeSignature = Signature{
	Params:   []string{"width", "height", "kernel"},
	Required: []string{"width", "height"},
}

// Contribution is the weight of one source sample in an output sample.
type Contribution struct {
	pixel  int
	weight float64
}

// contributions precomputes, for each of dstSize outputs, the normalized
// weights of the source samples it reads.
func contributions(srcSize, dstSize int, k kernel) [][]Contribution {
	scale := float64(srcSize) / float64(dstSize)
	// Widen the support when downsampling.
	filterScale := math.Max(scale, 1.0)
	support := k.Support * filterScale

	out := make([][]Contribution, dstSize)
	for x := 0; x < dstSize; x++ {
		center := (float64(x) + 0.5) * scale
		left := int(math.Floor(center - support))
		right := int(math.Ceil(center + support))
		if left < 0 {
			left = 0
		}
		if right >= srcSize {
			right = srcSize - 1
		}

		var (
			weights []Contribution
			sum     float64
		)
		for src := left; src <= right; src++ {
			distance := math.Abs(float64(src) - center + 0.5)
			weight := k.At(distance / filterScale)
			if weight != 0 {
				weights = append(weights, Contribution{pixel: src, weight: weight})
				sum += weight
			}
		}
		if sum != 0 {
			for i := range weights {
				weights[i].weight /= sum
			}
		} else {
			// The center fell exactly between two samples of a narrow kernel.
			nearest := min(max(int(center), 0), srcSize-1)
			weights = []Contribution{{pixel: nearest, weight: 1}}
		}
		out[x] = weights
	}
	return out
}

type resizeArgs struct {
	width, height int
	kernel        string
}

func parseResize(in *frames.Clip, params Params) (resizeArgs, error) {
	var (
		a   resizeArgs
		err error
	)
	if a.width, err = params.Int("width", in.Width); err != nil {
		return a, err
	}
	if a.height, err = params.Int("height", in.Height); err != nil {
		return a, err
	}
	if a.kernel, err = params.Text("kernel", "bicubic"); err != nil {
		return a, err
	}
	if _, ok := kernels[a.kernel]; !ok {
		return a, errors.Errorf("resize: unknown kernel %q", a.kernel)
	}
	if a.width <= 0 || a.height <= 0 {
		return a, errors.Errorf("resize: invalid target %dx%d", a.width, a.height)
	}
	subW, subH := in.Format.Subsampling()
	if a.width%(1<<subW) != 0 || a.height%(1<<subH) != 0 {
		return a, errors.Errorf("resize: %dx%d does not fit %s subsampling", a.width, a.height, in.Format)
	}
	return a, nil
}

// resizeClip resizes every plane of in with planeFn.
func resizeClip(in *frames.Clip, a resizeArgs, planeFn func(format frames.Format, src *frames.Plane, w, h int) (*frames.Plane, error)) *frames.Clip {
	return in.Transform(in.Format, a.width, a.height, func(f *frames.Frame) (*frames.Frame, error) {
		out := &frames.Frame{
			Format: f.Format,
			Width:  a.width,
			Height: a.height,
			Planes: make([]*frames.Plane, len(f.Planes)),
		}
		for i, p := range f.Planes {
			w, h := f.Format.PlaneSize(i, a.width, a.height)
			dst, err := planeFn(f.Format, p, w, h)
			if err != nil {
				return nil, err
			}
			out.Planes[i] = dst
		}
		return out, nil
	})
}

// resizePlane is the separable resize: horizontal pass then vertical pass.
func resizePlane(format frames.Format, src *frames.Plane, w, h int, k kernel) *frames.Plane {
	hc := contributions(src.Width, w, k)
	vc := contributions(src.Height, h, k)
	peak := float64(format.Peak())

	mid := frames.NewPlane(w, src.Height)
	Parallel(src.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := src.Row(y)
			out := mid.Row(y)
			for x := 0; x < w; x++ {
				var acc float64
				for _, c := range hc[x] {
					acc += float64(row[c.pixel]) * c.weight
				}
				out[x] = float32(acc)
			}
		}
	})

	dst := frames.NewPlane(w, h)
	Parallel(w, func(start, end int) {
		for x := start; x < end; x++ {
			for y := 0; y < h; y++ {
				var acc float64
				for _, c := range vc[y] {
					acc += float64(mid.Pix[c.pixel*w+x]) * c.weight
				}
				if !format.IsFloat() {
					acc = Clamp(acc, 0, peak)
				}
				dst.Pix[y*w+x] = format.Quantize(float32(acc))
			}
		}
	})
	return dst
}

// Resize scales every plane with the kernels of this package.
func Resize() Benchmarkable {
	return Func{
		Sig: resizeSignature,
		Fn: func(in *frames.Clip, params Params) (*frames.Clip, error) {
			a, err := parseResize(in, params)
			if err != nil {
				return nil, err
			}
			k := kernels[a.kernel]
			return resizeClip(in, a, func(format frames.Format, src *frames.Plane, w, h int) (*frames.Plane, error) {
				return resizePlane(format, src, w, h, k), nil
			}), nil
		},
	}
}

// ResizeNfnt scales every plane through nfnt/resize on 16-bit gray images.
func ResizeNfnt() Benchmarkable {
	return Func{
		Sig: resizeSignature,
		Fn: func(in *frames.Clip, params Params) (*frames.Clip, error) {
			a, err := parseResize(in, params)
			if err != nil {
				return nil, err
			}
			interp := nfntKernels[a.kernel]
			return resizeClip(in, a, func(format frames.Format, src *frames.Plane, w, h int) (*frames.Plane, error) {
				img := planeToGray16(format, src)
				scaled := resize.Resize(uint(w), uint(h), img, interp)
				return gray16ToPlane(format, scaled), nil
			}), nil
		},
	}
}

func planeToGray16(format frames.Format, p *frames.Plane) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	scale := 65535 / float64(format.Peak())
	for i, v := range p.Pix {
		s := uint16(Clamp(float64(v)*scale+0.5, 0, 65535))
		img.Pix[i*2] = uint8(s >> 8)
		img.Pix[i*2+1] = uint8(s)
	}
	return img
}

func gray16ToPlane(format frames.Format, img image.Image) *frames.Plane {
	b := img.Bounds()
	p := frames.NewPlane(b.Dx(), b.Dy())
	scale := float64(format.Peak()) / 65535
	g16, fast := img.(*image.Gray16)
	for y := 0; y < p.Height; y++ {
		row := p.Row(y)
		for x := range row {
			var s uint16
			if fast {
				s = g16.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			} else {
				s = color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
			}
			row[x] = format.Quantize(float32(float64(s) * scale))
		}
	}
	return p
}
