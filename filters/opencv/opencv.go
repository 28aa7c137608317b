// Package opencv registers OpenCV-backed variants of the box and gaussian
// blurs. Planes are copied into single channel CV_32F mats, filtered, and
// copied back. OpenCV resolves borders with its default reflect-101 rule.
package opencv

import (
	"image"
	"math"

	"github.com/nvr-ai/filterbench/filters"
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Register adds "boxblur.opencv" and "gaussian.opencv" to r.
func Register(r *filters.Registry) error {
	if err := r.Register("boxblur.opencv", BoxBlur()); err != nil {
		return err
	}
	return r.Register("gaussian.opencv", Gaussian())
}

// BoxBlur is a normalized box filter of size (2*hradius+1)x(2*vradius+1).
func BoxBlur() filters.Benchmarkable {
	return filters.Func{
		Sig: filters.Signature{Params: []string{"hradius", "vradius", "planes"}},
		Fn: func(in *frames.Clip, params filters.Params) (*frames.Clip, error) {
			hr, err := params.Int("hradius", 1)
			if err != nil {
				return nil, err
			}
			vr, err := params.Int("vradius", hr)
			if err != nil {
				return nil, err
			}
			if hr < 0 || vr < 0 {
				return nil, errors.Errorf("boxblur.opencv: radius must be >= 0, got %d/%d", hr, vr)
			}
			sel, err := planes(params, in.Format)
			if err != nil {
				return nil, err
			}
			ksize := image.Pt(2*hr+1, 2*vr+1)
			return apply(in, sel, func(src gocv.Mat, dst *gocv.Mat) {
				gocv.Blur(src, dst, ksize)
			}), nil
		},
	}
}

// Gaussian blurs with an OpenCV kernel of radius ceil(3*sigma).
func Gaussian() filters.Benchmarkable {
	return filters.Func{
		Sig: filters.Signature{Params: []string{"sigma", "planes"}},
		Fn: func(in *frames.Clip, params filters.Params) (*frames.Clip, error) {
			sigma, err := params.Float("sigma", 1.5)
			if err != nil {
				return nil, err
			}
			sigma = filters.Clamp(sigma, 0.1, 10.0)
			sel, err := planes(params, in.Format)
			if err != nil {
				return nil, err
			}
			size := 2*int(math.Ceil(sigma*3.0)) + 1
			ksize := image.Pt(size, size)
			return apply(in, sel, func(src gocv.Mat, dst *gocv.Mat) {
				gocv.GaussianBlur(src, dst, ksize, sigma, sigma, gocv.BorderReflect101)
			}), nil
		},
	}
}

func planes(params filters.Params, format frames.Format) ([]bool, error) {
	sel := make([]bool, format.NumPlanes())
	idx, ok, err := params.Ints("planes")
	if err != nil {
		return nil, err
	}
	for i := range sel {
		sel[i] = !ok
	}
	for _, i := range idx {
		if i < 0 || i >= len(sel) {
			return nil, errors.Errorf("parameter \"planes\": plane %d out of range [0, %d)", i, len(sel))
		}
		sel[i] = true
	}
	return sel, nil
}

// apply runs op over every selected plane of every frame.
func apply(in *frames.Clip, sel []bool, op func(src gocv.Mat, dst *gocv.Mat)) *frames.Clip {
	return in.Transform(in.Format, in.Width, in.Height, func(f *frames.Frame) (*frames.Frame, error) {
		out := make([]*frames.Plane, len(f.Planes))
		for i, p := range f.Planes {
			if !sel[i] {
				out[i] = p
				continue
			}
			dst, err := filterPlane(f.Format, p, op)
			if err != nil {
				return nil, errors.Wrapf(err, "plane %d", i)
			}
			out[i] = dst
		}
		return f.WithPlanes(out), nil
	})
}

func filterPlane(format frames.Format, p *frames.Plane, op func(src gocv.Mat, dst *gocv.Mat)) (*frames.Plane, error) {
	src := gocv.NewMatWithSize(p.Height, p.Width, gocv.MatTypeCV32F)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	buf, err := src.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "map source mat")
	}
	copy(buf, p.Pix)

	op(src, &dst)
	if dst.Empty() {
		return nil, errors.New("opencv produced an empty mat")
	}

	res, err := dst.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "map result mat")
	}
	plane := frames.NewPlane(p.Width, p.Height)
	for i, v := range res[:len(plane.Pix)] {
		plane.Pix[i] = format.Quantize(v)
	}
	return plane, nil
}
