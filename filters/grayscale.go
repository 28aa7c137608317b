package filters

import (
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ITU-R BT.709 luma coefficients.
const (
	redWeight   = 0.2126
	greenWeight = 0.7152
	blueWeight  = 0.0722
)

var grayscaleSignature = Signature{
	Families: []frames.ColorFamily{frames.FamilyRGB},
}

// grayTarget returns the gray format matching the sample type of an RGB input.
func grayTarget(in *frames.Clip) (frames.Format, error) {
	if in.Format.Family() != frames.FamilyRGB {
		return frames.FormatUndefined, errors.Errorf("grayscale: input must be RGB, got %s", in.Format)
	}
	out, ok := in.Format.Gray()
	if !ok {
		return frames.FormatUndefined, errors.Errorf("grayscale: no gray format for %s", in.Format)
	}
	return out, nil
}

// Grayscale converts RGB to luma with a per-row loop.
func Grayscale() Benchmarkable {
	return Func{
		Sig: grayscaleSignature,
		Fn: func(in *frames.Clip, _ Params) (*frames.Clip, error) {
			target, err := grayTarget(in)
			if err != nil {
				return nil, err
			}
			return in.Transform(target, in.Width, in.Height, func(f *frames.Frame) (*frames.Frame, error) {
				out, err := frames.NewFrame(target, f.Width, f.Height)
				if err != nil {
					return nil, err
				}
				r, g, b := f.Planes[0], f.Planes[1], f.Planes[2]
				dst := out.Planes[0]
				Parallel(f.Height, func(start, end int) {
					for i := start * f.Width; i < end*f.Width; i++ {
						luma := r.Pix[i]*redWeight + g.Pix[i]*greenWeight + b.Pix[i]*blueWeight
						dst.Pix[i] = target.Quantize(luma)
					}
				})
				return out, nil
			}), nil
		},
	}
}

// GrayscaleTensor converts RGB to luma as one n×3 by 3 matrix-vector product.
func GrayscaleTensor() Benchmarkable {
	return Func{
		Sig: grayscaleSignature,
		Fn: func(in *frames.Clip, _ Params) (*frames.Clip, error) {
			target, err := grayTarget(in)
			if err != nil {
				return nil, err
			}
			return in.Transform(target, in.Width, in.Height, func(f *frames.Frame) (*frames.Frame, error) {
				n := f.Width * f.Height
				pixels := make([]float32, n*3)
				for i := 0; i < n; i++ {
					pixels[i*3] = f.Planes[0].Pix[i]
					pixels[i*3+1] = f.Planes[1].Pix[i]
					pixels[i*3+2] = f.Planes[2].Pix[i]
				}
				m := tensor.New(tensor.WithShape(n, 3), tensor.WithBacking(pixels))
				v := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{redWeight, greenWeight, blueWeight}))

				res, err := tensor.MatVecMul(m, v)
				if err != nil {
					return nil, errors.Wrap(err, "grayscale: matvecmul")
				}
				luma, ok := res.Data().([]float32)
				if !ok {
					return nil, errors.Errorf("grayscale: unexpected tensor data %T", res.Data())
				}

				out, err := frames.NewFrame(target, f.Width, f.Height)
				if err != nil {
					return nil, err
				}
				for i, l := range luma {
					out.Planes[0].Pix[i] = target.Quantize(l)
				}
				return out, nil
			}), nil
		},
	}
}
