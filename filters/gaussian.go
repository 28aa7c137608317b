package filters

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/filterbench/frames"
)

var gaussianSignature = Signature{
	Params: []string{"sigma", "planes"},
}

// clampSigma keeps sigma in the range where a blur is both visible and cheap
// enough to benchmark.
func clampSigma(sigma float64) float64 {
	if sigma <= 0 {
		return 0.1
	}
	if sigma > 10.0 {
		return 10.0
	}
	return sigma
}

// GenerateGaussianKernel creates a normalized 1D Gaussian kernel of size
// 2*radius + 1.
//
// Arguments:
// - radius: The kernel radius.
// - sigma: Standard deviation of the Gaussian.
//
// Returns:
// - A kernel whose weights sum to 1.0.
func GenerateGaussianKernel(radius int, sigma float64) []float64 {
	size := 2*radius + 1
	kernel := make([]float64, size)

	// 1/(sqrt(2*pi)*sigma)
	factor := 1.0 / (math.Sqrt(2.0*math.Pi) * sigma)
	denom := 2.0 * sigma * sigma

	sum := 0.0
	for i := 0; i < size; i++ {
		x := float64(i - radius)
		kernel[i] = factor * math.Exp(-(x*x)/denom)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// generateGaussianKernel32 is GenerateGaussianKernel computed in float32.
func generateGaussianKernel32(radius int, sigma float32) []float32 {
	size := 2*radius + 1
	kernel := make([]float32, size)
	factor := 1 / (math32.Sqrt(2*math32.Pi) * sigma)
	denom := 2 * sigma * sigma

	var sum float32
	for i := 0; i < size; i++ {
		x := float32(i - radius)
		kernel[i] = factor * math32.Exp(-(x*x)/denom)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gaussianPlane applies the separable kernel horizontally then vertically,
// clamping at the borders and quantizing after each pass.
func gaussianPlane(format frames.Format, src *frames.Plane, kernel []float64) *frames.Plane {
	radius := len(kernel) / 2
	w, h := src.Width, src.Height
	mid := frames.NewPlane(w, h)
	dst := frames.NewPlane(w, h)

	Parallel(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := src.Row(y)
			out := mid.Row(y)
			for x := 0; x < w; x++ {
				var acc float64
				for i, weight := range kernel {
					acc += float64(row[MapCoord(x+i-radius, w, ClampEdgeMode)]) * weight
				}
				out[x] = format.Quantize(float32(acc))
			}
		}
	})
	Parallel(w, func(start, end int) {
		for x := start; x < end; x++ {
			for y := 0; y < h; y++ {
				var acc float64
				for i, weight := range kernel {
					acc += float64(mid.Pix[MapCoord(y+i-radius, h, ClampEdgeMode)*w+x]) * weight
				}
				dst.Pix[y*w+x] = format.Quantize(float32(acc))
			}
		}
	})
	return dst
}

func gaussianPlane32(format frames.Format, src *frames.Plane, kernel []float32) *frames.Plane {
	radius := len(kernel) / 2
	w, h := src.Width, src.Height
	mid := frames.NewPlane(w, h)
	dst := frames.NewPlane(w, h)

	Parallel(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := src.Row(y)
			out := mid.Row(y)
			for x := 0; x < w; x++ {
				var acc float32
				for i, weight := range kernel {
					acc += row[MapCoord(x+i-radius, w, ClampEdgeMode)] * weight
				}
				out[x] = format.Quantize(acc)
			}
		}
	})
	Parallel(w, func(start, end int) {
		for x := start; x < end; x++ {
			for y := 0; y < h; y++ {
				var acc float32
				for i, weight := range kernel {
					acc += mid.Pix[MapCoord(y+i-radius, h, ClampEdgeMode)*w+x] * weight
				}
				dst.Pix[y*w+x] = format.Quantize(acc)
			}
		}
	})
	return dst
}

// Gaussian blurs with a float64 kernel of radius ceil(3*sigma).
func Gaussian() Benchmarkable {
	return Func{
		Sig: gaussianSignature,
		Fn: func(in *frames.Clip, params Params) (*frames.Clip, error) {
			sigma, err := params.Float("sigma", 1.5)
			if err != nil {
				return nil, err
			}
			sel, err := selectPlanes(params, in.Format.NumPlanes())
			if err != nil {
				return nil, err
			}
			sigma = clampSigma(sigma)
			kernel := GenerateGaussianKernel(int(math.Ceil(sigma*3.0)), sigma)
			return mapPlanes(in, sel, func(format frames.Format, src *frames.Plane) *frames.Plane {
				return gaussianPlane(format, src, kernel)
			}), nil
		},
	}
}

// Gaussian32 is Gaussian with the kernel and accumulation in float32.
func Gaussian32() Benchmarkable {
	return Func{
		Sig: gaussianSignature,
		Fn: func(in *frames.Clip, params Params) (*frames.Clip, error) {
			sigma, err := params.Float("sigma", 1.5)
			if err != nil {
				return nil, err
			}
			sel, err := selectPlanes(params, in.Format.NumPlanes())
			if err != nil {
				return nil, err
			}
			s := float32(clampSigma(sigma))
			kernel := generateGaussianKernel32(int(math32.Ceil(s*3)), s)
			return mapPlanes(in, sel, func(format frames.Format, src *frames.Plane) *frames.Plane {
				return gaussianPlane32(format, src, kernel)
			}), nil
		},
	}
}
