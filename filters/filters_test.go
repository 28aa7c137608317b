package filters

import (
	"context"
	"math"
	"testing"

	"github.com/nvr-ai/filterbench/frames"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(t testing.TB, format frames.Format, w, h int) *frames.Clip {
	t.Helper()
	clip, err := frames.BlankSource{Seed: 42}.CreateInput(format, w, h, 2)
	require.NoError(t, err)
	return clip
}

func firstFrame(t testing.TB, b Benchmarkable, in *frames.Clip, params Params) *frames.Frame {
	t.Helper()
	out, err := b.Invoke(in, params)
	require.NoError(t, err)
	f, err := out.Frame(0)
	require.NoError(t, err)
	return f
}

func maxDiff(a, b []float32) float64 {
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(float64(a[i]-b[i])))
	}
	return d
}

func TestParams_Canonical(t *testing.T) {
	p := Params{"vradius": 2, "hradius": 1, "planes": []any{0, 1}}
	s, err := p.Canonical()
	require.NoError(t, err)
	assert.Equal(t, `{"hradius":1,"planes":[0,1],"vradius":2}`, s)
	assert.Equal(t, "hradius=1, planes=[0 1], vradius=2", p.String())

	empty, err := Params{}.Canonical()
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestParams_Accessors(t *testing.T) {
	p := Params{"a": 3, "b": 2.0, "c": 1.5, "d": "mirror", "e": []any{0, 2.0}}

	n, err := p.Int("a", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = p.Int("b", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = p.Int("c", 0)
	assert.Error(t, err)

	n, err = p.Int("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	f, err := p.Float("a", 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	s, err := p.Text("d", "")
	require.NoError(t, err)
	assert.Equal(t, "mirror", s)

	_, err = p.Text("a", "")
	assert.Error(t, err)

	ints, ok, err := p.Ints("e")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int{0, 2}, ints)
}

func TestSelectPlanes(t *testing.T) {
	sel, err := selectPlanes(Params{}, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true}, sel)

	sel, err = selectPlanes(Params{"planes": []any{0}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, sel)

	_, err = selectPlanes(Params{"planes": []any{3}}, 3)
	assert.Error(t, err)
}

func TestMapCoord(t *testing.T) {
	assert.Equal(t, 0, MapCoord(-2, 5, ClampEdgeMode))
	assert.Equal(t, 4, MapCoord(7, 5, ClampEdgeMode))
	assert.Equal(t, 1, MapCoord(-2, 5, MirrorEdgeMode))
	assert.Equal(t, 3, MapCoord(6, 5, MirrorEdgeMode))
	assert.Equal(t, 3, MapCoord(-2, 5, WrapEdgeMode))
	assert.Equal(t, 1, MapCoord(6, 5, WrapEdgeMode))
}

func TestParallel_CoversRange(t *testing.T) {
	defer frames.SetThreads(0)
	frames.SetThreads(4)

	seen := make([]int, 103)
	Parallel(len(seen), func(start, end int) {
		for i := start; i < end; i++ {
			seen[i]++
		}
	})
	for i, n := range seen {
		assert.Equal(t, 1, n, "index %d", i)
	}
}

func TestValidate(t *testing.T) {
	rgb := input(t, frames.RGB24, 16, 16)
	gray := input(t, frames.Gray8, 16, 16)

	assert.NoError(t, Validate(BoxBlur(), gray, Params{"hradius": 2}))
	assert.ErrorIs(t, Validate(BoxBlur(), gray, Params{"radius": 2}), ErrSignature)
	assert.ErrorIs(t, Validate(BoxBlur(), gray, Params{"hradius": -1}), ErrSignature)
	assert.ErrorIs(t, Validate(BoxBlur(), gray, Params{"edge": "bounce"}), ErrSignature)
	assert.ErrorIs(t, Validate(Resize(), gray, Params{"width": 8}), ErrSignature)
	assert.NoError(t, Validate(Grayscale(), rgb, Params{}))
	assert.ErrorIs(t, Validate(Grayscale(), gray, Params{}), ErrSignature)
}

func TestBoxBlur_VariantsAgree(t *testing.T) {
	in := input(t, frames.YUV420P8, 48, 32)
	for _, params := range []Params{
		{"hradius": 1},
		{"hradius": 3, "vradius": 2, "hpasses": 2, "edge": "mirror"},
		{"hradius": 2, "vradius": 0, "edge": "wrap", "planes": []any{0}},
	} {
		t.Run(params.String(), func(t *testing.T) {
			ref := firstFrame(t, BoxBlur(), in, params)
			rows := firstFrame(t, BoxBlurRows(), in, params)
			sliding := firstFrame(t, BoxBlurSliding(), in, params)
			for i := range ref.Planes {
				assert.Equal(t, ref.Planes[i].Pix, rows.Planes[i].Pix, "rows plane %d", i)
				assert.Equal(t, ref.Planes[i].Pix, sliding.Planes[i].Pix, "sliding plane %d", i)
			}
		})
	}
}

func TestBoxBlurPacked_MatchesReference(t *testing.T) {
	defer frames.SetThreads(0)
	frames.SetThreads(4)

	for _, format := range []frames.Format{frames.Gray8, frames.RGB24, frames.YUV444P8} {
		in := input(t, format, 40, 24)
		for _, params := range []Params{
			{"hradius": 1},
			{"hradius": 3, "vradius": 0, "edge": "mirror"},
			{"hradius": 0, "vradius": 2, "edge": "wrap"},
		} {
			ref := firstFrame(t, BoxBlur(), in, params)
			packed := firstFrame(t, BoxBlurPacked(), in, params)
			require.Len(t, packed.Planes, len(ref.Planes))
			for i := range ref.Planes {
				assert.LessOrEqual(t, maxDiff(ref.Planes[i].Pix, packed.Planes[i].Pix), 1.0, "%s %s plane %d", format, params, i)
			}
		}
	}
}

func TestBoxBlurPacked_RejectsFormats(t *testing.T) {
	for _, format := range []frames.Format{frames.YUV420P8, frames.RGBS, frames.Gray16} {
		_, err := BoxBlurPacked().Invoke(input(t, format, 16, 16), Params{})
		assert.Error(t, err, format.String())
	}
}

func TestBoxBlur_ConstantPlaneUnchanged(t *testing.T) {
	f, err := frames.NewFrame(frames.Gray8, 10, 10)
	require.NoError(t, err)
	for i := range f.Planes[0].Pix {
		f.Planes[0].Pix[i] = 77
	}
	in := frames.NewClip(frames.Gray8, 10, 10, 1, func(int) (*frames.Frame, error) { return f, nil })

	out := firstFrame(t, BoxBlurSliding(), in, Params{"hradius": 4, "vradius": 4})
	for _, v := range out.Planes[0].Pix {
		assert.Equal(t, float32(77), v)
	}
}

func TestBoxBlur_UnselectedPlaneShared(t *testing.T) {
	in := input(t, frames.RGB24, 16, 16)
	src, err := in.Frame(0)
	require.NoError(t, err)

	out := firstFrame(t, BoxBlur(), in, Params{"planes": []any{0}})
	assert.NotSame(t, src.Planes[0], out.Planes[0])
	assert.Same(t, src.Planes[1], out.Planes[1])
}

func TestGaussian_VariantsAgree(t *testing.T) {
	in := input(t, frames.Gray8, 40, 24)
	ref := firstFrame(t, Gaussian(), in, Params{"sigma": 1.2})
	f32 := firstFrame(t, Gaussian32(), in, Params{"sigma": 1.2})
	assert.LessOrEqual(t, maxDiff(ref.Planes[0].Pix, f32.Planes[0].Pix), 1.0)
}

func TestGenerateGaussianKernel(t *testing.T) {
	k := GenerateGaussianKernel(3, 1.0)
	require.Len(t, k, 7)
	var sum float64
	for _, v := range k {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, k[0], k[6])
	assert.Greater(t, k[3], k[2])
}

func TestGrayscale_VariantsAgree(t *testing.T) {
	in := input(t, frames.RGB24, 32, 16)
	loop := firstFrame(t, Grayscale(), in, nil)
	tens := firstFrame(t, GrayscaleTensor(), in, nil)

	assert.Equal(t, frames.Gray8, loop.Format)
	assert.Equal(t, frames.Gray8, tens.Format)
	require.Len(t, loop.Planes, 1)
	assert.LessOrEqual(t, maxDiff(loop.Planes[0].Pix, tens.Planes[0].Pix), 1.0)
}

func TestResize_Dimensions(t *testing.T) {
	in := input(t, frames.YUV420P8, 64, 32)
	for _, b := range []Benchmarkable{Resize(), ResizeNfnt()} {
		out, err := b.Invoke(in, Params{"width": 32, "height": 16, "kernel": "bilinear"})
		require.NoError(t, err)
		assert.Equal(t, 32, out.Width)
		assert.Equal(t, 16, out.Height)

		f, err := out.Frame(1)
		require.NoError(t, err)
		assert.Equal(t, 16, f.Planes[1].Width)
		assert.Equal(t, 8, f.Planes[1].Height)
	}

	_, err := Resize().Invoke(in, Params{"width": 31, "height": 16})
	assert.Error(t, err)
	_, err = Resize().Invoke(in, Params{"width": 32, "height": 16, "kernel": "box"})
	assert.Error(t, err)
}

func TestResize_ConstantPlaneStaysConstant(t *testing.T) {
	f, err := frames.NewFrame(frames.Gray8, 20, 20)
	require.NoError(t, err)
	for i := range f.Planes[0].Pix {
		f.Planes[0].Pix[i] = 128
	}
	in := frames.NewClip(frames.Gray8, 20, 20, 1, func(int) (*frames.Frame, error) { return f, nil })

	for name := range kernels {
		out := firstFrame(t, Resize(), in, Params{"width": 13, "height": 30, "kernel": name})
		for _, v := range out.Planes[0].Pix {
			assert.Equal(t, float32(128), v, name)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := Builtin()
	names := r.Names()
	assert.Contains(t, names, "boxblur")
	assert.Contains(t, names, "resize.nfnt")
	assert.IsIncreasing(t, names)

	b, err := r.Lookup("gaussian")
	require.NoError(t, err)
	assert.NotNil(t, b)

	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownFilter)

	assert.Error(t, r.Register("boxblur", BoxBlur()))
}

func TestFilters_RenderEndToEnd(t *testing.T) {
	in := input(t, frames.RGB24, 64, 48)
	r := Builtin()
	for _, name := range r.Names() {
		b, err := r.Lookup(name)
		require.NoError(t, err)
		params := Params{}
		if b.Signature().Accepts("width") {
			params = Params{"width": 32, "height": 24}
		}
		out, err := b.Invoke(in, params)
		require.NoError(t, err, name)
		assert.NoError(t, frames.Renderer{}.Realize(context.Background(), out), name)
	}
}

func BenchmarkBoxBlur(b *testing.B) {
	in := input(b, frames.Gray8, 640, 360)
	for _, v := range []struct {
		name string
		f    Benchmarkable
	}{
		{"naive", BoxBlur()},
		{"rows", BoxBlurRows()},
		{"sliding", BoxBlurSliding()},
		{"packed", BoxBlurPacked()},
	} {
		b.Run(v.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				out, err := v.f.Invoke(in, Params{"hradius": 4})
				if err != nil {
					b.Fatal(err)
				}
				if _, err := out.Frame(0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
