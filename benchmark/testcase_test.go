package benchmark

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/nvr-ai/filterbench/filters"
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// passthrough returns its input untouched. It rejects radius values above
// maxRadius so tests can exercise validation.
func passthrough(maxRadius int, names ...string) filters.Benchmarkable {
	return filters.Func{
		Sig: filters.Signature{Params: names},
		Fn: func(in *frames.Clip, p filters.Params) (*frames.Clip, error) {
			radius, err := p.Int("radius", 0)
			if err != nil {
				return nil, err
			}
			if radius > maxRadius {
				return nil, errors.Errorf("radius %d too large", radius)
			}
			return in, nil
		},
	}
}

func newGenerator(console io.Writer) *Generator {
	return &Generator{Logger: discardLogger, Console: console}
}

func TestGenerate_DefaultGrid(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("blur", "blur").
		WithFormats(frames.YUV420P8).
		WithResolution(64, 64).
		WithParam("radius", []any{1, 2}).
		WithParam("passes", []any{1}).
		Build()
	fns := []Function{{Label: "blur", Filter: passthrough(10, "radius", "passes")}}

	cases, err := newGenerator(nil).Generate(fns, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	assert.Equal(t, filters.Params{"passes": 1, "radius": 1}, cases[0].Params)
	assert.Equal(t, filters.Params{"passes": 1, "radius": 2}, cases[1].Params)
	assert.Equal(t, frames.YUV420P8, cases[0].Format)
	assert.Equal(t, CaseID{Label: "blur", Params: `{"passes":1,"radius":1}`}, cases[0].ID())
}

func TestGenerate_FirstKeyOutermost(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("f", "f").
		WithFormats(frames.Gray8).
		WithResolution(16, 16).
		WithParam("b", []any{1, 2}).
		WithParam("a", []any{"x", "y"}).
		Build()
	fns := []Function{{Label: "f", Filter: passthrough(0, "a", "b")}}

	cases, err := newGenerator(nil).Generate(fns, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 4)

	var got [][2]any
	for _, tc := range cases {
		got = append(got, [2]any{tc.Params["a"], tc.Params["b"]})
	}
	assert.Equal(t, [][2]any{{"x", 1}, {"x", 2}, {"y", 1}, {"y", 2}}, got)
}

func TestGenerate_Overrides(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("blur", "blur").
		WithFunction("plain", "plain").
		WithFormats(frames.YUV420P8, frames.YUV444P8, frames.Gray8).
		WithResolution(64, 64).
		WithParam("radius", 1).
		WithOverride("blur", "YUV420P8", map[string]any{"radius": []any{5}}).
		WithOverride("blur", "YUV", map[string]any{"radius": []any{7}}).
		Build()
	fns := []Function{
		{Label: "blur", Filter: passthrough(10, "radius")},
		{Label: "plain", Filter: passthrough(10, "radius")},
	}

	cases, err := newGenerator(nil).Generate(fns, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 6)

	radius := map[string]any{}
	for _, tc := range cases {
		radius[tc.Label+"/"+tc.Format.String()] = tc.Params["radius"]
	}
	assert.Equal(t, map[string]any{
		"blur/YUV420P8":  5,
		"blur/YUV444P8":  7,
		"blur/GRAY8":     1,
		"plain/YUV420P8": 1,
		"plain/YUV444P8": 1,
		"plain/GRAY8":    1,
	}, radius)
}

func TestGenerate_EmptyOverrideFallsBack(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("blur", "blur").
		WithFormats(frames.YUV420P8).
		WithResolution(64, 64).
		WithParam("radius", []any{1, 2}).
		WithOverride("blur", "YUV420P8", map[string]any{}).
		WithOverride("blur", "YUV", map[string]any{"radius": 3}).
		Build()
	fns := []Function{{Label: "blur", Filter: passthrough(10, "radius")}}

	cases, err := newGenerator(nil).Generate(fns, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, 3, cases[0].Params["radius"])
}

func TestGenerate_MalformedOverride(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("blur", "blur").
		WithFormats(frames.Gray8).
		WithResolution(16, 16).
		WithOverride("blur", "CMYK", map[string]any{"radius": 1}).
		Build()
	fns := []Function{{Label: "blur", Filter: passthrough(10, "radius")}}

	_, err := newGenerator(nil).Generate(fns, cfg)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestGenerate_SkipsInvalidCombinations(t *testing.T) {
	var console bytes.Buffer
	cfg := NewConfigBuilder().
		WithFunction("blur", "blur").
		WithFormats(frames.Gray8).
		WithResolution(16, 16).
		WithParam("radius", []any{1, 2, 3}).
		Build()
	fns := []Function{{Label: "blur", Filter: passthrough(2, "radius")}}

	cases, err := newGenerator(&console).Generate(fns, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Contains(t, console.String(), "Skipping blur(radius=3)")
}

func TestGenerate_UnknownParameterIsSkipped(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("blur", "blur").
		WithFormats(frames.Gray8).
		WithResolution(16, 16).
		WithParam("strength", 1).
		Build()
	fns := []Function{{Label: "blur", Filter: passthrough(2, "radius")}}

	cases, err := newGenerator(nil).Generate(fns, cfg)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestGenerate_ListParamsAndMappings(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("f", "f").
		WithFormats(frames.YUV444P8).
		WithResolution(16, 16).
		WithParam("planes", []any{0, 2}).
		WithParam("opts", map[string]any{"k": 1}).
		Build()
	fns := []Function{{Label: "f", Filter: passthrough(0, "planes", "opts")}}

	cases, err := newGenerator(nil).Generate(fns, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, []any{0, 2}, cases[0].Params["planes"])
	assert.Equal(t, map[string]any{"k": 1}, cases[0].Params["opts"])
}

func TestGenerate_TypedSliceGrid(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("blur", "blur").
		WithFormats(frames.Gray8).
		WithResolution(16, 16).
		WithParam("radius", []int{1, 2}).
		WithParam("edge", [1]string{"clamp"}).
		WithParam("planes", []int{0}).
		Build()
	fns := []Function{{Label: "blur", Filter: passthrough(10, "radius", "edge", "planes")}}

	cases, err := newGenerator(nil).Generate(fns, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, filters.Params{"edge": "clamp", "planes": []int{0}, "radius": 1}, cases[0].Params)
	assert.Equal(t, filters.Params{"edge": "clamp", "planes": []int{0}, "radius": 2}, cases[1].Params)
}

func TestGenerate_RejectsAmbiguousLabel(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("x@{y}", "f").
		WithFormats(frames.Gray8).
		WithResolution(16, 16).
		Build()
	fns := []Function{{Label: "x@{y}", Filter: passthrough(0)}}

	_, err := newGenerator(nil).Generate(fns, cfg)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestGenerate_NoEnumerableKeys(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("f", "f").
		WithFormats(frames.Gray8).
		WithResolution(16, 16).
		Build()
	fns := []Function{{Label: "f", Filter: passthrough(0)}}

	cases, err := newGenerator(nil).Generate(fns, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Empty(t, cases[0].Params)
	assert.Equal(t, "f", cases[0].ID().String())
}

func TestGenerate_FormatParamSteersValidation(t *testing.T) {
	var seen []frames.Format
	filter := filters.Func{
		Sig: filters.Signature{Params: []string{"format"}},
		Fn: func(in *frames.Clip, _ filters.Params) (*frames.Clip, error) {
			seen = append(seen, in.Format)
			return in, nil
		},
	}
	cfg := NewConfigBuilder().
		WithFunction("convert", "convert").
		WithFormats(frames.RGB24).
		WithResolution(16, 16).
		WithParam("format", []any{"GRAY8", "BOGUS"}).
		Build()

	cases, err := newGenerator(nil).Generate([]Function{{Label: "convert", Filter: filter}}, cfg)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "GRAY8", cases[0].Params["format"])
	assert.Equal(t, frames.RGB24, cases[0].Format)
	assert.Equal(t, []frames.Format{frames.Gray8}, seen)
}

func TestCaseID_RoundTrip(t *testing.T) {
	for _, id := range []CaseID{
		{Label: "blur"},
		{Label: "blur", Params: `{"radius":2}`},
		{Label: "a@b", Params: `{"planes":[0,1]}`},
	} {
		parsed, err := ParseCaseID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}

	for _, bad := range []string{"", "@{x}", "blur@{x"} {
		_, err := ParseCaseID(bad)
		assert.True(t, errors.Is(err, ErrDecode), bad)
	}
}
