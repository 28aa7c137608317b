package benchmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/filterbench/filters"
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
functions:
  - label: box
    filter: boxblur
  - label: box-sliding
    filter: boxblur.sliding
formats: [YUV420P8, GRAY8]
resolutions: ["720p", "640x480"]
length: 20
dynamicLength: true
passes: 2
threads: [1, 2]
params:
  hradius: [1, 2]
tests:
  box:
    GRAY:
      hradius: [3]
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []FunctionRef{{Label: "box", Filter: "boxblur"}, {Label: "box-sliding", Filter: "boxblur.sliding"}}, cfg.Functions)
	assert.Equal(t, []frames.Format{frames.YUV420P8, frames.Gray8}, cfg.Formats)
	assert.Equal(t, []frames.Resolution{frames.Res(1280, 720), frames.Res(640, 480)}, cfg.Resolutions)
	assert.Equal(t, 20, cfg.Length)
	assert.True(t, cfg.DynamicLength)
	assert.Equal(t, 2, cfg.Passes)
	assert.Equal(t, []int{1, 2}, cfg.Threads)
	assert.Equal(t, []any{1, 2}, cfg.Params["hradius"])
	assert.Equal(t, []any{3}, cfg.Tests["box"]["GRAY"]["hradius"])
	assert.Equal(t, DefaultListParams, cfg.ListParams)

	fns, err := cfg.Resolve(filters.Builtin())
	require.NoError(t, err)
	cases, err := (&Generator{Logger: discardLogger}).Generate(fns, cfg)
	require.NoError(t, err)
	// box: 2 on YUV420P8 + 1 on GRAY8; box-sliding: 2 per format.
	assert.Len(t, cases, 7)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("formats: [CMYK]\n"), 0o644))
	_, err = LoadConfig(path)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestConfig_SaveLoad(t *testing.T) {
	cfg := NewConfigBuilder().
		WithFunction("g", "gaussian").
		WithFormats(frames.RGB24).
		WithResolution(320, 240).
		WithLength(5, false).
		WithPasses(1).
		WithThreads(1, 4).
		WithParam("sigma", []any{1.5, 2.5}).
		Build()

	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, cfg.SaveConfig(path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Functions, loaded.Functions)
	assert.Equal(t, cfg.Formats, loaded.Formats)
	assert.Equal(t, cfg.Resolutions, loaded.Resolutions)
	assert.Equal(t, cfg.Threads, loaded.Threads)
	assert.Equal(t, cfg.Params, loaded.Params)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *ConfigBuilder {
		return NewConfigBuilder().WithFunction("a", "boxblur").WithFormats(frames.Gray8).WithResolution(16, 16)
	}
	require.NoError(t, valid().Build().Validate())

	for name, cfg := range map[string]*Config{
		"no functions":   NewConfigBuilder().WithFormats(frames.Gray8).WithResolution(16, 16).Build(),
		"duplicate":      valid().WithFunction("a", "gaussian").Build(),
		"case id label":  valid().WithFunction("x@{y}", "gaussian").Build(),
		"no formats":     NewConfigBuilder().WithFunction("a", "boxblur").WithResolution(16, 16).Build(),
		"no resolutions": NewConfigBuilder().WithFunction("a", "boxblur").WithFormats(frames.Gray8).Build(),
		"passes":         valid().WithPasses(0).Build(),
		"threads":        valid().WithThreads(-1).Build(),
		"unknown label":  valid().WithOverride("b", "GRAY", map[string]any{}).Build(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
		})
	}
}

func TestConfig_ResolveUnknownFilter(t *testing.T) {
	cfg := NewConfigBuilder().WithFunction("a", "sharpen").Build()
	_, err := cfg.Resolve(filters.Builtin())
	assert.True(t, errors.Is(err, ErrConfiguration))
}
