package benchmark

import (
	"os"

	"github.com/nvr-ai/filterbench/filters"
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FunctionRef names one function under test: the label it is reported under
// and the registry name of the filter implementing it.
type FunctionRef struct {
	Label  string `json:"label"  yaml:"label"`
	Filter string `json:"filter" yaml:"filter"`
}

// Config describes a benchmark run.
type Config struct {
	// Functions lists the functions under test in report order.
	Functions []FunctionRef `json:"functions" yaml:"functions"`
	// Formats lists the pixel formats to test.
	Formats []frames.Format `json:"formats" yaml:"formats"`
	// Resolutions lists the frame sizes to test ("1920x1080" or "1080p").
	Resolutions []frames.Resolution `json:"resolutions" yaml:"resolutions"`
	// Length is the number of frames per pass.
	Length int `json:"length" yaml:"length"`
	// DynamicLength scales Length down for larger resolutions.
	DynamicLength bool `json:"dynamicLength" yaml:"dynamicLength"`
	// Passes is the number of measured passes per cell.
	Passes int `json:"passes" yaml:"passes"`
	// Threads is the thread-count sweep. Empty leaves the runtime default.
	Threads []int `json:"threads" yaml:"threads"`
	// Params is the default parameter grid.
	Params map[string]any `json:"params" yaml:"params"`
	// Tests holds per-function overrides keyed by label, then by format or
	// colour family name.
	Tests map[string]map[string]map[string]any `json:"tests" yaml:"tests"`
	// ListParams names parameters passed literally instead of enumerated.
	ListParams []string `json:"listParams" yaml:"listParams"`
	// Seed drives the synthetic input pattern.
	Seed uint32 `json:"seed" yaml:"seed"`
}

// DefaultListParams are passed literally unless configured otherwise.
var DefaultListParams = []string{"planes"}

// DefaultConfig returns a configuration with the defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		Formats:     []frames.Format{frames.YUV420P8},
		Resolutions: []frames.Resolution{frames.Res(1920, 1080)},
		Length:      100,
		Passes:      3,
		Params:      map[string]any{},
		ListParams:  append([]string(nil), DefaultListParams...),
	}
}

// Validate checks the run shape.
func (c *Config) Validate() error {
	if len(c.Functions) == 0 {
		return errors.Wrap(ErrConfiguration, "no functions configured")
	}
	seen := make(map[string]bool, len(c.Functions))
	for _, fn := range c.Functions {
		if fn.Label == "" || fn.Filter == "" {
			return errors.Wrapf(ErrConfiguration, "function %+v: label and filter are required", fn)
		}
		if err := checkLabel(fn.Label); err != nil {
			return err
		}
		if seen[fn.Label] {
			return errors.Wrapf(ErrConfiguration, "duplicate function label %q", fn.Label)
		}
		seen[fn.Label] = true
	}
	if len(c.Formats) == 0 {
		return errors.Wrap(ErrConfiguration, "no formats configured")
	}
	for label := range c.Tests {
		if !seen[label] {
			return errors.Wrapf(ErrConfiguration, "tests: unknown function label %q", label)
		}
	}
	return c.RunOptions().Validate()
}

// RunOptions extracts the engine options of the configuration.
func (c *Config) RunOptions() RunOptions {
	return RunOptions{
		Resolutions:   c.Resolutions,
		Threads:       c.Threads,
		Passes:        c.Passes,
		Length:        c.Length,
		DynamicLength: c.DynamicLength,
	}
}

// Resolve looks up every configured function in reg.
func (c *Config) Resolve(reg *filters.Registry) ([]Function, error) {
	out := make([]Function, 0, len(c.Functions))
	for _, ref := range c.Functions {
		b, err := reg.Lookup(ref.Filter)
		if err != nil {
			return nil, errors.Wrapf(ErrConfiguration, "function %q: %v", ref.Label, err)
		}
		out = append(out, Function{Label: ref.Label, Filter: b})
	}
	return out, nil
}

// LoadConfig reads a YAML configuration on top of DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", filename)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "parse config %s: %v", filename, err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration as YAML.
func (c *Config) SaveConfig(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrapf(err, "write config %s", filename)
	}
	return nil
}

// ConfigBuilder builds a Config with a fluent API.
type ConfigBuilder struct {
	cfg *Config
}

// NewConfigBuilder starts from DefaultConfig without formats or resolutions.
func NewConfigBuilder() *ConfigBuilder {
	cfg := DefaultConfig()
	cfg.Formats = nil
	cfg.Resolutions = nil
	return &ConfigBuilder{cfg: cfg}
}

// WithFunction adds a function under test.
func (b *ConfigBuilder) WithFunction(label, filter string) *ConfigBuilder {
	b.cfg.Functions = append(b.cfg.Functions, FunctionRef{Label: label, Filter: filter})
	return b
}

// WithFormats adds formats.
func (b *ConfigBuilder) WithFormats(formats ...frames.Format) *ConfigBuilder {
	b.cfg.Formats = append(b.cfg.Formats, formats...)
	return b
}

// WithResolution adds a resolution.
func (b *ConfigBuilder) WithResolution(width, height int) *ConfigBuilder {
	b.cfg.Resolutions = append(b.cfg.Resolutions, frames.Res(width, height))
	return b
}

// WithLength sets the frame count per pass.
func (b *ConfigBuilder) WithLength(length int, dynamic bool) *ConfigBuilder {
	b.cfg.Length = length
	b.cfg.DynamicLength = dynamic
	return b
}

// WithPasses sets the number of passes per cell.
func (b *ConfigBuilder) WithPasses(passes int) *ConfigBuilder {
	b.cfg.Passes = passes
	return b
}

// WithThreads sets the thread-count sweep.
func (b *ConfigBuilder) WithThreads(threads ...int) *ConfigBuilder {
	b.cfg.Threads = threads
	return b
}

// WithParam sets one entry of the default grid.
func (b *ConfigBuilder) WithParam(name string, value any) *ConfigBuilder {
	b.cfg.Params[name] = value
	return b
}

// WithOverride sets the grid used for label on a format or colour family.
func (b *ConfigBuilder) WithOverride(label, selector string, params map[string]any) *ConfigBuilder {
	if b.cfg.Tests == nil {
		b.cfg.Tests = make(map[string]map[string]map[string]any)
	}
	if b.cfg.Tests[label] == nil {
		b.cfg.Tests[label] = make(map[string]map[string]any)
	}
	b.cfg.Tests[label][selector] = params
	return b
}

// WithListParams replaces the names passed literally.
func (b *ConfigBuilder) WithListParams(names ...string) *ConfigBuilder {
	b.cfg.ListParams = names
	return b
}

// Build returns the configured Config.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}
