package benchmark

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/nvr-ai/filterbench/filters"
	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
)

// dummySize is the width and height of the input used for validation.
const dummySize = 16

// Function is a labelled function under test.
type Function struct {
	Label  string
	Filter filters.Benchmarkable
}

// CaseID identifies a test case in results: its label and the canonical JSON
// of its parameters.
type CaseID struct {
	Label  string
	Params string
}

// String returns "label", or "label@{params}" when there are parameters.
func (id CaseID) String() string {
	if id.Params == "" {
		return id.Label
	}
	return id.Label + "@" + id.Params
}

// checkLabel rejects labels that would not survive CaseID.String and
// ParseCaseID.
func checkLabel(label string) error {
	if strings.Contains(label, "@{") {
		return errors.Wrapf(ErrConfiguration, "function label %q must not contain \"@{\"", label)
	}
	return nil
}

// ParseCaseID parses the form produced by CaseID.String.
func ParseCaseID(s string) (CaseID, error) {
	if s == "" {
		return CaseID{}, errors.Wrap(ErrDecode, "empty case id")
	}
	label, params, ok := strings.Cut(s, "@{")
	if !ok {
		return CaseID{Label: s}, nil
	}
	if label == "" || !strings.HasSuffix(params, "}") {
		return CaseID{}, errors.Wrapf(ErrDecode, "malformed case id %q", s)
	}
	return CaseID{Label: label, Params: "{" + params}, nil
}

// TestCase is one (function, format, parameter combination) to measure.
type TestCase struct {
	Label  string
	Filter filters.Benchmarkable
	Params filters.Params
	Format frames.Format
}

// ID returns the identity of the case in results.
func (tc TestCase) ID() CaseID {
	canonical, err := tc.Params.Canonical()
	if err != nil {
		// Not JSON encodable; fall back to the display form.
		canonical = "{" + tc.Params.String() + "}"
	}
	return CaseID{Label: tc.Label, Params: canonical}
}

// String describes the case for logs and progress output.
func (tc TestCase) String() string {
	return fmt.Sprintf("%s(%s) %s", tc.Label, tc.Params, tc.Format)
}

// Generator expands a Config into validated test cases.
type Generator struct {
	// Source builds the dummy inputs used for validation.
	Source frames.Source
	// Logger receives warnings and skipped cases.
	Logger *slog.Logger
	// Console receives a line per skipped case.
	Console io.Writer
}

// Generate expands every (function, format) pair of cfg into test cases. A
// combination rejected by the filter is logged, echoed to the console and
// skipped; only a malformed override table fails the whole generation.
//
// Arguments:
// - fns: The functions under test, in report order.
// - cfg: The configuration holding formats, grids and overrides.
//
// Returns:
// - The validated test cases, grouped by function then format.
func (g *Generator) Generate(fns []Function, cfg *Config) ([]TestCase, error) {
	log := g.Logger
	if log == nil {
		log = slog.Default()
	}
	console := g.Console
	if console == nil {
		console = io.Discard
	}
	src := g.Source
	if src == nil {
		src = frames.BlankSource{Seed: cfg.Seed}
	}
	length := max(cfg.Length, 1)
	listParams := cfg.ListParams
	if listParams == nil {
		listParams = DefaultListParams
	}

	var cases []TestCase
	for _, fn := range fns {
		if err := checkLabel(fn.Label); err != nil {
			return nil, err
		}
		for _, format := range cfg.Formats {
			grid, err := resolveGrid(cfg, fn.Label, format)
			if err != nil {
				return nil, err
			}

			for _, params := range expand(grid, listParams, log) {
				tc := TestCase{Label: fn.Label, Filter: fn.Filter, Params: params, Format: format}
				if err := validateCase(src, tc, length); err != nil {
					log.Warn("skipping invalid test case",
						"function", fn.Label,
						"format", format.String(),
						"params", params.String(),
						"error", err)
					fmt.Fprintf(console, "Skipping %s: %v\n", tc, err)
					continue
				}
				cases = append(cases, tc)
			}
		}
	}
	return cases, nil
}

// resolveGrid picks the parameter grid for (label, format): an exact format
// override, else a colour family override, else the default grid. An empty
// override falls back to the default grid.
func resolveGrid(cfg *Config, label string, format frames.Format) (map[string]any, error) {
	overrides, ok := cfg.Tests[label]
	if !ok {
		return cfg.Params, nil
	}

	var exact, family map[string]any
	var hasExact, hasFamily bool
	for selector, grid := range overrides {
		if f, err := frames.ParseFormat(selector); err == nil {
			if f == format {
				exact, hasExact = grid, true
			}
			continue
		}
		if fam, err := frames.ParseColorFamily(selector); err == nil {
			if fam == format.Family() {
				family, hasFamily = grid, true
			}
			continue
		}
		return nil, errors.Wrapf(ErrConfiguration, "tests[%q]: %q is neither a format nor a colour family", label, selector)
	}

	switch {
	case hasExact && len(exact) > 0:
		return exact, nil
	case hasFamily && len(family) > 0:
		return family, nil
	default:
		return cfg.Params, nil
	}
}

// expand normalizes grid and returns the cartesian product of its
// enumerable entries, in sorted key order with the first key outermost.
// Names in listParams are copied literally into every combination.
func expand(grid map[string]any, listParams []string, log *slog.Logger) []filters.Params {
	literal := filters.Params{}
	var (
		keys    []string
		domains = map[string][]any{}
	)
	for name, value := range grid {
		if slices.Contains(listParams, name) {
			literal[name] = value
			continue
		}
		if m, ok := value.(map[string]any); ok {
			log.Warn("mapping parameter is passed as a single value", "param", name)
			domains[name] = []any{m}
		} else if options, ok := sequence(value); ok {
			if len(options) == 0 {
				log.Warn("parameter has no options, no combination will be generated", "param", name)
			}
			domains[name] = options
		} else {
			domains[name] = []any{value}
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)

	combos := []filters.Params{literal.Clone()}
	for _, key := range keys {
		next := make([]filters.Params, 0, len(combos)*len(domains[key]))
		for _, combo := range combos {
			for _, option := range domains[key] {
				p := combo.Clone()
				p[key] = option
				next = append(next, p)
			}
		}
		combos = next
	}
	return combos
}

// sequence returns the elements of any slice or array value, so typed
// grids such as []int enumerate like the []any lists decoded from YAML.
func sequence(value any) ([]any, bool) {
	if v, ok := value.([]any); ok {
		return v, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// validateCase binds tc to its filter using a small dummy input of the
// target format, or of the format named by a "format" parameter.
func validateCase(src frames.Source, tc TestCase, length int) error {
	format := tc.Format
	if raw, ok := tc.Params["format"]; ok {
		name, isText := raw.(string)
		if !isText {
			return errors.Wrapf(ErrValidation, "parameter \"format\": expected a format name, got %T", raw)
		}
		f, err := frames.ParseFormat(name)
		if err != nil {
			return errors.Wrapf(ErrValidation, "parameter \"format\": %v", err)
		}
		format = f
	}

	dummy, err := src.CreateInput(format, dummySize, dummySize, length)
	if err != nil {
		return errors.Wrapf(ErrValidation, "dummy input: %v", err)
	}
	if err := filters.Validate(tc.Filter, dummy, tc.Params); err != nil {
		return errors.Wrap(ErrValidation, err.Error())
	}
	return nil
}
