// Package filters contains the interchangeable frame filters measured by the
// benchmark harness, the parameter model they share, and a name registry.
//
// Every filter is lazy: Invoke checks its arguments and returns a derived
// clip immediately, while the pixel work happens when the clip is realized.
package filters

import (
	"slices"

	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
)

// ErrSignature is returned when arguments do not fit a filter signature.
var ErrSignature = errors.New("signature mismatch")

// Benchmarkable is a function under test.
type Benchmarkable interface {
	// Invoke applies the filter to in and returns the derived clip.
	Invoke(in *frames.Clip, params Params) (*frames.Clip, error)
	// Signature describes the accepted parameters.
	Signature() Signature
}

// Signature describes what a filter accepts.
type Signature struct {
	// Params lists every accepted parameter name.
	Params []string
	// Required lists the parameters that must be supplied.
	Required []string
	// Families restricts the input colour families. Empty accepts all.
	Families []frames.ColorFamily
}

// Accepts reports whether name is an accepted parameter.
func (s Signature) Accepts(name string) bool {
	return slices.Contains(s.Params, name)
}

// Validate checks that params bind to the signature of b for input in, then
// invokes b without realizing the result so argument errors surface early.
//
// Arguments:
// - b: The filter to validate against.
// - in: A representative input clip.
// - params: The parameter combination.
//
// Returns:
// - nil when the combination is usable, otherwise an error wrapping ErrSignature.
func Validate(b Benchmarkable, in *frames.Clip, params Params) error {
	sig := b.Signature()

	for _, name := range params.Names() {
		if !sig.Accepts(name) {
			return errors.Wrapf(ErrSignature, "unexpected parameter %q", name)
		}
	}
	for _, name := range sig.Required {
		if _, ok := params[name]; !ok {
			return errors.Wrapf(ErrSignature, "missing required parameter %q", name)
		}
	}
	if len(sig.Families) > 0 && !slices.Contains(sig.Families, in.Format.Family()) {
		return errors.Wrapf(ErrSignature, "input format %s not supported", in.Format)
	}
	if _, err := b.Invoke(in, params); err != nil {
		return errors.Wrap(ErrSignature, err.Error())
	}
	return nil
}

// Func adapts a plain function into a Benchmarkable.
type Func struct {
	Sig Signature
	Fn  func(in *frames.Clip, params Params) (*frames.Clip, error)
}

// Invoke implements Benchmarkable.
func (f Func) Invoke(in *frames.Clip, params Params) (*frames.Clip, error) {
	return f.Fn(in, params)
}

// Signature implements Benchmarkable.
func (f Func) Signature() Signature {
	return f.Sig
}
