package frames

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by a Source that cannot build the requested input.
var ErrUnsupported = errors.New("unsupported input")

// Source builds synthetic input clips.
type Source interface {
	// CreateInput returns a clip of the given shape. It fails when the
	// format/resolution combination is unsupported.
	CreateInput(format Format, width, height, length int) (*Clip, error)
}

// BlankSource produces clips made of one deterministic pattern frame repeated
// length times. The pattern mixes a gradient with noise so filters cannot
// short-circuit on flat input.
type BlankSource struct {
	// Seed drives the noise; zero selects a fixed default.
	Seed uint32
}

// CreateInput implements Source.
func (s BlankSource) CreateInput(format Format, width, height, length int) (*Clip, error) {
	if !format.Valid() {
		return nil, errors.Wrapf(ErrUnknownFormat, "format %d", int(format))
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrUnsupported, "%s: resolution %dx%d", format, width, height)
	}
	if length <= 0 {
		return nil, errors.Wrapf(ErrUnsupported, "%s: length %d", format, length)
	}
	subW, subH := format.Subsampling()
	if width%(1<<subW) != 0 || height%(1<<subH) != 0 {
		return nil, errors.Wrapf(ErrUnsupported, "%s: resolution %dx%d is not a multiple of the chroma subsampling", format, width, height)
	}

	var (
		once     sync.Once
		template *Frame
		err      error
	)
	return NewClip(format, width, height, length, func(int) (*Frame, error) {
		once.Do(func() {
			template, err = s.pattern(format, width, height)
		})
		return template, err
	}), nil
}

func (s BlankSource) pattern(format Format, width, height int) (*Frame, error) {
	frame, err := NewFrame(format, width, height)
	if err != nil {
		return nil, err
	}

	state := s.Seed
	if state == 0 {
		state = 0x9e3779b9
	}
	peak := format.Peak()
	for i, p := range frame.Planes {
		for y := 0; y < p.Height; y++ {
			row := p.Row(y)
			for x := range row {
				// xorshift32
				state ^= state << 13
				state ^= state >> 17
				state ^= state << 5
				noise := float32(state&0xff) / 255
				gradient := float32(x+y+i*7) / float32(p.Width+p.Height)
				v := (0.75*gradient + 0.25*noise) * peak
				row[x] = format.Quantize(v)
			}
		}
	}
	return frame, nil
}
