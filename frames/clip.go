package frames

import (
	"fmt"

	"github.com/pkg/errors"
)

// FrameFunc produces frame n of a clip.
type FrameFunc func(n int) (*Frame, error)

// Clip is a lazily evaluated sequence of frames. Nothing is computed until a
// frame is requested, so building a filter chain is cheap and the cost of the
// chain is paid when the clip is realized.
type Clip struct {
	Format Format
	Width  int
	Height int
	Length int

	get FrameFunc
}

// NewClip creates a clip whose frames are produced by get.
func NewClip(format Format, width, height, length int, get FrameFunc) *Clip {
	return &Clip{
		Format: format,
		Width:  width,
		Height: height,
		Length: length,
		get:    get,
	}
}

// Frame returns frame n.
func (c *Clip) Frame(n int) (*Frame, error) {
	if n < 0 || n >= c.Length {
		return nil, errors.Errorf("frame %d out of range [0, %d)", n, c.Length)
	}
	return c.get(n)
}

// Resolution returns the frame size of the clip.
func (c *Clip) Resolution() Resolution {
	return Resolution{Width: c.Width, Height: c.Height}
}

// Transform derives a clip of the given shape whose frame n is fn applied to
// frame n of c.
func (c *Clip) Transform(format Format, width, height int, fn func(*Frame) (*Frame, error)) *Clip {
	return NewClip(format, width, height, c.Length, func(n int) (*Frame, error) {
		src, err := c.Frame(n)
		if err != nil {
			return nil, err
		}
		return fn(src)
	})
}

// String describes the clip shape.
func (c *Clip) String() string {
	return fmt.Sprintf("%s %dx%d, %d frames", c.Format, c.Width, c.Height, c.Length)
}
