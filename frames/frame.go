package frames

import "github.com/pkg/errors"

// Plane holds the samples of one channel in row-major order. Integer formats
// store their integer sample values; float formats store values in [0, 1].
type Plane struct {
	// Width is the plane width in samples.
	Width int
	// Height is the plane height in samples.
	Height int
	// Pix holds Width*Height samples.
	Pix []float32
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height),
	}
}

// At returns the sample at (x, y).
func (p *Plane) At(x, y int) float32 {
	return p.Pix[y*p.Width+x]
}

// Row returns row y as a slice sharing the plane storage.
func (p *Plane) Row(y int) []float32 {
	return p.Pix[y*p.Width : (y+1)*p.Width]
}

// Clone returns a deep copy of the plane.
func (p *Plane) Clone() *Plane {
	c := &Plane{Width: p.Width, Height: p.Height, Pix: make([]float32, len(p.Pix))}
	copy(c.Pix, p.Pix)
	return c
}

// Frame is one planar picture. Frames handed out by a Clip are shared and
// must be treated as immutable; filters allocate new planes for their output.
type Frame struct {
	Format Format
	Width  int
	Height int
	Planes []*Plane
}

// NewFrame allocates a zeroed frame with correctly sized planes.
func NewFrame(format Format, width, height int) (*Frame, error) {
	if !format.Valid() {
		return nil, errors.Wrapf(ErrUnknownFormat, "format %d", int(format))
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid frame size %dx%d", width, height)
	}
	f := &Frame{
		Format: format,
		Width:  width,
		Height: height,
		Planes: make([]*Plane, format.NumPlanes()),
	}
	for i := range f.Planes {
		w, h := format.PlaneSize(i, width, height)
		f.Planes[i] = NewPlane(w, h)
	}
	return f, nil
}

// WithPlanes returns a shallow frame of the same shape using the given planes.
func (f *Frame) WithPlanes(planes []*Plane) *Frame {
	return &Frame{
		Format: f.Format,
		Width:  f.Width,
		Height: f.Height,
		Planes: planes,
	}
}
