// Package frames provides the frame model fed to filters under benchmark:
// planar pixel formats, resolutions, lazily evaluated clips, a synthetic
// frame source, the render driver, and the process-wide thread setting.
package frames

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownFormat is returned when a format or colour family name cannot be resolved.
var ErrUnknownFormat = errors.New("unknown format")

// ColorFamily groups formats sharing the same channel layout.
type ColorFamily int

// ColorFamily constants
const (
	// FamilyUndefined is the zero value.
	FamilyUndefined ColorFamily = iota
	// FamilyGray is single plane luma.
	FamilyGray
	// FamilyRGB is three planes: R, G, B.
	FamilyRGB
	// FamilyYUV is three planes: Y, U, V.
	FamilyYUV
)

var familyNames = map[ColorFamily]string{
	FamilyGray: "GRAY",
	FamilyRGB:  "RGB",
	FamilyYUV:  "YUV",
}

// String returns the symbolic name of the family.
func (c ColorFamily) String() string {
	if name, ok := familyNames[c]; ok {
		return name
	}
	return "UNDEFINED"
}

// ParseColorFamily resolves a family name (case-insensitive).
func ParseColorFamily(name string) (ColorFamily, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for family, n := range familyNames {
		if n == upper {
			return family, nil
		}
	}
	return FamilyUndefined, errors.Wrapf(ErrUnknownFormat, "colour family %q", name)
}

// Format identifies a planar pixel format. The numeric values are not stable
// and must never be persisted; use String and ParseFormat instead.
type Format int

// Format constants
const (
	// FormatUndefined is the zero value.
	FormatUndefined Format = iota
	// Gray8 is 8-bit integer luma.
	Gray8
	// Gray16 is 16-bit integer luma.
	Gray16
	// GrayS is 32-bit float luma in [0, 1].
	GrayS
	// RGB24 is 8-bit integer planar RGB.
	RGB24
	// RGB48 is 16-bit integer planar RGB.
	RGB48
	// RGBS is 32-bit float planar RGB.
	RGBS
	// YUV420P8 is 8-bit YUV with chroma halved in both directions.
	YUV420P8
	// YUV444P8 is 8-bit YUV without chroma subsampling.
	YUV444P8
	// YUV444P16 is 16-bit YUV without chroma subsampling.
	YUV444P16
)

type formatInfo struct {
	name   string
	family ColorFamily
	float  bool
	bits   int
	// log2 chroma subsampling
	subW, subH int
}

var formatTable = map[Format]formatInfo{
	Gray8:     {name: "GRAY8", family: FamilyGray, bits: 8},
	Gray16:    {name: "GRAY16", family: FamilyGray, bits: 16},
	GrayS:     {name: "GRAYS", family: FamilyGray, bits: 32, float: true},
	RGB24:     {name: "RGB24", family: FamilyRGB, bits: 8},
	RGB48:     {name: "RGB48", family: FamilyRGB, bits: 16},
	RGBS:      {name: "RGBS", family: FamilyRGB, bits: 32, float: true},
	YUV420P8:  {name: "YUV420P8", family: FamilyYUV, bits: 8, subW: 1, subH: 1},
	YUV444P8:  {name: "YUV444P8", family: FamilyYUV, bits: 8},
	YUV444P16: {name: "YUV444P16", family: FamilyYUV, bits: 16},
}

// String returns the symbolic name of the format.
func (f Format) String() string {
	if info, ok := formatTable[f]; ok {
		return info.name
	}
	return "UNDEFINED"
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := formatTable[f]
	return ok
}

// Family returns the colour family of the format.
func (f Format) Family() ColorFamily {
	return formatTable[f].family
}

// Bits returns the bits per sample.
func (f Format) Bits() int {
	return formatTable[f].bits
}

// IsFloat reports whether samples are floating point.
func (f Format) IsFloat() bool {
	return formatTable[f].float
}

// NumPlanes returns the number of planes of a frame in this format.
func (f Format) NumPlanes() int {
	switch f.Family() {
	case FamilyGray:
		return 1
	case FamilyRGB, FamilyYUV:
		return 3
	default:
		return 0
	}
}

// Subsampling returns the log2 horizontal and vertical chroma subsampling.
func (f Format) Subsampling() (int, int) {
	info := formatTable[f]
	return info.subW, info.subH
}

// PlaneSize returns the dimensions of plane p of a width x height frame.
func (f Format) PlaneSize(p, width, height int) (int, int) {
	if p == 0 || f.Family() != FamilyYUV {
		return width, height
	}
	subW, subH := f.Subsampling()
	return width >> subW, height >> subH
}

// Peak returns the largest representable sample value.
func (f Format) Peak() float32 {
	if f.IsFloat() {
		return 1
	}
	return float32(int(1)<<f.Bits() - 1)
}

// Quantize rounds and clamps v for integer formats. Float samples pass through.
func (f Format) Quantize(v float32) float32 {
	if f.IsFloat() {
		return v
	}
	peak := f.Peak()
	if v <= 0 {
		return 0
	}
	if v >= peak {
		return peak
	}
	return float32(int(v + 0.5))
}

// Gray returns the single plane format with the same sample type.
func (f Format) Gray() (Format, bool) {
	info, ok := formatTable[f]
	if !ok {
		return FormatUndefined, false
	}
	for g, gi := range formatTable {
		if gi.family == FamilyGray && gi.bits == info.bits && gi.float == info.float {
			return g, true
		}
	}
	return FormatUndefined, false
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, errors.Wrapf(ErrUnknownFormat, "format %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormat resolves a format name (case-insensitive).
func ParseFormat(name string) (Format, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for f, info := range formatTable {
		if info.name == upper {
			return f, nil
		}
	}
	return FormatUndefined, errors.Wrapf(ErrUnknownFormat, "format %q", name)
}

// Formats returns every known format sorted by name.
func Formats() []Format {
	out := make([]Format, 0, len(formatTable))
	for f := range formatTable {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
