package frames

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadResolution is returned when a resolution string cannot be parsed.
var ErrBadResolution = errors.New("bad resolution")

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"  yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Res is shorthand for Resolution{Width: w, Height: h}.
func Res(w, h int) Resolution {
	return Resolution{Width: w, Height: h}
}

// Pixels returns the total pixel count.
func (r Resolution) Pixels() int {
	return r.Width * r.Height
}

// MegaPixels returns the pixel count in megapixels, rounded to two decimals.
func (r Resolution) MegaPixels() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0.0
	}
	mp := float64(r.Width*r.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// String returns the "WxH" form used in configuration files.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Key returns the "(W, H)" form used as a key in persisted results.
func (r Resolution) Key() string {
	return fmt.Sprintf("(%d, %d)", r.Width, r.Height)
}

// ParseResolutionKey parses the "(W, H)" form produced by Key.
func ParseResolutionKey(s string) (Resolution, error) {
	var r Resolution
	inner, ok := strings.CutPrefix(s, "(")
	if ok {
		inner, ok = strings.CutSuffix(inner, ")")
	}
	if !ok {
		return r, errors.Wrapf(ErrBadResolution, "%q", s)
	}
	w, h, ok := strings.Cut(inner, ", ")
	if !ok {
		return r, errors.Wrapf(ErrBadResolution, "%q", s)
	}
	return parseDims(s, w, h)
}

// ParseResolution parses "WxH" or one of the named standards ("1080p", "4K UHD", ...).
func ParseResolution(s string) (Resolution, error) {
	if named, ok := LookupResolution(s); ok {
		return named, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Resolution{}, errors.Wrapf(ErrBadResolution, "%q", s)
	}
	return parseDims(s, w, h)
}

func parseDims(orig, w, h string) (Resolution, error) {
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Resolution{}, errors.Wrapf(ErrBadResolution, "%q: width", orig)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return Resolution{}, errors.Wrapf(ErrBadResolution, "%q: height", orig)
	}
	r := Resolution{Width: width, Height: height}
	if !r.Valid() {
		return Resolution{}, errors.Wrapf(ErrBadResolution, "%q: dimensions must be positive", orig)
	}
	return r, nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Resolution) UnmarshalText(text []byte) error {
	parsed, err := ParseResolution(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// SortByPixels sorts resolutions by pixel count ascending, then by width.
func SortByPixels(rs []Resolution) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Pixels() != rs[j].Pixels() {
			return rs[i].Pixels() < rs[j].Pixels()
		}
		return rs[i].Width < rs[j].Width
	})
}

// standards maps the common names of video resolutions to their size.
var standards = map[string]Resolution{
	"nhd":   {Width: 640, Height: 360},
	"480p":  {Width: 854, Height: 480},
	"540p":  {Width: 960, Height: 540},
	"720p":  {Width: 1280, Height: 720},
	"900p":  {Width: 1600, Height: 900},
	"1080p": {Width: 1920, Height: 1080},
	"1440p": {Width: 2560, Height: 1440},
	"4k":    {Width: 3840, Height: 2160},
	"2160p": {Width: 3840, Height: 2160},
	"5k":    {Width: 5120, Height: 2880},
	"8k":    {Width: 7680, Height: 4320},
}

// LookupResolution returns the standard resolution registered under name.
func LookupResolution(name string) (Resolution, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimSuffix(key, " uhd")
	r, ok := standards[key]
	return r, ok
}
