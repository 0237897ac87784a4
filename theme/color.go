// Package theme derives a white-label color palette from a single primary color.
package theme

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidColor = errors.New("invalid hex color")

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

// ParseHex accepts "#rgb" and "#rrggbb" (the leading # is optional).
func ParseHex(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return RGB{}, errors.Wrap(ErrInvalidColor, s)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, errors.Wrap(ErrInvalidColor, s)
	}
	return RGB{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Mix returns the weighted average of c and o; w=0 gives c, w=1 gives o. NaN counts as 0.
func (c RGB) Mix(o RGB, w float64) RGB {
	if math.IsNaN(w) {
		w = 0
	}
	w = math.Max(0, math.Min(1, w))
	ch := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-w) + float64(b)*w))
	}
	return RGB{R: ch(c.R, o.R), G: ch(c.G, o.G), B: ch(c.B, o.B)}
}

// Luminance is the WCAG relative luminance of c, in [0, 1].
func (c RGB) Luminance() float64 {
	lin := func(v uint8) float64 {
		s := float64(v) / 255
		if s <= 0.03928 {
			return s / 12.92
		}
		return math.Pow((s+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

var (
	white = RGB{255, 255, 255}
	black = RGB{}
)

// MixColors mixes two hex colors: w=0 returns c1, w=1 returns c2. w is clamped to [0, 1].
// The result is always the normalized "#rrggbb" form, so "#FFF" mixed at w=0 gives "#ffffff".
func MixColors(c1, c2 string, w float64) (string, error) {
	a, err := ParseHex(c1)
	if err != nil {
		return "", err
	}
	b, err := ParseHex(c2)
	if err != nil {
		return "", err
	}
	return a.Mix(b, w).Hex(), nil
}

// Lighten mixes c with white by p (0..1).
func Lighten(c string, p float64) (string, error) {
	return MixColors(c, white.Hex(), p)
}

// Darken mixes c with black by p (0..1).
func Darken(c string, p float64) (string, error) {
	return MixColors(c, black.Hex(), p)
}

// ContrastText returns black or white, whichever reads better on c.
func ContrastText(c RGB) RGB {
	if c.Luminance() > 0.179 {
		return black
	}
	return white
}
