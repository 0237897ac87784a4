package theme

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixColors(t *testing.T) {
	tests := []struct {
		name   string
		c1, c2 string
		w      float64
		want   string
	}{
		{name: "w=0 returns c1", c1: "#228be6", c2: "#ffffff", w: 0, want: "#228be6"},
		{name: "w=1 returns c2", c1: "#228be6", c2: "#fa5252", w: 1, want: "#fa5252"},
		{name: "halfway", c1: "#000000", c2: "#ffffff", w: 0.5, want: "#808080"},
		{name: "short form", c1: "#fff", c2: "#000", w: 0, want: "#ffffff"},
		{name: "uppercase & no hash", c1: "228BE6", c2: "#000", w: 0, want: "#228be6"},
		{name: "clamped below", c1: "#102030", c2: "#ffffff", w: -2, want: "#102030"},
		{name: "clamped above", c1: "#102030", c2: "#ffffff", w: 3, want: "#ffffff"},
		{name: "NaN weight returns c1", c1: "#102030", c2: "#ffffff", w: math.NaN(), want: "#102030"},
		{name: "infinite weight is clamped", c1: "#102030", c2: "#ffffff", w: math.Inf(1), want: "#ffffff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MixColors(tt.c1, tt.c2, tt.w)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := MixColors("#12345", "#000", 0)
	assert.True(t, errors.Is(err, ErrInvalidColor))
	_, err = MixColors("#000", "#zzzzzz", 0)
	assert.True(t, errors.Is(err, ErrInvalidColor))
}

func TestLightenDarken(t *testing.T) {
	got, err := Lighten("#000000", 1)
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", got)

	got, err = Darken("#ffffff", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "#808080", got)
}

func TestNewPalette(t *testing.T) {
	pal, err := NewPalette("#228be6")
	require.NoError(t, err)

	assert.Equal(t, "#228be6", pal.Primary.Base)
	light, _ := Lighten("#228be6", lightMix)
	dark, _ := Darken("#228be6", darkMix)
	assert.Equal(t, light, pal.Primary.Light)
	assert.Equal(t, dark, pal.Primary.Dark)
	assert.Len(t, pal.Semantic, 4)
	assert.Equal(t, "#fa5252", pal.Semantic["error"].Base)

	vars := pal.CSSVariables()
	assert.Equal(t, "#228be6", vars["--color-primary"])
	assert.Equal(t, pal.Primary.Darker, vars["--color-primary-darker"])
	assert.Equal(t, pal.Semantic["info"].Light, vars["--color-info-light"])
	_, ok := vars["--color-info-lighter"]
	assert.False(t, ok)

	css := pal.Stylesheet()
	assert.Contains(t, css, ":root {\n  --color-error: #fa5252;\n")
	assert.Contains(t, css, "--color-primary: #228be6;")

	_, err = NewPalette("blue")
	assert.Error(t, err)
}

func TestContrastText(t *testing.T) {
	assert.Equal(t, black, ContrastText(RGB{0xfa, 0xb0, 0x05}))
	assert.Equal(t, white, ContrastText(RGB{0x1c, 0x3d, 0x5a}))
}

func TestContext(t *testing.T) {
	ctx, err := NewContext("#228be6")
	require.NoError(t, err)

	assert.Equal(t, "#228be6", ctx.For("").Primary.Base)
	assert.Equal(t, "#228be6", ctx.For("not a color").Primary.Base)
	assert.Equal(t, "#aabbcc", ctx.For("#ABC").Primary.Base)
	assert.Equal(t, ctx.For("#abc"), ctx.For("#aabbcc"))

	_, err = NewContext("")
	assert.Error(t, err)
}
