package theme

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// shade mixing ratios
const (
	lighterMix = 0.8
	lightMix   = 0.4
	darkMix    = 0.2
	darkerMix  = 0.4

	semanticLightMix = 0.85
	semanticDarkMix  = 0.25
)

var semanticBases = []struct {
	name string
	base RGB
}{
	{"success", RGB{0x40, 0xc0, 0x57}},
	{"error", RGB{0xfa, 0x52, 0x52}},
	{"warning", RGB{0xfa, 0xb0, 0x05}},
	{"info", RGB{0x15, 0xaa, 0xbf}},
}

type Shades struct {
	Base    string `json:"base"`
	Lighter string `json:"lighter,omitempty"`
	Light   string `json:"light"`
	Dark    string `json:"dark"`
	Darker  string `json:"darker,omitempty"`
	Text    string `json:"text"` // readable text color on Base
}

type Palette struct {
	Primary  Shades            `json:"primary"`
	Semantic map[string]Shades `json:"semantic"`
}

// NewPalette derives the primary shades & semantic colors from primary.
func NewPalette(primary string) (Palette, error) {
	p, err := ParseHex(primary)
	if err != nil {
		return Palette{}, err
	}
	pal := Palette{
		Primary: Shades{
			Base:    p.Hex(),
			Lighter: p.Mix(white, lighterMix).Hex(),
			Light:   p.Mix(white, lightMix).Hex(),
			Dark:    p.Mix(black, darkMix).Hex(),
			Darker:  p.Mix(black, darkerMix).Hex(),
			Text:    ContrastText(p).Hex(),
		},
		Semantic: make(map[string]Shades, len(semanticBases)),
	}
	for _, s := range semanticBases {
		pal.Semantic[s.name] = Shades{
			Base:  s.base.Hex(),
			Light: s.base.Mix(white, semanticLightMix).Hex(),
			Dark:  s.base.Mix(black, semanticDarkMix).Hex(),
			Text:  ContrastText(s.base).Hex(),
		}
	}
	return pal, nil
}

func (s Shades) variables(prefix string, vars map[string]string) {
	vars[prefix] = s.Base
	vars[prefix+"-light"] = s.Light
	vars[prefix+"-dark"] = s.Dark
	vars[prefix+"-text"] = s.Text
	if s.Lighter != "" {
		vars[prefix+"-lighter"] = s.Lighter
	}
	if s.Darker != "" {
		vars[prefix+"-darker"] = s.Darker
	}
}

// CSSVariables maps custom property names (e.g. "--color-primary-dark") to colors.
func (p Palette) CSSVariables() map[string]string {
	vars := make(map[string]string)
	p.Primary.variables("--color-primary", vars)
	for name, s := range p.Semantic {
		s.variables("--color-"+name, vars)
	}
	return vars
}

// Stylesheet renders the palette as a :root block plus the component overrides that read it.
func (p Palette) Stylesheet() string {
	vars := p.CSSVariables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %s;\n", name, vars[name])
	}
	b.WriteString("}\n")
	b.WriteString(`.btn-primary { background-color: var(--color-primary) !important; color: var(--color-primary-text) !important; }
.btn-primary:hover { background-color: var(--color-primary-dark) !important; }
a, .link { color: var(--color-primary-dark); }
.nav-item.active { background-color: var(--color-primary-lighter) !important; color: var(--color-primary-darker) !important; }
.badge-success { background-color: var(--color-success-light); color: var(--color-success-dark); }
.badge-error { background-color: var(--color-error-light); color: var(--color-error-dark); }
.badge-warning { background-color: var(--color-warning-light); color: var(--color-warning-dark); }
.badge-info { background-color: var(--color-info-light); color: var(--color-info-dark); }
`)
	return b.String()
}

// Context resolves palettes for the app default primary color and per-tenant overrides.
type Context struct {
	def Palette

	mu       sync.RWMutex
	palettes map[string]Palette // {primary hex: palette}
}

// NewContext builds a Context around the configured default primary color.
func NewContext(defaultPrimary string) (*Context, error) {
	def, err := NewPalette(defaultPrimary)
	if err != nil {
		return nil, err
	}
	return &Context{def: def, palettes: map[string]Palette{def.Primary.Base: def}}, nil
}

func (c *Context) Default() Palette { return c.def }

// For returns the palette of primary, falling back to the default for empty or invalid colors.
func (c *Context) For(primary string) Palette {
	if primary == "" {
		return c.def
	}
	rgb, err := ParseHex(primary)
	if err != nil {
		return c.def
	}
	key := rgb.Hex()

	c.mu.RLock()
	pal, ok := c.palettes[key]
	c.mu.RUnlock()
	if ok {
		return pal
	}

	pal, _ = NewPalette(key)
	c.mu.Lock()
	c.palettes[key] = pal
	c.mu.Unlock()
	return pal
}
