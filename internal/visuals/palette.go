package visuals

import (
	"html/template"
	"slices"
	"strings"
)

// Carousel styles.
const (
	StyleCyberpunk  = "cyberpunk"
	StyleMinimalist = "minimalist"
	StyleCorporate  = "corporate"
)

// Palette holds the trusted CSS values for one carousel style.
type Palette struct {
	Background template.CSS
	Text       template.CSS
	Accent     template.CSS
	Secondary  template.CSS
	Border     template.CSS
	Shadow     template.CSS
	Glow       template.CSS
}

func palette(bg, text, accent, secondary, border string) Palette {
	return Palette{
		Background: template.CSS(bg),
		Text:       template.CSS(text),
		Accent:     template.CSS(accent),
		Secondary:  template.CSS(secondary),
		Border:     template.CSS(border),
		Shadow:     template.CSS(accent + "44"),
		Glow:       template.CSS(accent + "11"),
	}
}

var palettes = map[string]Palette{
	StyleCyberpunk:  palette("radial-gradient(circle, #0d0d0d 0%, #000000 100%)", "#ffffff", "#00f3ff", "#ff00ff", "2px solid #00f3ff"),
	StyleMinimalist: palette("#ffffff", "#000000", "#666666", "#999999", "1px solid #000000"),
	StyleCorporate:  palette("#f4f7f9", "#1a365d", "#3182ce", "#2c5282", "5px solid #3182ce"),
}

// thumbnail gradient stops per style.
var gradients = map[string][2]string{
	StyleCyberpunk:  {"#0d0d0d", "#ff00ff"},
	StyleMinimalist: {"#ffffff", "#999999"},
	StyleCorporate:  {"#1a365d", "#3182ce"},
}

// Styles lists the known styles in a stable order.
func Styles() []string {
	out := make([]string, 0, len(palettes))
	for name := range palettes {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// NormalizeStyle lowercases name and falls back to cyberpunk when unknown.
func NormalizeStyle(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := palettes[name]; ok {
		return name
	}
	return StyleCyberpunk
}
