// Package visuals renders LinkedIn carousel decks and thumbnail concepts.
//
// Carousels are self-contained HTML documents with one 1080x1080 element per
// slide (ids slide-0 through slide-N), so any headless browser can capture
// them slide by slide. Thumbnails are 1280x720 SVG images with a bold
// caption over a style gradient.
package visuals

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"repurpose/internal/textutil"
)

const (
	titleLimit      = 50
	conclusionTitle = "Ready to Scale?"
	defaultTagline  = "A Deep Dive"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var carouselTemplate = template.Must(template.ParseFS(templateFS, "templates/carousel.html.tmpl"))

// Slide is one page of a carousel.
type Slide struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Number int    `json:"number,omitempty"`
	Text   string `json:"text"`
}

// Carousel is a rendered deck in one style.
type Carousel struct {
	Style  string  `json:"style"`
	HTML   string  `json:"html"`
	Slides []Slide `json:"slides"`
}

// BuildSlides lays out a cover, one slide per non-empty take, and a conclusion.
func BuildSlides(title string, takes []string) []Slide {
	slides := []Slide{{ID: "slide-0", Kind: "cover", Text: textutil.Truncate(strings.TrimSpace(title), titleLimit, "")}}
	for _, take := range takes {
		if take = strings.TrimSpace(take); take == "" {
			continue
		}
		n := len(slides)
		slides = append(slides, Slide{ID: fmt.Sprintf("slide-%d", n), Kind: "content", Number: n, Text: take})
	}
	slides = append(slides, Slide{ID: fmt.Sprintf("slide-%d", len(slides)), Kind: "conclusion", Text: conclusionTitle})
	return slides
}

// RenderCarousel renders the deck for title and takes in style.
func RenderCarousel(title string, takes []string, style, tagline string) (Carousel, error) {
	style = NormalizeStyle(style)
	if strings.TrimSpace(tagline) == "" {
		tagline = defaultTagline
	}
	slides := BuildSlides(title, takes)
	var buf bytes.Buffer
	err := carouselTemplate.Execute(&buf, struct {
		Palette Palette
		Slides  []Slide
		Tagline string
	}{palettes[style], slides, tagline})
	if err != nil {
		return Carousel{}, fmt.Errorf("render %s carousel: %w", style, err)
	}
	return Carousel{Style: style, HTML: buf.String(), Slides: slides}, nil
}

// RenderAll renders the deck once per known style, keyed by style.
func RenderAll(title string, takes []string, tagline string) (map[string]Carousel, error) {
	out := make(map[string]Carousel, len(palettes))
	for _, style := range Styles() {
		c, err := RenderCarousel(title, takes, style, tagline)
		if err != nil {
			return nil, err
		}
		out[style] = c
	}
	return out, nil
}
