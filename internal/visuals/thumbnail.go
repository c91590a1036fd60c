package visuals

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"text/template"
	"unicode/utf8"
)

const (
	thumbnailWidth  = 1280
	thumbnailHeight = 720
	maxCaptionRunes = 10
	maxVariants     = 3
)

var thumbnailTemplate = template.Must(template.New("thumbnail.svg.tmpl").
	Funcs(template.FuncMap{"esc": html.EscapeString}).
	ParseFS(templateFS, "templates/thumbnail.svg.tmpl"))

// ThumbnailVariant is one thumbnail concept: a scene prompt and a short caption.
type ThumbnailVariant struct {
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

// Thumbnail is a rendered concept.
type Thumbnail struct {
	Prompt  string `json:"prompt"`
	Caption string `json:"caption"`
	SVG     []byte `json:"-"`
}

// NormalizeVariants trims captions to ten runes, drops empty entries, and keeps at most three.
func NormalizeVariants(in []ThumbnailVariant) []ThumbnailVariant {
	out := make([]ThumbnailVariant, 0, maxVariants)
	for _, v := range in {
		v.Prompt = strings.TrimSpace(v.Prompt)
		v.Text = strings.ToUpper(strings.TrimSpace(v.Text))
		if v.Text == "" && v.Prompt == "" {
			continue
		}
		if utf8.RuneCountInString(v.Text) > maxCaptionRunes {
			v.Text = string([]rune(v.Text)[:maxCaptionRunes])
		}
		out = append(out, v)
		if len(out) == maxVariants {
			break
		}
	}
	return out
}

// RenderThumbnail draws variant as an SVG in style's gradient.
func RenderThumbnail(v ThumbnailVariant, style string) (Thumbnail, error) {
	stops := gradients[NormalizeStyle(style)]
	caption := strings.TrimSpace(v.Text)
	fontSize := 180
	if n := utf8.RuneCountInString(caption); n > 6 {
		fontSize = 180 * 6 / n
	}
	var buf bytes.Buffer
	err := thumbnailTemplate.Execute(&buf, map[string]any{
		"Width":    thumbnailWidth,
		"Height":   thumbnailHeight,
		"From":     stops[0],
		"To":       stops[1],
		"Prompt":   v.Prompt,
		"Caption":  caption,
		"TextX":    thumbnailWidth / 2,
		"TextY":    thumbnailHeight/2 + fontSize/3,
		"FontSize": fontSize,
	})
	if err != nil {
		return Thumbnail{}, fmt.Errorf("render thumbnail: %w", err)
	}
	return Thumbnail{Prompt: v.Prompt, Caption: caption, SVG: buf.Bytes()}, nil
}
