package visuals_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"repurpose/internal/visuals"
)

func TestBuildSlidesNumbersCoverContentConclusion(t *testing.T) {
	slides := visuals.BuildSlides("A title that is definitely longer than fifty characters total", []string{"one", " ", "two"})
	if len(slides) != 4 {
		t.Fatalf("expected 4 slides, got %d", len(slides))
	}
	if slides[0].Kind != "cover" || len([]rune(slides[0].Text)) != 50 {
		t.Fatalf("unexpected cover %+v", slides[0])
	}
	if slides[2].ID != "slide-2" || slides[2].Number != 2 || slides[2].Text != "two" {
		t.Fatalf("unexpected content slide %+v", slides[2])
	}
	if slides[3].Kind != "conclusion" || slides[3].ID != "slide-3" {
		t.Fatalf("unexpected conclusion %+v", slides[3])
	}
}

func TestRenderCarouselAppliesPaletteAndEscapes(t *testing.T) {
	c, err := visuals.RenderCarousel("Big <idea>", []string{"Take & more"}, "Corporate", "")
	if err != nil {
		t.Fatalf("RenderCarousel: %v", err)
	}
	if c.Style != visuals.StyleCorporate {
		t.Fatalf("unexpected style %q", c.Style)
	}
	for _, want := range []string{`id="slide-0"`, `id="slide-2"`, "#3182ce", "5px solid #3182ce", "Big &lt;idea&gt;", "Take &amp; more"} {
		if !strings.Contains(c.HTML, want) {
			t.Errorf("carousel html missing %q", want)
		}
	}
	if strings.Contains(c.HTML, "ZgotmplZ") {
		t.Fatal("css value was rejected by the template sanitizer")
	}
}

func TestRenderAllCoversEveryStyle(t *testing.T) {
	all, err := visuals.RenderAll("Title", []string{"a"}, "Tagline")
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected three styles, got %d", len(all))
	}
	if !strings.Contains(all[visuals.StyleCyberpunk].HTML, "radial-gradient") {
		t.Fatal("expected cyberpunk background")
	}
	if visuals.NormalizeStyle("neon") != visuals.StyleCyberpunk {
		t.Fatal("unknown styles should fall back to cyberpunk")
	}
}

func TestNormalizeVariants(t *testing.T) {
	got := visuals.NormalizeVariants([]visuals.ThumbnailVariant{
		{Prompt: "desk", Text: "mistake!"},
		{},
		{Prompt: "city", Text: "way too long caption"},
		{Prompt: "sky", Text: "up"},
		{Prompt: "extra", Text: "no"},
	})
	if len(got) != 3 {
		t.Fatalf("expected three variants, got %d", len(got))
	}
	if got[0].Text != "MISTAKE!" || got[1].Text != "WAY TOO LO" {
		t.Fatalf("unexpected captions %+v", got)
	}
}

func TestRenderThumbnailProducesValidSVG(t *testing.T) {
	thumb, err := visuals.RenderThumbnail(visuals.ThumbnailVariant{Prompt: "a <dark> room", Text: "R&D"}, "minimalist")
	if err != nil {
		t.Fatalf("RenderThumbnail: %v", err)
	}
	var doc struct {
		XMLName xml.Name `xml:"svg"`
		Text    string   `xml:"text"`
	}
	if err := xml.Unmarshal(thumb.SVG, &doc); err != nil {
		t.Fatalf("thumbnail is not valid xml: %v\n%s", err, thumb.SVG)
	}
	if doc.Text != "R&D" {
		t.Fatalf("unexpected caption %q", doc.Text)
	}
}
