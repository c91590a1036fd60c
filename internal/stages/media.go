package stages

import (
	"context"
	"fmt"
	"strings"

	"repurpose/internal/artifacts"
	"repurpose/internal/logging"
	"repurpose/internal/newsletter"
	"repurpose/internal/pipeline"
	"repurpose/internal/services"
	"repurpose/internal/services/llm"
	"repurpose/internal/textutil"
	"repurpose/internal/visuals"
)

const carouselTitleChars = 50

// VisualsPayload is the visuals stage output.
type VisualsPayload struct {
	Carousel     map[string]visuals.Carousel `json:"carousel"`
	DefaultStyle string                      `json:"default_style"`
	Thumbnails   []ThumbnailAsset            `json:"thumbnails"`
}

// ThumbnailAsset is a rendered thumbnail concept and where it was stored.
type ThumbnailAsset struct {
	Prompt  string `json:"prompt"`
	Caption string `json:"caption"`
	Key     string `json:"key,omitempty"`
	URL     string `json:"url,omitempty"`
}

func (b *builder) newsletter(_ context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
	edition, err := newsletter.Render(newsletter.Input{
		BigIdea:   in.Analysis.BigIdea,
		Takeaways: in.Analysis.StrongTakes,
		VideoURL:  sourceOrPlaceholder(in.Source),
		Now:       b.deps.Clock(),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, Newsletter, "render", "", err)
	}
	return edition, nil
}

// visuals renders the carousel in every style and, best effort, thumbnail
// concepts. A thumbnail failure leaves the list empty rather than failing
// the stage.
func (b *builder) visuals(ctx context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
	title := textutil.Truncate(in.Analysis.BigIdea, carouselTitleChars, "")
	decks, err := visuals.RenderAll(title, in.Analysis.StrongTakes, b.deps.Settings.CarouselTagline)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, Visuals, "render carousel", "", err)
	}
	style := visuals.NormalizeStyle(b.deps.Settings.CarouselStyle)
	payload := VisualsPayload{Carousel: decks, DefaultStyle: style, Thumbnails: []ThumbnailAsset{}}

	thumbs, err := b.thumbnails(ctx, in, style)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, b.logger), "thumbnail concepts failed", "thumbnails_failed",
			logging.String(logging.FieldImpact, "visuals delivered without thumbnails"),
			logging.Error(err),
		)
		return payload, nil
	}
	payload.Thumbnails = thumbs
	return payload, nil
}

func (b *builder) thumbnails(ctx context.Context, in pipeline.StageInput, style string) ([]ThumbnailAsset, error) {
	req, err := b.request(promptThumbnailsSystem, promptThumbnails, b.promptData(in, thumbnailTranscriptChars))
	if err != nil {
		return nil, err
	}
	req.JSON = true
	raw, err := b.deps.LLM.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Variants []visuals.ThumbnailVariant `json:"variants"`
	}
	if err := llm.DecodeLLMJSON(raw, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, Visuals, "parse thumbnails", "", err)
	}
	variants := visuals.NormalizeVariants(decoded.Variants)
	out := make([]ThumbnailAsset, 0, len(variants))
	for i, v := range variants {
		thumb, err := visuals.RenderThumbnail(v, style)
		if err != nil {
			return nil, err
		}
		asset := ThumbnailAsset{Prompt: thumb.Prompt, Caption: thumb.Caption}
		if b.deps.Artifacts != nil {
			key := artifacts.Key(in.JobID, Visuals, fmt.Sprintf("thumbnail-%d", i+1), "svg")
			stored, err := b.deps.Artifacts.PutBytes(key, thumb.SVG)
			if err != nil {
				return nil, err
			}
			asset.Key = stored.Key
			asset.URL = b.artifactURL(stored.Key)
		}
		out = append(out, asset)
	}
	return out, nil
}

// sourceOrPlaceholder keeps newsletter links usable for pasted transcripts.
func sourceOrPlaceholder(source string) string {
	if strings.TrimSpace(source) == "" {
		return "#"
	}
	return source
}
