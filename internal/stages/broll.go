package stages

import (
	"context"
	"errors"

	"repurpose/internal/logging"
	"repurpose/internal/pipeline"
	"repurpose/internal/services"
	"repurpose/internal/textutil"
)

// BRollImage is a stock photo suggested for one strong take.
type BRollImage struct {
	StrongTake   string `json:"strong_take"`
	Keyword      string `json:"keyword"`
	ImageURL     string `json:"image_url"`
	ImageLarge   string `json:"image_large"`
	Photographer string `json:"photographer"`
	PexelsURL    string `json:"pexels_url"`
	Alt          string `json:"alt"`
}

// broll searches one photo per strong take in parallel. Takes without a
// usable keyword or without hits are skipped; the stage fails only when
// every search errors.
func (b *builder) broll(ctx context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
	if !ready(b.deps.Images) {
		return nil, missingProvider(BRoll, "pexels")
	}
	type lookup struct {
		take, keyword string
	}
	var lookups []lookup
	for _, take := range in.Analysis.StrongTakes {
		if kw := textutil.LongestKeyword(take); kw != "" {
			lookups = append(lookups, lookup{take: take, keyword: kw})
		}
	}
	if len(lookups) == 0 {
		return []BRollImage{}, nil
	}

	tasks := make([]func(context.Context) (*BRollImage, error), 0, len(lookups))
	for _, l := range lookups {
		tasks = append(tasks, func(ctx context.Context) (*BRollImage, error) {
			photos, err := b.deps.Images.Search(ctx, l.keyword)
			if err != nil || len(photos) == 0 {
				return nil, err
			}
			p := photos[0]
			alt := p.Alt
			if alt == "" {
				alt = l.keyword
			}
			return &BRollImage{
				StrongTake:   l.take,
				Keyword:      l.keyword,
				ImageURL:     p.Src.Medium,
				ImageLarge:   p.Src.Large,
				Photographer: p.Photographer,
				PexelsURL:    p.URL,
				Alt:          alt,
			}, nil
		})
	}

	logger := logging.WithContext(ctx, b.logger)
	images := make([]BRollImage, 0, len(tasks))
	var errs []error
	for i, res := range pipeline.Join(ctx, tasks) {
		switch {
		case res.Err != nil:
			errs = append(errs, res.Err)
			logging.WarnWithContext(logger, "b-roll search failed", "broll_search_failed",
				logging.String("keyword", lookups[i].keyword),
				logging.String(logging.FieldImpact, "take left without an image"),
				logging.Error(res.Err),
			)
		case res.Value != nil:
			images = append(images, *res.Value)
		}
	}
	if len(errs) == len(tasks) {
		return nil, services.Wrap(services.ErrExternalTool, BRoll, "search", "every image search failed", errors.Join(errs...))
	}
	return images, nil
}
