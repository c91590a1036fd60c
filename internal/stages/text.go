package stages

import (
	"context"
	"regexp"
	"strings"

	"repurpose/internal/pipeline"
	"repurpose/internal/seo"
	"repurpose/internal/services"
)

var (
	threadSeparator = regexp.MustCompile(`(?m)^\s*---+\s*$`)
	tweetLabel      = regexp.MustCompile(`(?i)^tweet(\s*\d+\s*[:.)/-]?|\s*:)\s*`)
)

// BlogPayload is the blog stage output: the article and its SEO grade.
type BlogPayload struct {
	Markdown string     `json:"markdown"`
	SEO      seo.Report `json:"seo"`
}

func (b *builder) linkedin(ctx context.Context, in pipeline.StageInput, tokens func(string)) (any, error) {
	req, err := b.request("", promptLinkedIn, b.promptData(in, 0))
	if err != nil {
		return nil, err
	}
	req.Temperature = writingTemperature
	post, err := b.deps.LLM.Stream(ctx, req, tokens)
	if err != nil {
		return nil, err
	}
	post = strings.TrimSpace(post)
	if post == "" {
		return nil, services.Wrap(services.ErrExternalTool, LinkedIn, "generate", "model returned an empty post", nil)
	}
	return post, nil
}

func (b *builder) twitter(ctx context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
	req, err := b.request("", promptTwitter, b.promptData(in, 0))
	if err != nil {
		return nil, err
	}
	req.Temperature = writingTemperature
	raw, err := b.deps.LLM.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	tweets := ParseThread(raw, b.deps.Settings.MaxTweets)
	if len(tweets) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, Twitter, "parse thread", "no tweets in model output", nil)
	}
	return tweets, nil
}

// ParseThread splits model output on "---" separator lines, strips "Tweet N"
// labels, drops empty entries, and keeps at most limit tweets.
func ParseThread(raw string, limit int) []string {
	parts := threadSeparator.Split(strings.ReplaceAll(raw, "\r\n", "\n"), -1)
	tweets := make([]string, 0, len(parts))
	for _, part := range parts {
		tweet := strings.TrimSpace(part)
		if tweetLabel.MatchString(tweet) {
			first, rest, multiline := strings.Cut(tweet, "\n")
			label := tweetLabel.FindString(first)
			if multiline && strings.TrimSpace(first[len(label):]) == "" {
				tweet = strings.TrimSpace(rest)
			} else {
				tweet = strings.TrimSpace(tweet[len(label):])
			}
		}
		if tweet == "" {
			continue
		}
		tweets = append(tweets, tweet)
		if limit > 0 && len(tweets) == limit {
			break
		}
	}
	return tweets
}

func (b *builder) blog(ctx context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
	req, err := b.request("", promptBlog, b.promptData(in, b.deps.Settings.BlogTranscriptChars))
	if err != nil {
		return nil, err
	}
	req.Model = b.deps.Settings.WriterModel
	req.Temperature = writingTemperature
	markdown, err := b.deps.LLM.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, services.Wrap(services.ErrExternalTool, Blog, "generate", "model returned an empty article", nil)
	}
	return BlogPayload{Markdown: markdown, SEO: seo.Score(markdown, "")}, nil
}
