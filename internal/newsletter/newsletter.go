// Package newsletter renders the email edition of a job's analysis.
package newsletter

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"regexp"
	"strings"
	texttemplate "text/template"
	"time"

	"repurpose/internal/textutil"
)

const (
	// PlaceholderThumbnail is used when the source is not a recognizable video link.
	PlaceholderThumbnail = "https://via.placeholder.com/540x300/667eea/ffffff?text=Watch+Video"

	maxTakeaways     = 5
	subjectLimit     = 50
	subjectPrefix    = "🎬 "
	youtubeThumbnail = "https://img.youtube.com/vi/%s/maxresdefault.jpg"
)

var youtubeIDPattern = regexp.MustCompile(`(?:v=|/embed/|/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)

//go:embed templates/*.tmpl
var templateFS embed.FS

var funcs = map[string]any{"inc": func(i int) int { return i + 1 }}

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.New("newsletter.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/newsletter.html.tmpl"))
	textTemplate = texttemplate.Must(texttemplate.New("newsletter.txt.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/newsletter.txt.tmpl"))
)

// Input carries the content placed in the email.
type Input struct {
	BigIdea      string
	Takeaways    []string
	VideoURL     string
	ThumbnailURL string
	Subject      string
	Now          time.Time
}

// Edition is the rendered email.
type Edition struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

type view struct {
	Subject      string
	BigIdea      string
	Takeaways    []string
	VideoURL     string
	ThumbnailURL string
	Year         int
}

// Render builds the HTML and plain-text versions of the email.
func Render(in Input) (Edition, error) {
	v := view{
		Subject:      strings.TrimSpace(in.Subject),
		BigIdea:      strings.TrimSpace(in.BigIdea),
		VideoURL:     strings.TrimSpace(in.VideoURL),
		ThumbnailURL: strings.TrimSpace(in.ThumbnailURL),
	}
	if v.Subject == "" {
		v.Subject = Subject(v.BigIdea)
	}
	if v.ThumbnailURL == "" {
		v.ThumbnailURL = Thumbnail(v.VideoURL)
	}
	for _, take := range in.Takeaways {
		if take = strings.TrimSpace(take); take != "" {
			v.Takeaways = append(v.Takeaways, take)
		}
	}
	if len(v.Takeaways) > maxTakeaways {
		v.Takeaways = v.Takeaways[:maxTakeaways]
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	v.Year = now.Year()

	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, v); err != nil {
		return Edition{}, fmt.Errorf("render newsletter html: %w", err)
	}
	if err := textTemplate.Execute(&text, v); err != nil {
		return Edition{}, fmt.Errorf("render newsletter text: %w", err)
	}
	return Edition{Subject: v.Subject, HTML: html.String(), Text: text.String()}, nil
}

// Subject derives a subject line from the big idea, cut at 50 runes.
func Subject(bigIdea string) string {
	return subjectPrefix + textutil.Truncate(strings.TrimSpace(bigIdea), subjectLimit, "...")
}

// Thumbnail returns the YouTube preview image for videoURL, or the placeholder.
func Thumbnail(videoURL string) string {
	if m := youtubeIDPattern.FindStringSubmatch(videoURL); m != nil {
		return fmt.Sprintf(youtubeThumbnail, m[1])
	}
	return PlaceholderThumbnail
}
