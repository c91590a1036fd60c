// Package seo grades markdown articles against a fixed on-page rubric.
//
// The rubric awards points for structure (H1, H2 sections, conclusion),
// length, readability, keyword placement, a call to action, and short
// paragraphs. Scores map to letter grades A through D by percentage.
package seo

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"repurpose/internal/textutil"
)

// Rubric weights.
const (
	PointsH1             = 15
	PointsH2             = 10
	PointsWordCount      = 15
	PointsReadingLevel   = 15
	PointsKeywordTitle   = 10
	PointsKeywordEarly   = 10
	PointsConclusion     = 10
	PointsCTA            = 10
	PointsShortParagraph = 5

	MaxScore = PointsH1 + PointsH2 + PointsWordCount + PointsReadingLevel +
		PointsKeywordTitle + PointsKeywordEarly + PointsConclusion + PointsCTA + PointsShortParagraph

	minWords          = 800
	maxWords          = 1500
	minH2             = 3
	maxReadingGrade   = 8.0
	earlyWordWindow   = 100
	maxParagraphWords = 150
)

// PassedMessage is the sole feedback entry when every check passes.
const PassedMessage = "All SEO checks passed!"

var (
	h2Pattern         = regexp.MustCompile(`(?m)^## `)
	conclusionPattern = regexp.MustCompile(`(?i)##?\s*(conclusion|wrap|summary|final)`)
	ctaPattern        = regexp.MustCompile(`(?i)subscribe|sign up|download|learn more|get started|join|contact|try|read more`)
	paragraphPattern  = regexp.MustCompile(`\n\n+`)
	headingPrefix     = regexp.MustCompile(`^#\s*`)
	titleWordPattern  = regexp.MustCompile(`\b[a-z]{4,}\b`)
)

var titleStopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "your": {}, "have": {},
	"will": {}, "what": {}, "when": {}, "where": {}, "about": {},
}

// Details records the measured value behind each rubric line.
type Details struct {
	HasH1           bool    `json:"has_h1"`
	H2Count         int     `json:"h2_count"`
	WordCount       int     `json:"word_count"`
	ReadingGrade    float64 `json:"reading_grade"`
	Keyword         string  `json:"keyword,omitempty"`
	KeywordInTitle  bool    `json:"keyword_in_title"`
	KeywordEarly    bool    `json:"keyword_early"`
	HasConclusion   bool    `json:"has_conclusion"`
	HasCTA          bool    `json:"has_cta"`
	ShortParagraphs bool    `json:"short_paragraphs"`
}

// Report is the scored outcome for one article.
type Report struct {
	Score    int      `json:"score"`
	MaxScore int      `json:"max_score"`
	Grade    string   `json:"grade"`
	Feedback []string `json:"feedback"`
	Details  Details  `json:"details"`
}

// Passed reports whether no check produced feedback.
func (r Report) Passed() bool {
	return len(r.Feedback) == 1 && r.Feedback[0] == PassedMessage
}

// Score grades content. An empty keyword is derived from the title line.
func Score(content, keyword string) Report {
	if strings.TrimSpace(keyword) == "" {
		keyword = Keyword(content)
	}
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	var (
		score    int
		feedback []string
		d        Details
	)
	award := func(ok bool, points int, miss string) {
		if ok {
			score += points
			return
		}
		feedback = append(feedback, miss)
	}

	d.HasH1 = strings.HasPrefix(strings.TrimSpace(content), "# ")
	award(d.HasH1, PointsH1, "Add an H1 heading (# Title) at the start")

	d.H2Count = len(h2Pattern.FindAllStringIndex(content, -1))
	award(d.H2Count >= minH2, PointsH2, fmt.Sprintf("Add more H2 sections (%d found, need %d+)", d.H2Count, minH2))

	words := strings.Fields(content)
	d.WordCount = len(words)
	switch {
	case d.WordCount < minWords:
		award(false, PointsWordCount, fmt.Sprintf("Article too short (%d words, need %d+)", d.WordCount, minWords))
	case d.WordCount > maxWords:
		award(false, PointsWordCount, fmt.Sprintf("Article may be too long (%d words)", d.WordCount))
	default:
		award(true, PointsWordCount, "")
	}

	d.ReadingGrade = ReadingGrade(content)
	award(d.ReadingGrade <= maxReadingGrade, PointsReadingLevel,
		fmt.Sprintf("Simplify language (Grade %.1f, aim for %.0f)", d.ReadingGrade, maxReadingGrade))

	if keyword != "" {
		d.Keyword = keyword
		firstLine, _, _ := strings.Cut(content, "\n")
		d.KeywordInTitle = strings.Contains(strings.ToLower(firstLine), keyword)
		award(d.KeywordInTitle, PointsKeywordTitle, fmt.Sprintf("Add keyword '%s' to the title", keyword))

		early := words
		if len(early) > earlyWordWindow {
			early = early[:earlyWordWindow]
		}
		d.KeywordEarly = strings.Contains(strings.ToLower(strings.Join(early, " ")), keyword)
		award(d.KeywordEarly, PointsKeywordEarly, fmt.Sprintf("Include keyword '%s' in first %d words", keyword, earlyWordWindow))
	}

	d.HasConclusion = conclusionPattern.MatchString(content)
	award(d.HasConclusion, PointsConclusion, "Add a Conclusion section")

	d.HasCTA = ctaPattern.MatchString(content)
	award(d.HasCTA, PointsCTA, "Add a call-to-action (e.g., 'Subscribe for more')")

	long := 0
	for _, p := range paragraphPattern.Split(content, -1) {
		if len(strings.Fields(p)) > maxParagraphWords {
			long++
		}
	}
	d.ShortParagraphs = long == 0
	award(d.ShortParagraphs, PointsShortParagraph, fmt.Sprintf("Break up %d long paragraph(s)", long))

	if len(feedback) == 0 {
		feedback = []string{PassedMessage}
	}
	return Report{
		Score:    score,
		MaxScore: MaxScore,
		Grade:    Grade(score, MaxScore),
		Feedback: feedback,
		Details:  d,
	}
}

// Grade maps a score to A (80%+), B (60%+), C (40%+), or D.
func Grade(score, max int) string {
	if max <= 0 {
		return "D"
	}
	pct := float64(score) / float64(max) * 100
	switch {
	case pct >= 80:
		return "A"
	case pct >= 60:
		return "B"
	case pct >= 40:
		return "C"
	default:
		return "D"
	}
}

// ReadingGrade approximates a Flesch-Kincaid grade from average sentence
// length and average word length, rounded to one decimal.
func ReadingGrade(content string) float64 {
	words := strings.Fields(content)
	if len(words) == 0 {
		return 0
	}
	letters := 0
	for _, w := range words {
		letters += len([]rune(w))
	}
	avgWord := float64(letters) / float64(len(words))
	sentences := max(len(textutil.Sentences(content)), 1)
	avgSentence := float64(len(words)) / float64(sentences)
	grade := 0.39*avgSentence + 11.8*(avgWord/4.5) - 15.59
	return math.Round(grade*10) / 10
}

// Keyword picks the first lowercase word of four or more letters from the
// title line that is not a filler word.
func Keyword(content string) string {
	firstLine, _, _ := strings.Cut(content, "\n")
	firstLine = strings.ToLower(headingPrefix.ReplaceAllString(firstLine, ""))
	for _, w := range titleWordPattern.FindAllString(firstLine, -1) {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		return w
	}
	return ""
}
