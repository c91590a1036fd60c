package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var sentencePattern = regexp.MustCompile(`[.!?]+`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the a an is are was were be been being have has had do does did will
		would could should may might must shall can need dare ought used to of in
		for on with at by from as into through during before after above below
		between under again further then once here there when where why how all
		each few more most other some such no nor not only own same so than
		too very just and but if or because until while about against
		this that these those i you he she it we they what which who whom`) {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether w is a common English filler word.
func IsStopWord(w string) bool {
	_, ok := stopWords[strings.ToLower(w)]
	return ok
}

// Words lowercases text, drops punctuation, and splits on whitespace.
func Words(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)
	return strings.Fields(cleaned)
}

// Sentences splits text on terminal punctuation and drops empty fragments.
func Sentences(text string) []string {
	parts := sentencePattern.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LongestKeyword returns the longest word in text that is not a stop word
// and has more than three letters. Ties keep the earliest word.
func LongestKeyword(text string) string {
	best := ""
	for _, w := range Words(text) {
		if len([]rune(w)) <= 3 || IsStopWord(w) {
			continue
		}
		if len([]rune(w)) > len([]rune(best)) {
			best = w
		}
	}
	return best
}
