package stages

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"repurpose/internal/artifacts"
	"repurpose/internal/pipeline"
	"repurpose/internal/services"
	"repurpose/internal/textutil"
)

// AudioPayload is the narration stage output.
type AudioPayload struct {
	Path         string `json:"path"`
	Key          string `json:"key"`
	Lang         string `json:"lang"`
	LanguageCode string `json:"language_code"`
	Text         string `json:"text"`
	Bytes        int64  `json:"bytes"`
}

// audio narrates the opening of the LinkedIn post in the configured language.
// It runs only after the post's result is recorded and reads it from Upstream.
func (b *builder) audio(ctx context.Context, in pipeline.StageInput, _ func(string)) (any, error) {
	post, _ := in.Upstream.(string)
	post = strings.TrimSpace(post)
	if post == "" {
		return nil, services.Wrap(services.ErrValidation, Audio, "input", "no LinkedIn post to narrate", nil)
	}
	if !ready(b.deps.Translator) {
		return nil, missingProvider(Audio, "deepl")
	}
	if !ready(b.deps.Synthesizer) {
		return nil, missingProvider(Audio, "elevenlabs")
	}
	if b.deps.Artifacts == nil {
		return nil, missingProvider(Audio, "artifact store")
	}

	target := strings.ToUpper(b.deps.Settings.NarrationLanguage)
	excerpt := textutil.Truncate(post, b.deps.Settings.NarrationChars, "")
	translated, err := b.deps.Translator.Translate(ctx, excerpt, target)
	if err != nil {
		return nil, err
	}
	audio, err := b.deps.Synthesizer.Synthesize(ctx, translated.Text)
	if err != nil {
		return nil, err
	}
	variant := fmt.Sprintf("dubbed-%s", strings.ToLower(target))
	stored, err := b.deps.Artifacts.PutBytes(artifacts.Key(in.JobID, Audio, variant, "mp3"), audio)
	if err != nil {
		return nil, err
	}
	return AudioPayload{
		Path:         b.artifactURL(stored.Key),
		Key:          stored.Key,
		Lang:         LanguageName(target),
		LanguageCode: target,
		Text:         translated.Text,
		Bytes:        stored.Size,
	}, nil
}

// LanguageName returns the English display name for a DeepL-style language
// code such as "ES" or "PT-BR", or the code itself when it does not parse.
func LanguageName(code string) string {
	tag, err := language.Parse(strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	if name := display.English.Languages().Name(language.Make(base.String())); name != "" {
		return name
	}
	return code
}
