package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"repurpose/internal/pipeline"
)

func TestParseAnalysis(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want pipeline.Analysis
		ok   bool
	}{
		{
			name: "fenced",
			raw:  "```json\n{\"big_idea\":\"Ship small\",\"strong_takes\":[\"a\",\"b\",\"c\"],\"tone\":\"direct\"}\n```",
			want: pipeline.Analysis{BigIdea: "Ship small", StrongTakes: []string{"a", "b", "c"}, Tone: "direct"},
			ok:   true,
		},
		{
			name: "prose around object",
			raw:  "Here you go: {\"big_idea\":\"Ship small\",\"strong_takes\":[\"a\"]} hope it helps",
			want: pipeline.Analysis{BigIdea: "Ship small", StrongTakes: []string{"a"}, Tone: "calm"},
			ok:   true,
		},
		{
			name: "trailing prose after object",
			raw:  "{\"big_idea\":\"AI reshapes content\",\"strong_takes\":[\"a\",\"b\"],\"tone\":\"bold\"}\nLet me know if you need changes!",
			want: pipeline.Analysis{BigIdea: "AI reshapes content", StrongTakes: []string{"a", "b"}, Tone: "bold"},
			ok:   true,
		},
		{
			name: "extra takes truncated",
			raw:  `{"big_idea":"x","strong_takes":["1","","2","3","4"],"tone":"t"}`,
			want: pipeline.Analysis{BigIdea: "x", StrongTakes: []string{"1", "2", "3"}, Tone: "t"},
			ok:   true,
		},
		{
			name: "no takes",
			raw:  `{"big_idea":"x"}`,
			want: pipeline.Analysis{BigIdea: "x", StrongTakes: []string{"Point 1", "Point 2", "Point 3"}, Tone: "calm"},
			ok:   true,
		},
		{name: "not json", raw: "I cannot help with that", want: pipeline.DefaultAnalysis("calm")},
		{name: "missing idea", raw: `{"strong_takes":["a"]}`, want: pipeline.DefaultAnalysis("calm")},
		{name: "empty", raw: "", want: pipeline.DefaultAnalysis("calm")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := pipeline.ParseAnalysis(tc.raw, "calm")
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultAnalysisTone(t *testing.T) {
	assert.Equal(t, "professional", pipeline.DefaultAnalysis("  ").Tone)
	assert.Equal(t, "witty", pipeline.DefaultAnalysis("witty").Tone)
	assert.Len(t, pipeline.DefaultAnalysis("").StrongTakes, 3)
}

func TestSelection(t *testing.T) {
	all := pipeline.NewSelection(nil)
	assert.True(t, all.All())
	assert.True(t, all.Includes("broll"))

	sel := pipeline.NewSelection([]string{"Core-Text-Platforms", "audio", ""})
	assert.False(t, sel.All())
	assert.Equal(t, []string{"audio", "blog", "hooks", "linkedin", "twitter"}, sel.Names())
	assert.False(t, sel.Includes("newsletter"))

	assert.Equal(t, []string{"newsletter", "visuals", "research", "broll"}, pipeline.GroupMembers(pipeline.GroupEnrichment))
}
