package pipeline

import (
	"context"
	"slices"
	"strings"
)

// Mode controls whether a stage streams tokens live or reports only on completion.
type Mode string

const (
	Foreground Mode = "foreground"
	Background Mode = "background"
)

// Phase groups stages for progress accounting.
type Phase string

const (
	PhaseTranscription Phase = "transcription"
	PhaseAnalysis      Phase = "analysis"
	PhaseGeneration    Phase = "generation"
	PhaseFeatures      Phase = "features"
)

// AnalysisStep is the step name of the root stage every derived stage reads.
const AnalysisStep = "analysis"

// StageInput is the read-only view a derived stage receives.
type StageInput struct {
	JobID      string
	Source     string
	Transcript string
	Tone       string
	Analysis   Analysis
	// Upstream holds the prerequisite's payload for a chained stage.
	Upstream any
}

// StageFunc produces a stage payload. Foreground stages report partial text
// through tokens; background stages receive a no-op.
type StageFunc func(ctx context.Context, in StageInput, tokens func(string)) (any, error)

// StageSpec statically declares one derived stage.
type StageSpec struct {
	ID    string
	Label string
	Mode  Mode
	Phase Phase
	// After names a prerequisite stage whose StageResult must be recorded
	// before this stage launches.
	After string
	// Enabled decides participation from the caller's selection. Nil means the
	// stage runs when its own ID is selected.
	Enabled func(Selection) bool
	Run     StageFunc
}

func (s StageSpec) enabled(sel Selection) bool {
	if s.Enabled != nil {
		return s.Enabled(sel)
	}
	return sel.Includes(s.ID)
}

func (s StageSpec) label() string {
	if strings.TrimSpace(s.Label) != "" {
		return s.Label
	}
	return s.ID
}

// Platform groups accepted in a job selection alongside individual stage IDs.
const (
	GroupCoreText   = "core-text-platforms"
	GroupEnrichment = "enrichment-platforms"
	GroupNarration  = "narration"
)

var platformGroups = map[string][]string{
	GroupCoreText:   {"linkedin", "twitter", "blog", "hooks"},
	GroupEnrichment: {"newsletter", "visuals", "research", "broll"},
	GroupNarration:  {"audio"},
}

// GroupMembers returns the stage IDs a platform group expands to.
func GroupMembers(group string) []string {
	return slices.Clone(platformGroups[group])
}

// Selection is the caller-requested platform set with groups expanded.
type Selection struct {
	all   bool
	names map[string]struct{}
}

// NewSelection expands names into a Selection. An empty list selects everything.
func NewSelection(names []string) Selection {
	sel := Selection{names: make(map[string]struct{})}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if members, ok := platformGroups[name]; ok {
			for _, m := range members {
				sel.names[m] = struct{}{}
			}
			continue
		}
		sel.names[name] = struct{}{}
	}
	sel.all = len(sel.names) == 0
	return sel
}

// All reports whether the selection enables every stage.
func (s Selection) All() bool { return s.all }

// Includes reports whether name was selected directly or through a group.
func (s Selection) Includes(name string) bool {
	if s.all {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// Names returns the explicitly selected stage IDs in sorted order.
func (s Selection) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
