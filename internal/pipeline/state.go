package pipeline

import "fmt"

// State is the orchestrator's lifecycle position for one job.
type State int

const (
	StateInit State = iota
	StateRunningAnalysis
	StateAnalysisDone
	StateRunningDerived
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunningAnalysis:
		return "running_analysis"
	case StateAnalysisDone:
		return "analysis_done"
	case StateRunningDerived:
		return "running_derived"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// jobState is owned by the orchestrator loop; stage goroutines never touch it.
type jobState struct {
	state    State
	analysis Analysis
	outcomes map[string]Outcome
	outputs  map[string]any
	errors   []StageError
	progress *progressTracker

	// Phase accounting for derived stages.
	enabledIn  map[Phase]int
	terminalIn map[Phase]int
}

func newJobState() *jobState {
	return &jobState{
		state:      StateInit,
		outcomes:   make(map[string]Outcome),
		outputs:    make(map[string]any),
		progress:   newProgressTracker(),
		enabledIn:  make(map[Phase]int),
		terminalIn: make(map[Phase]int),
	}
}

// advance moves the lifecycle forward. Going backwards is a programming error.
func (j *jobState) advance(to State) {
	if to < j.state {
		panic(fmt.Sprintf("pipeline: invalid transition %s -> %s", j.state, to))
	}
	j.state = to
}

// record stores a terminal outcome and returns the phase percent it implies.
func (j *jobState) record(phase Phase, out Outcome) int {
	if _, seen := j.outcomes[out.Step]; seen {
		return j.progress.current(phase)
	}
	j.outcomes[out.Step] = out
	switch out.Status {
	case StatusSuccess:
		j.outputs[out.Step] = out.Payload
	case StatusFailure, StatusSkipped:
		if out.Reason != "" {
			j.errors = append(j.errors, StageError{Step: out.Step, Message: out.Reason})
		}
	}
	j.terminalIn[phase]++
	total := j.enabledIn[phase]
	if total == 0 {
		return 100
	}
	return j.terminalIn[phase] * 100 / total
}

// progressTracker keeps one non-decreasing 0-100 counter per phase.
type progressTracker struct {
	last map[Phase]int
}

func newProgressTracker() *progressTracker {
	return &progressTracker{last: make(map[Phase]int)}
}

// advance clamps percent and reports whether it moves the phase forward.
func (p *progressTracker) advance(phase Phase, percent int) (int, bool) {
	percent = min(max(percent, 0), 100)
	if percent <= p.last[phase] {
		return p.last[phase], false
	}
	p.last[phase] = percent
	return percent, true
}

func (p *progressTracker) current(phase Phase) int {
	return p.last[phase]
}
