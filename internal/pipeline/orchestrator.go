package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"repurpose/internal/logging"
	"repurpose/internal/services"
)

var (
	// ErrEmptyTranscript marks a job whose transcript is blank after trimming.
	ErrEmptyTranscript = errors.New("transcript is empty")
	// ErrMissingCredential marks a job that cannot start without a required key.
	ErrMissingCredential = errors.New("required credential is missing")
	// ErrUnknownPlatform marks a platform selection naming no stage or group.
	ErrUnknownPlatform = errors.New("unknown platform")
)

const analysisLabel = "Analyzing transcript..."

// Transcript is the transcription provider's result for a media source.
type Transcript struct {
	Text            string  `json:"text"`
	Language        string  `json:"language,omitempty"`
	Segments        int     `json:"segments"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Transcriber converts a media source into text. progress receives values in
// the 0-1 range and may be called from any goroutine.
type Transcriber interface {
	Transcribe(ctx context.Context, source string, progress func(float64)) (Transcript, error)
}

// Credential describes one external key the orchestrator was configured with.
type Credential struct {
	Name     string
	Present  bool
	Required bool
}

// Job is one generation request.
type Job struct {
	ID         string
	Transcript string
	// Source is a media path or URL transcribed when Transcript is blank.
	Source    string
	Platforms []string
	Tone      string
}

// Options wires collaborators and policy into an Orchestrator.
type Options struct {
	Analyzer    Analyzer
	Transcriber Transcriber
	Store       Store
	Logger      *slog.Logger
	// ForegroundStages overrides the declared modes when non-nil: listed
	// stages stream tokens, all others run in the background.
	ForegroundStages   []string
	Credentials        []Credential
	MaxTranscriptChars int
	DefaultTone        string
	NewID              func() string
	Clock              func() time.Time
}

// Orchestrator runs the analysis stage and then every enabled derived stage
// of a job, merging their events into one ordered stream.
type Orchestrator struct {
	specs      []StageSpec
	index      map[string]int
	dependents map[string][]string

	analyzer    Analyzer
	transcriber Transcriber
	store       Store
	logger      *slog.Logger

	maxChars    int
	defaultTone string
	newID       func() string
	clock       func() time.Time

	// fatal is a precondition failure found at construction.
	fatal error
}

// New validates the stage table and captures collaborators. A missing
// required credential does not fail construction; every Run reports it as
// the job's single terminal error instead.
func New(specs []StageSpec, opts Options) (*Orchestrator, error) {
	if opts.Analyzer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "construct", "analyzer is required", nil)
	}
	o := &Orchestrator{
		specs:       make([]StageSpec, 0, len(specs)),
		index:       make(map[string]int, len(specs)),
		dependents:  make(map[string][]string),
		analyzer:    opts.Analyzer,
		transcriber: opts.Transcriber,
		store:       opts.Store,
		logger:      logging.NewComponentLogger(opts.Logger, "orchestrator"),
		maxChars:    opts.MaxTranscriptChars,
		defaultTone: strings.TrimSpace(opts.DefaultTone),
		newID:       opts.NewID,
		clock:       opts.Clock,
	}
	if o.defaultTone == "" {
		o.defaultTone = "professional"
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	var foreground map[string]bool
	if opts.ForegroundStages != nil {
		foreground = make(map[string]bool, len(opts.ForegroundStages))
		for _, id := range opts.ForegroundStages {
			foreground[strings.ToLower(strings.TrimSpace(id))] = true
		}
	}

	for _, spec := range specs {
		spec.ID = strings.TrimSpace(spec.ID)
		switch {
		case spec.ID == "" || spec.ID == AnalysisStep:
			return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "construct", fmt.Sprintf("invalid stage id %q", spec.ID), nil)
		case spec.Run == nil:
			return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "construct", fmt.Sprintf("stage %s has no run function", spec.ID), nil)
		}
		if _, dup := o.index[spec.ID]; dup {
			return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "construct", fmt.Sprintf("duplicate stage id %s", spec.ID), nil)
		}
		if spec.Mode == "" {
			spec.Mode = Background
		}
		if spec.Phase == "" {
			spec.Phase = PhaseGeneration
		}
		if foreground != nil {
			spec.Mode = Background
			if foreground[spec.ID] {
				spec.Mode = Foreground
			}
		}
		o.index[spec.ID] = len(o.specs)
		o.specs = append(o.specs, spec)
	}

	for _, spec := range o.specs {
		if spec.After == "" {
			continue
		}
		prereq, ok := o.index[spec.After]
		switch {
		case !ok:
			return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "construct", fmt.Sprintf("stage %s depends on unknown stage %s", spec.ID, spec.After), nil)
		case spec.After == spec.ID:
			return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "construct", fmt.Sprintf("stage %s depends on itself", spec.ID), nil)
		case o.specs[prereq].After != "":
			return nil, services.Wrap(services.ErrConfiguration, "orchestrator", "construct", fmt.Sprintf("stage %s depends on chained stage %s", spec.ID, spec.After), nil)
		}
		o.dependents[spec.After] = append(o.dependents[spec.After], spec.ID)
	}

	for _, cred := range opts.Credentials {
		if cred.Required && !cred.Present {
			o.fatal = services.Wrap(services.ErrConfiguration, "orchestrator", "preflight", fmt.Sprintf("missing %s", cred.Name), ErrMissingCredential)
			break
		}
	}
	return o, nil
}

// Specs returns the stage table with resolved modes, in declaration order.
func (o *Orchestrator) Specs() []StageSpec {
	out := make([]StageSpec, len(o.specs))
	copy(out, o.specs)
	return out
}

// ValidatePlatforms rejects names that are neither a stage ID nor a group.
func (o *Orchestrator) ValidatePlatforms(names []string) error {
	var unknown []string
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, ok := platformGroups[name]; ok {
			continue
		}
		if _, ok := o.index[name]; ok {
			continue
		}
		unknown = append(unknown, raw)
	}
	if len(unknown) == 0 {
		return nil
	}
	return services.Wrap(services.ErrValidation, "orchestrator", "validate platforms", strings.Join(unknown, ", "), ErrUnknownPlatform)
}

// Run executes job and streams its events to out. It returns the final
// aggregate, or an error when a fatal precondition stopped the job before
// analysis. Cancelling ctx does not interrupt running stages.
func (o *Orchestrator) Run(ctx context.Context, job Job, out Emitter) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	if strings.TrimSpace(job.ID) == "" {
		job.ID = o.newID()
	}
	ctx = services.WithJobID(ctx, job.ID)
	r := &run{
		o:      o,
		job:    job,
		out:    out,
		state:  newJobState(),
		logger: logging.WithContext(ctx, o.logger),
		start:  o.clock(),
	}
	return r.execute(ctx)
}

// stageMessage is the only channel between stage goroutines and the loop.
type stageMessage struct {
	kind    messageKind
	step    string
	token   string
	outcome Outcome
}

type messageKind int

const (
	messageStart messageKind = iota
	messageToken
	messageDone
)

// run is the per-job execution. All fields are touched only by the goroutine
// that called Orchestrator.Run.
type run struct {
	o      *Orchestrator
	job    Job
	out    Emitter
	state  *jobState
	logger *slog.Logger
	seq    uint64
	start  time.Time

	tone       string
	transcript string
	streamed   map[string]*strings.Builder
}

func (r *run) emit(ev Event) {
	if r.out == nil {
		return
	}
	r.seq++
	ev.Seq = r.seq
	ev.Time = r.o.clock().UTC()
	r.out.Emit(ev)
}

func (r *run) progress(phase Phase, percent int) {
	if p, ok := r.state.progress.advance(phase, percent); ok {
		r.emit(progressEvent(phase, p))
	}
}

func (r *run) fail(err error) (*Result, error) {
	r.emit(errorEvent("", err.Error()))
	logging.ErrorWithContext(r.logger, "job aborted", "job_aborted", logging.ErrorDetails(err)...)
	return nil, err
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	if r.o.fatal != nil {
		return r.fail(r.o.fatal)
	}
	r.tone = strings.TrimSpace(r.job.Tone)
	if r.tone == "" {
		r.tone = r.o.defaultTone
	}
	r.transcript = r.job.Transcript
	if strings.TrimSpace(r.transcript) == "" && strings.TrimSpace(r.job.Source) != "" {
		if err := r.transcribe(ctx); err != nil {
			return r.fail(err)
		}
	}
	if strings.TrimSpace(r.transcript) == "" {
		return r.fail(services.Wrap(services.ErrValidation, "orchestrator", "preflight", "", ErrEmptyTranscript))
	}

	r.logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Int("transcript_chars", len([]rune(r.transcript))),
		logging.String("tone", r.tone),
	)

	r.state.advance(StateRunningAnalysis)
	r.analyze(ctx)
	r.state.advance(StateAnalysisDone)

	r.state.advance(StateRunningDerived)
	r.derive(ctx)
	r.state.advance(StateDraining)

	result := r.aggregate()
	result.Record = r.persist(ctx, result)
	r.state.advance(StateDone)
	r.emit(completeEvent(result))

	r.logger.Info("job complete",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("outputs", len(result.Outputs)),
		logging.Int("errors", len(result.Errors)),
		logging.Duration("job_duration", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

// transcriptionLogBucket is the percent step between transcription progress
// log lines. Progress events are not sampled.
const transcriptionLogBucket = 5

func (r *run) transcribe(ctx context.Context) error {
	if r.o.transcriber == nil {
		return services.Wrap(services.ErrConfiguration, "transcription", "transcribe", "no transcription provider configured", nil)
	}
	r.emit(statusEvent("Transcribing media..."))
	sampler := logging.NewProgressSampler(transcriptionLogBucket)
	tr, err := RunBlocking(ctx, func(ctx context.Context, report func(float64)) (Transcript, error) {
		return r.o.transcriber.Transcribe(ctx, r.job.Source, report)
	}, func(fraction float64) {
		percent := int(fraction * 100)
		if percent >= 100 {
			// 100 is reserved for the finished transcript.
			percent = 99
		}
		if sampler.ShouldLog(float64(percent), string(PhaseTranscription)) {
			r.logger.Debug("transcription progress", logging.Int("percent", percent))
		}
		r.progress(PhaseTranscription, percent)
	})
	if err != nil {
		return err
	}
	r.progress(PhaseTranscription, 100)
	r.transcript = tr.Text
	if strings.TrimSpace(tr.Text) != "" {
		r.emit(Event{Type: EventTranscript, Data: tr})
	}
	r.logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.Int("segments", tr.Segments),
		logging.Float64("duration_seconds", tr.DurationSeconds),
	)
	return nil
}

// analyze runs the root stage on the orchestrator goroutine. It always
// leaves a usable Analysis in JobState.
func (r *run) analyze(ctx context.Context) {
	ctx = services.WithStage(ctx, AnalysisStep)
	logger := logging.WithContext(ctx, r.o.logger)
	r.emit(thinkingStart(AnalysisStep, analysisLabel))

	started := r.o.clock()
	raw, err := r.safeAnalyze(ctx, truncateRunes(r.transcript, r.o.maxChars), func(token string) {
		if token != "" {
			r.emit(thinkingToken(AnalysisStep, token))
		}
	})

	var analysis Analysis
	if err != nil {
		analysis = DefaultAnalysis(r.tone)
		logging.WarnWithContext(logger, "analysis failed; using default", "analysis_degraded",
			append(logging.ErrorDetails(err), logging.String(logging.FieldImpact, "derived stages use a generic analysis"))...)
	} else {
		var ok bool
		analysis, ok = ParseAnalysis(raw, r.tone)
		if !ok {
			logging.WarnWithContext(logger, "analysis output unparseable; using default", "analysis_degraded",
				logging.String("snippet", truncateRunes(raw, 120)),
				logging.String(logging.FieldImpact, "derived stages use a generic analysis"),
			)
		}
	}
	r.state.analysis = analysis

	r.emit(thinkingDone(AnalysisStep, raw))
	r.emit(stageResult(AnalysisStep, analysis))
	r.progress(PhaseAnalysis, 100)
	logger.Info("analysis complete",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", r.o.clock().Sub(started)),
	)
}

func (r *run) safeAnalyze(ctx context.Context, transcript string, tokens func(string)) (raw string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = services.Wrap(services.ErrExternalTool, AnalysisStep, "analyze", fmt.Sprintf("panic: %v", rec), nil)
		}
	}()
	return r.o.analyzer.Analyze(ctx, transcript, r.tone, tokens)
}

// derive launches every enabled stage and drains their messages until each
// has reported a terminal outcome.
func (r *run) derive(ctx context.Context) {
	sel := NewSelection(r.job.Platforms)
	enabled := make(map[string]bool, len(r.o.specs))
	for _, spec := range r.o.specs {
		if spec.enabled(sel) {
			enabled[spec.ID] = true
			r.state.enabledIn[spec.Phase]++
		} else {
			r.state.outcomes[spec.ID] = Outcome{Step: spec.ID, Mode: spec.Mode, Status: StatusSkipped}
		}
	}
	if len(enabled) == 0 {
		r.logger.Info("no derived stages selected", logging.Any("platforms", r.job.Platforms))
		return
	}

	updates := make(chan stageMessage, 64)
	r.streamed = make(map[string]*strings.Builder)
	pending := 0
	base := StageInput{
		JobID:      r.job.ID,
		Source:     r.job.Source,
		Transcript: r.transcript,
		Tone:       r.tone,
		Analysis:   r.state.analysis,
	}

	for _, spec := range r.o.specs {
		if !enabled[spec.ID] {
			continue
		}
		if spec.After != "" {
			if !enabled[spec.After] {
				r.finish(Outcome{
					Step:   spec.ID,
					Mode:   spec.Mode,
					Status: StatusSkipped,
					Reason: fmt.Sprintf("skipped: requires %s, which was not selected", spec.After),
				})
			}
			continue
		}
		r.launch(ctx, spec, base, updates)
		pending++
	}

	for pending > 0 {
		msg := <-updates
		spec := r.o.specs[r.o.index[msg.step]]
		switch msg.kind {
		case messageStart:
			if spec.Mode == Foreground {
				r.streamed[spec.ID] = &strings.Builder{}
				r.emit(thinkingStart(spec.ID, spec.label()))
			}
		case messageToken:
			if b := r.streamed[spec.ID]; b != nil {
				b.WriteString(msg.token)
			}
			r.emit(thinkingToken(spec.ID, msg.token))
		case messageDone:
			pending--
			r.finish(msg.outcome)
			for _, depID := range r.o.dependents[spec.ID] {
				if !enabled[depID] {
					continue
				}
				dep := r.o.specs[r.o.index[depID]]
				if msg.outcome.Status != StatusSuccess {
					r.finish(Outcome{
						Step:   dep.ID,
						Mode:   dep.Mode,
						Status: StatusSkipped,
						Reason: fmt.Sprintf("skipped: prerequisite %s did not succeed", spec.ID),
					})
					continue
				}
				in := base
				in.Upstream = msg.outcome.Payload
				r.launch(ctx, dep, in, updates)
				pending++
			}
		}
	}
}

// launch starts one stage goroutine. The goroutine reports through updates
// only and always sends exactly one done message.
func (r *run) launch(ctx context.Context, spec StageSpec, in StageInput, updates chan<- stageMessage) {
	ctx = services.WithStage(ctx, spec.ID)
	ctx = services.WithMode(ctx, string(spec.Mode))
	logger := logging.WithContext(ctx, r.o.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	go func() {
		started := r.o.clock()
		updates <- stageMessage{kind: messageStart, step: spec.ID}
		tokens := func(string) {}
		if spec.Mode == Foreground {
			tokens = func(token string) {
				if token != "" {
					updates <- stageMessage{kind: messageToken, step: spec.ID, token: token}
				}
			}
		}
		payload, err := runStage(ctx, spec, in, tokens)
		outcome := Outcome{Step: spec.ID, Mode: spec.Mode, Duration: r.o.clock().Sub(started)}
		if err != nil {
			outcome.Status = StatusFailure
			outcome.Reason = err.Error()
			logging.WarnWithContext(logger, "stage failed", "stage_failure",
				append(logging.ErrorDetails(err), logging.Duration("stage_duration", outcome.Duration))...)
		} else {
			outcome.Status = StatusSuccess
			outcome.Payload = payload
			logger.Info("stage complete",
				logging.String(logging.FieldEventType, "stage_complete"),
				logging.Duration("stage_duration", outcome.Duration),
			)
		}
		updates <- stageMessage{kind: messageDone, step: spec.ID, outcome: outcome}
	}()
}

func runStage(ctx context.Context, spec StageSpec, in StageInput, tokens func(string)) (payload any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			payload = nil
			err = services.Wrap(services.ErrExternalTool, spec.ID, "run", fmt.Sprintf("panic: %v", rec), nil)
		}
	}()
	return spec.Run(ctx, in, tokens)
}

// finish records a terminal outcome and emits its events and phase progress.
func (r *run) finish(out Outcome) {
	spec := r.o.specs[r.o.index[out.Step]]
	if b, ok := r.streamed[out.Step]; ok {
		if out.Status == StatusSuccess {
			r.emit(thinkingDone(out.Step, b.String()))
		} else {
			r.emit(thinkingDone(out.Step, nil))
		}
		delete(r.streamed, out.Step)
	}
	switch out.Status {
	case StatusSuccess:
		r.emit(stageResult(out.Step, out.Payload))
	case StatusFailure:
		r.emit(errorEvent(out.Step, out.Reason))
	case StatusSkipped:
		if out.Reason != "" {
			r.emit(errorEvent(out.Step, out.Reason))
			r.logger.Info("stage skipped",
				logging.String(logging.FieldEventType, "stage_skipped"),
				logging.String(logging.FieldStage, out.Step),
				logging.String("reason", out.Reason),
			)
		}
	}
	r.progress(spec.Phase, r.state.record(spec.Phase, out))
}

func (r *run) aggregate() *Result {
	st := r.state
	result := &Result{
		JobID:      r.job.ID,
		Source:     r.job.Source,
		Tone:       r.tone,
		Analysis:   st.analysis,
		Outputs:    st.outputs,
		Errors:     st.errors,
		Stages:     make([]StageSummary, 0, len(r.o.specs)),
		StartedAt:  r.start.UTC(),
		FinishedAt: r.o.clock().UTC(),
	}
	if r.job.Source != "" {
		result.Transcript = r.transcript
	}
	if result.Errors == nil {
		result.Errors = []StageError{}
	}
	for _, spec := range r.o.specs {
		out, ok := st.outcomes[spec.ID]
		if !ok {
			continue
		}
		result.Stages = append(result.Stages, StageSummary{
			Step:       spec.ID,
			Mode:       spec.Mode,
			Status:     out.Status,
			Reason:     out.Reason,
			DurationMS: out.Duration.Milliseconds(),
		})
	}
	return result
}

// persist hands the aggregate to the store on its own goroutine. Failures
// are embedded in the record and never abort the job.
func (r *run) persist(ctx context.Context, result *Result) *Record {
	if r.o.store == nil {
		return nil
	}
	done := make(chan Record, 1)
	go func() {
		var rec Record
		defer func() {
			if p := recover(); p != nil {
				rec = Record{Error: fmt.Sprintf("persist panicked: %v", p)}
			}
			done <- rec
		}()
		saved, err := r.o.store.Persist(ctx, result)
		if err != nil {
			rec = Record{Error: err.Error()}
			logging.WarnWithContext(r.logger, "persist failed", "persist_failure",
				append(logging.ErrorDetails(err),
					logging.String(logging.FieldImpact, "generated content is returned but not stored"),
					logging.Alert("job_not_persisted"),
				)...)
			return
		}
		rec = saved
	}()
	rec := <-done
	return &rec
}
