package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"repurpose/internal/pipeline"
)

// prettySink renders job events for a terminal: foreground tokens stream
// inline, everything else becomes a status line, and the final result is
// summarized as a table.
type prettySink struct {
	w         io.Writer
	colorize  bool
	streaming string
}

func newPrettySink(w io.Writer, colorize bool) *prettySink {
	return &prettySink{w: w, colorize: colorize}
}

func (p *prettySink) Send(ev pipeline.Event) error {
	if ev.Type != pipeline.EventThinkingToken {
		p.endStream()
	}
	switch ev.Type {
	case pipeline.EventThinkingStart:
		label := ev.Label
		if label == "" {
			label = ev.Step
		}
		p.lines(renderSectionHeader(label, p.colorize)...)
	case pipeline.EventThinkingToken:
		p.streaming = ev.Step
		_, err := io.WriteString(p.w, ev.Token)
		return err
	case pipeline.EventThinkingDone:
	case pipeline.EventStatus:
		p.lines(renderStatusLine("Status", statusInfo, ev.Message, p.colorize))
	case pipeline.EventTranscript:
		p.lines(renderStatusLine("Transcript", statusOK, transcriptDetail(ev.Data), p.colorize))
	case pipeline.EventProgress:
		p.lines(renderStatusLine("Progress", statusInfo, fmt.Sprintf("%s %d%%", ev.Phase, ev.Percent), p.colorize))
	case pipeline.EventStageResult:
		p.lines(renderStatusLine(ev.Step, statusOK, "ready", p.colorize))
	case pipeline.EventError:
		label := ev.Step
		if label == "" {
			label = "Job"
		}
		p.lines(renderStatusLine(label, statusError, ev.Message, p.colorize))
	case pipeline.EventComplete:
		if result, ok := ev.Data.(*pipeline.Result); ok {
			p.lines(renderResultSummary(result, p.colorize)...)
		}
	}
	return nil
}

func (p *prettySink) endStream() {
	if p.streaming == "" {
		return
	}
	fmt.Fprintln(p.w)
	p.streaming = ""
}

func (p *prettySink) lines(lines ...string) {
	printLines(p.w, lines...)
}

func transcriptDetail(data any) string {
	tr, ok := data.(pipeline.Transcript)
	if !ok {
		return "received"
	}
	detail := fmt.Sprintf("%d characters, %d segments", len([]rune(tr.Text)), tr.Segments)
	if tr.Language != "" {
		detail += " (" + tr.Language + ")"
	}
	return detail
}

func renderResultSummary(result *pipeline.Result, colorize bool) []string {
	lines := renderSectionHeader("Summary", colorize)
	if idea := strings.TrimSpace(result.Analysis.BigIdea); idea != "" {
		lines = append(lines, renderStatusLine("Big idea", statusInfo, idea, colorize))
	}

	rows := make([][]string, 0, len(result.Stages))
	for _, stage := range result.Stages {
		duration := ""
		if stage.DurationMS > 0 {
			duration = (time.Duration(stage.DurationMS) * time.Millisecond).Round(10 * time.Millisecond).String()
		}
		rows = append(rows, []string{stage.Step, string(stage.Mode), string(stage.Status), duration, stage.Reason})
	}
	if len(rows) > 0 {
		lines = append(lines, renderTable(
			[]string{"Stage", "Mode", "Status", "Duration", "Reason"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}

	if result.Record != nil {
		switch {
		case result.Record.Error != "":
			lines = append(lines, renderStatusLine("Record", statusWarn, "not saved: "+result.Record.Error, colorize))
		case result.Record.URL != "":
			lines = append(lines, renderStatusLine("Record", statusOK, result.Record.URL, colorize))
		case result.Record.ID != "":
			lines = append(lines, renderStatusLine("Record", statusOK, result.Record.ID, colorize))
		}
	}
	if n := len(result.Errors); n > 0 {
		lines = append(lines, renderStatusLine("Errors", statusWarn, fmt.Sprintf("%d stage(s) failed", n), colorize))
	}
	return lines
}
