package pipeline

import "time"

// EventType tags each line of the job event stream.
type EventType string

const (
	EventThinkingStart EventType = "thinking_start"
	EventThinkingToken EventType = "thinking_token"
	EventThinkingDone  EventType = "thinking_done"
	EventStageResult   EventType = "stage_result"
	EventProgress      EventType = "progress"
	EventError         EventType = "error"
	EventComplete      EventType = "complete"
	// EventStatus carries a human readable phase banner.
	EventStatus EventType = "status"
	// EventTranscript carries the transcription result for media sources.
	EventTranscript EventType = "transcript"
)

// Event is one newline-delimited JSON object on the wire. Consumers must
// ignore types they do not recognise.
type Event struct {
	Seq     uint64    `json:"seq"`
	Type    EventType `json:"type"`
	Step    string    `json:"step,omitempty"`
	Label   string    `json:"label,omitempty"`
	Token   string    `json:"token,omitempty"`
	Content any       `json:"content,omitempty"`
	Data    any       `json:"data,omitempty"`
	Phase   Phase     `json:"phase,omitempty"`
	Percent int       `json:"percent,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"ts"`
}

func thinkingStart(step, label string) Event {
	return Event{Type: EventThinkingStart, Step: step, Label: label}
}

func thinkingToken(step, token string) Event {
	return Event{Type: EventThinkingToken, Step: step, Token: token}
}

func thinkingDone(step string, content any) Event {
	return Event{Type: EventThinkingDone, Step: step, Content: content}
}

func stageResult(step string, data any) Event {
	return Event{Type: EventStageResult, Step: step, Data: data}
}

func progressEvent(phase Phase, percent int) Event {
	return Event{Type: EventProgress, Phase: phase, Percent: percent}
}

func errorEvent(step, message string) Event {
	return Event{Type: EventError, Step: step, Message: message}
}

func statusEvent(message string) Event {
	return Event{Type: EventStatus, Message: message}
}

func completeEvent(result *Result) Event {
	return Event{Type: EventComplete, Data: result}
}
