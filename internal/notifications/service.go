package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"repurpose/internal/config"
	"repurpose/internal/pipeline"
)

const userAgent = "Repurpose-Go/0.1.0"

// Event names a notification type.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted: cfg.Notifications.JobCompleted,
			EventJobFailed:    cfg.Notifications.Errors,
			EventTest:         true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobCompleted:
		idea := payload.text("bigIdea")
		if idea == "" {
			idea = payload.text("jobID")
		}
		body := fmt.Sprintf("✅ Content ready: %s", idea)
		title := "Repurpose - Job Complete"
		tags := []string{"repurpose", "job", "completed"}
		if failed := payload.number("failedStages"); failed > 0 {
			title = "Repurpose - Job Complete (with errors)"
			body = fmt.Sprintf("%s\n%d stage(s) failed: %s", body, failed, payload.text("failedList"))
			tags = []string{"repurpose", "job", "partial"}
		}
		if url := payload.text("url"); url != "" {
			body = fmt.Sprintf("%s\n%s", body, url)
		}
		return message{title: title, body: body, tags: tags}, true
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("❌ Job failed")
		if id := payload.text("jobID"); id != "" {
			builder.WriteString(" (")
			builder.WriteString(id)
			builder.WriteString(")")
		}
		builder.WriteString(": ")
		if errText := payload.text("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Repurpose - Error",
			body:     builder.String(),
			tags:     []string{"repurpose", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Repurpose - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"repurpose", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// PublishOutcome reports how a job run ended: a fatal error publishes
// EventJobFailed, anything else EventJobCompleted.
func PublishOutcome(ctx context.Context, svc Service, jobID string, result *pipeline.Result, runErr error) error {
	if svc == nil {
		return nil
	}
	if runErr != nil {
		return svc.Publish(ctx, EventJobFailed, Payload{"jobID": jobID, "error": runErr.Error()})
	}
	if result == nil {
		return nil
	}
	failed := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		failed = append(failed, e.Step)
	}
	payload := Payload{
		"jobID":        result.JobID,
		"bigIdea":      result.Analysis.BigIdea,
		"failedStages": len(failed),
		"failedList":   strings.Join(failed, ", "),
	}
	if result.Record != nil && result.Record.URL != "" {
		payload["url"] = result.Record.URL
	}
	return svc.Publish(ctx, EventJobCompleted, payload)
}
