package main

import (
	"os"
	"strings"
	"testing"
	"time"

	"repurpose/internal/logging"
)

func TestLogsReadsFile(t *testing.T) {
	env := setupCLITestEnv(t)
	content := strings.Join([]string{
		"INFO job started job_id=abc",
		"INFO unrelated line",
		"WARN stage failed job_id=abc",
	}, "\n") + "\n"
	if err := os.WriteFile(env.logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--file", "-n", "2"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "job started") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}
	requireContains(t, out, "unrelated line")
	requireContains(t, out, "stage failed")

	out, _, err = runCLI(t, []string{"logs", "--file", "--job", "abc", "-n", "0"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("logs --job: %v", err)
	}
	if strings.Contains(out, "unrelated") {
		t.Fatalf("expected job filter to drop unrelated lines, got %q", out)
	}
	requireContains(t, out, "job started")
}

func TestLogsEmptyFile(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs", "--file"}, env.configPath, nil)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log entries available")
}

func TestFormatLogEvent(t *testing.T) {
	evt := logging.LogEvent{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local),
		Level:     "warn",
		Message:   "stage failed",
		Component: "orchestrator",
		JobID:     "job-1",
		Stage:     "audio",
		Fields:    map[string]string{"reason": "quota", "empty": " "},
	}
	got := formatLogEvent(evt)
	want := "2026-01-02 03:04:05 WARN [orchestrator] Job job-1 (audio) - stage failed\n    - reason: quota"
	if got != want {
		t.Fatalf("formatLogEvent mismatch\n got: %q\nwant: %q", got, want)
	}
}
