package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestResolveFFmpegOverride(t *testing.T) {
	tmp := t.TempDir()
	override := filepath.Join(tmp, executableName("my-ffmpeg"))
	if err := os.WriteFile(override, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write override stub: %v", err)
	}
	t.Setenv(FFmpegEnv, override)
	t.Setenv("PATH", "")

	status := ResolveFFmpeg()
	if !status.Available {
		t.Fatalf("expected override to be available, got detail %q", status.Detail)
	}
	if status.Command != override {
		t.Fatalf("expected ffmpeg command %q, got %q", override, status.Command)
	}
}

func TestResolveFFmpegPathFallback(t *testing.T) {
	binDir := t.TempDir()
	ffmpegPath := filepath.Join(binDir, executableName("ffmpeg"))
	if err := os.WriteFile(ffmpegPath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	t.Setenv(FFmpegEnv, "")
	t.Setenv("PATH", binDir)

	status := ResolveFFmpeg()
	if !status.Available {
		t.Fatalf("expected ffmpeg on PATH to be available, got detail %q", status.Detail)
	}
	if status.Command != ffmpegPath {
		t.Fatalf("expected ffmpeg command %q, got %q", ffmpegPath, status.Command)
	}
}

func TestResolveFFmpegNotFound(t *testing.T) {
	t.Setenv(FFmpegEnv, "")
	t.Setenv("PATH", "")
	status := ResolveFFmpeg()
	if status.Available {
		t.Fatal("expected ffmpeg resolution to fail")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when ffmpeg is unavailable")
	}
	if status.CommandOr("ffmpeg") != executableName("ffmpeg") {
		t.Fatalf("unexpected fallback command %q", status.CommandOr("ffmpeg"))
	}
}
