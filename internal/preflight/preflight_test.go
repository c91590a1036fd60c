package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"repurpose/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM", config.LLM{})
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": `{"ok": true}`}}},
		})
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM", config.LLM{APIKey: "good-key", BaseURL: srv.URL, Model: "m"})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}

	result = CheckLLM(context.Background(), "LLM", config.LLM{APIKey: "bad-key", BaseURL: srv.URL, Model: "m"})
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.ArtifactDir = t.TempDir()
	cfg.LLM.APIKey = "key"

	results := RunAll(context.Background(), &cfg)
	// three directories plus five credentials
	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if blocking := Blocking(results); len(blocking) != 0 {
		t.Fatalf("expected no blocking failures, got %#v", blocking)
	}
}

func TestRunAll_MissingLLMKeyBlocks(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Paths.ArtifactDir = t.TempDir()
	cfg.LLM.APIKey = ""

	blocking := Blocking(RunAll(context.Background(), &cfg))
	if len(blocking) != 1 || blocking[0].Name != "Credential llm.api_key" {
		t.Fatalf("expected only the llm key to block, got %#v", blocking)
	}
	if !strings.Contains(blocking[0].Detail, "OPENROUTER_API_KEY") {
		t.Fatalf("expected env var hint, got %q", blocking[0].Detail)
	}
}

func TestCheckCredentials_OptionalNamesStage(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "key"
	cfg.Tavily.APIKey = "tv"

	for _, r := range CheckCredentials(&cfg) {
		switch r.Name {
		case "Credential deepl.api_key":
			if !r.Optional || !strings.Contains(r.Detail, "audio") {
				t.Fatalf("unexpected deepl result: %#v", r)
			}
		case "Credential tavily.api_key":
			if r.Detail != "Configured" {
				t.Fatalf("unexpected tavily result: %#v", r)
			}
		}
	}
}

func TestCheckNotificationsFromConfig(t *testing.T) {
	cfg := config.Default()
	if got := CheckNotificationsFromConfig(&cfg).Detail; got != "Disabled" {
		t.Fatalf("detail = %q", got)
	}
	cfg.Notifications.NtfyTopic = "https://ntfy.sh/topic"
	cfg.Notifications.JobCompleted = true
	cfg.Notifications.Errors = false
	if got := CheckNotificationsFromConfig(&cfg).Detail; got != "https://ntfy.sh/topic (job completed)" {
		t.Fatalf("detail = %q", got)
	}
}

func TestCheckSystemDeps_AllOptional(t *testing.T) {
	cfg := config.Default()
	var downloader string
	for _, status := range CheckSystemDeps(&cfg) {
		if !status.Optional {
			t.Fatalf("expected %s to be optional", status.Name)
		}
		if status.Name == "yt-dlp" {
			downloader = status.Command
		}
	}
	if downloader != "yt-dlp" {
		t.Fatalf("expected yt-dlp requirement with default command, got %q", downloader)
	}
}
