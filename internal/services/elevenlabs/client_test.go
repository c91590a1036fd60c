package elevenlabs_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"repurpose/internal/services"
	"repurpose/internal/services/elevenlabs"
)

func TestSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "el" || r.Header.Get("Accept") != "audio/mpeg" {
			t.Errorf("unexpected headers %v", r.Header)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer server.Close()

	client := elevenlabs.NewClient(elevenlabs.Config{APIKey: "el", BaseURL: server.URL, VoiceID: "voice-1"}, server.Client())
	audio, err := client.Synthesize(context.Background(), "Hola mundo")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !bytes.Equal(audio, []byte("ID3audio")) {
		t.Fatalf("unexpected audio %q", audio)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	if _, err := elevenlabs.NewClient(elevenlabs.Config{}, nil).Synthesize(context.Background(), "x"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	client := elevenlabs.NewClient(elevenlabs.Config{APIKey: "el", BaseURL: server.URL}, server.Client())
	if _, err := client.Synthesize(context.Background(), "x"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external error for empty body, got %v", err)
	}
	if _, err := client.Synthesize(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
