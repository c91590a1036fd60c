package deepl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"repurpose/internal/services"
	"repurpose/internal/services/deepl"
)

func TestTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key dk" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body struct {
			Text       []string `json:"text"`
			TargetLang string   `json:"target_lang"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body.Text) != 1 || body.Text[0] != "Hello" || body.TargetLang != "ES" {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Hola"}]}`))
	}))
	defer server.Close()

	client := deepl.NewClient(deepl.Config{APIKey: "dk", BaseURL: server.URL}, server.Client())
	got, err := client.Translate(context.Background(), "Hello", "es")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got.Text != "Hola" || got.DetectedSourceLanguage != "EN" {
		t.Fatalf("unexpected translation %+v", got)
	}
}

func TestTranslateErrors(t *testing.T) {
	if _, err := deepl.NewClient(deepl.Config{}, nil).Translate(context.Background(), "x", "ES"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()
	client := deepl.NewClient(deepl.Config{APIKey: "bad", BaseURL: server.URL}, server.Client())
	if _, err := client.Translate(context.Background(), "x", "ES"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for 403, got %v", err)
	}
}
