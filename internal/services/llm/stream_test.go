package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"repurpose/internal/services"
)

func sseServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprint(w, frame)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}

func deltaFrame(token string) string {
	return fmt.Sprintf("data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", token)
}

func TestStreamDeliversTokensInOrder(t *testing.T) {
	server := sseServer(t,
		": OPENROUTER PROCESSING\n\n",
		deltaFrame("Hel"),
		deltaFrame("lo"),
		deltaFrame(" there"),
		"data: [DONE]\n\n",
		deltaFrame("ignored"),
	)
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	var tokens []string
	text, err := client.Stream(context.Background(), Request{User: "hi"}, func(tok string) {
		tokens = append(tokens, tok)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if text != "Hello there" {
		t.Fatalf("unexpected text %q", text)
	}
	if strings.Join(tokens, "|") != "Hel|lo| there" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
}

func TestStreamRetriesBeforeFirstToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, deltaFrame("ok"), "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	text, err := client.Stream(context.Background(), Request{User: "hi"}, nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if text != "ok" || calls.Load() != 2 {
		t.Fatalf("unexpected result %q after %d calls", text, calls.Load())
	}
}

func TestStreamDoesNotRetryAfterTokens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, deltaFrame("partial"), "data: {not json}\n\n")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	var got []string
	text, err := client.Stream(context.Background(), Request{User: "hi"}, func(tok string) { got = append(got, tok) })
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if text != "partial" || len(got) != 1 || calls.Load() != 1 {
		t.Fatalf("unexpected partial=%q tokens=%v calls=%d", text, got, calls.Load())
	}
}

func TestStreamMissingKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Stream(context.Background(), Request{User: "hi"}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestReadDataLinesJoinsMultilineData(t *testing.T) {
	body := "event: message\ndata: one\ndata: two\n\ndata: three\n"
	var got []string
	err := readDataLines(strings.NewReader(body), func(data string) (bool, error) {
		got = append(got, data)
		return false, nil
	})
	if err != nil {
		t.Fatalf("readDataLines: %v", err)
	}
	if len(got) != 2 || got[0] != "one\ntwo" || got[1] != "three" {
		t.Fatalf("unexpected payloads %q", got)
	}
}
