package artifacts_test

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"repurpose/internal/artifacts"
	"repurpose/internal/services"
	"repurpose/internal/testsupport"
)

func TestKeyShape(t *testing.T) {
	key := artifacts.Key("job-1", "audio", "Dubbed ES", ".mp3")
	if !regexp.MustCompile(`^jobs/job-1/audio/dubbed_es-[0-9a-f]{8}\.mp3$`).MatchString(key) {
		t.Fatalf("unexpected key %q", key)
	}
	if artifacts.Key("job-1", "audio", "x", "mp3") == artifacts.Key("job-1", "audio", "x", "mp3") {
		t.Fatal("expected keys to be unique")
	}
}

func TestPutOpenExists(t *testing.T) {
	store, err := artifacts.NewLocalFS(filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	key := artifacts.Key("job", "visuals", "carousel", "html")
	art, err := store.PutBytes(key, []byte("<html></html>"))
	if err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	sum := sha256.Sum256([]byte("<html></html>"))
	if art.Key != key || art.Size != 13 || art.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("unexpected artifact %+v", art)
	}
	if !store.Exists(key) {
		t.Fatal("expected artifact to exist")
	}
	f, err := store.Open(key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "<html></html>" {
		t.Fatalf("unexpected contents %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(filepath.Join(store.Root, key)))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".put-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestPutStreamsLargeUpload(t *testing.T) {
	store, err := artifacts.NewLocalFS(filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	src := filepath.Join(t.TempDir(), "talk.mp3")
	const size = 5*32*1024 + 17
	digest := testsupport.WriteMedia(t, src, size)

	f, err := os.Open(src)
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	defer f.Close()
	key := artifacts.Key("job", "input", "media", ".mp3")
	art, err := store.Put(key, f)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if art.Size != size || art.SHA256 != digest {
		t.Fatalf("unexpected artifact %+v, want size %d digest %s", art, size, digest)
	}
	stored, err := os.Stat(filepath.Join(store.Root, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("stat stored artifact: %v", err)
	}
	if stored.Size() != size {
		t.Fatalf("stored size = %d, want %d", stored.Size(), size)
	}
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	store, err := artifacts.NewLocalFS(root)
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	abs, err := store.Path("../../etc/passwd")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if !strings.HasPrefix(abs, root) {
		t.Fatalf("path %q escaped root %q", abs, root)
	}
	if _, err := store.Open("missing/file"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Path(" "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
