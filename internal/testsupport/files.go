package testsupport

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"
)

var mediaHeader = []byte("ID3\x04\x00\x00")

// WriteMedia writes a stand-in media file of size bytes at path: an ID3 tag
// followed by a repeating byte pattern. It returns the file's hex SHA-256.
func WriteMedia(t testing.TB, path string, size int64) string {
	t.Helper()

	size = max(size, int64(len(mediaHeader)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	w := io.MultiWriter(f, hasher)
	if _, err := w.Write(mediaHeader); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}

	const chunkSize = 32 * 1024
	chunk := make([]byte, chunkSize)
	for i := range chunk {
		chunk[i] = byte(i % 251)
	}
	for remaining := size - int64(len(mediaHeader)); remaining > 0; {
		n := min(remaining, chunkSize)
		if _, err := w.Write(chunk[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= n
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
