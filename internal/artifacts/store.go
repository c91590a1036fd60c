// Package artifacts stores binary stage outputs (audio, carousel decks,
// thumbnails) on the local filesystem under collision-free keys.
//
// Keys have the form jobs/<job_id>/<stage>/<variant>-<uuid8>.<ext>. Writes go
// to a temporary file in the destination directory and are renamed into place
// once fully written, so readers never observe partial artifacts.
package artifacts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"repurpose/internal/services"
	"repurpose/internal/textutil"
)

// Artifact describes a stored object.
type Artifact struct {
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// LocalFS is a filesystem-backed artifact store rooted at Root.
type LocalFS struct {
	Root string
}

// NewLocalFS ensures root exists and returns a store over it.
func NewLocalFS(root string) (*LocalFS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "init", "artifact root not configured", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "init", "create artifact root", err)
	}
	return &LocalFS{Root: root}, nil
}

// Key builds a unique key for one stage output.
func Key(jobID, stage, variant, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%s-%s.%s", textutil.SanitizeToken(variant), suffix, textutil.SanitizeToken(ext))
	return path.Join("jobs", textutil.SanitizeToken(jobID), textutil.SanitizeToken(stage), name)
}

// Path resolves key under Root, rejecting keys that escape it.
func (l *LocalFS) Path(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" {
		return "", services.Wrap(services.ErrValidation, "artifacts", "resolve", "empty key", nil)
	}
	return filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes r to key atomically and returns its size and digest.
func (l *LocalFS) Put(key string, r io.Reader) (Artifact, error) {
	abs, err := l.Path(key)
	if err != nil {
		return Artifact{}, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "artifacts", "mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "artifacts", "create temp", dir, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		_ = tmp.Close()
		return Artifact{}, services.Wrap(services.ErrExternalTool, "artifacts", "write", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "artifacts", "close", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "artifacts", "chmod", key, err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "artifacts", "rename", key, err)
	}
	rel, _ := filepath.Rel(l.Root, abs)
	return Artifact{
		Key:    filepath.ToSlash(rel),
		Size:   written,
		SHA256: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// PutBytes is Put for an in-memory payload.
func (l *LocalFS) PutBytes(key string, data []byte) (Artifact, error) {
	return l.Put(key, bytes.NewReader(data))
}

// Open returns the stored object for key.
func (l *LocalFS) Open(key string) (*os.File, error) {
	abs, err := l.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "artifacts", "open", key, err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "artifacts", "open", key, err)
	}
	return f, nil
}

// Exists reports whether key holds a regular file.
func (l *LocalFS) Exists(key string) bool {
	abs, err := l.Path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}
