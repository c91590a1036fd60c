package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// FFmpegEnv overrides the ffmpeg binary used for audio extraction.
const FFmpegEnv = "REPURPOSE_FFMPEG"

// ResolveFFmpeg reports the ffmpeg binary used to extract audio before
// transcription. An executable named by FFmpegEnv wins; otherwise "ffmpeg"
// is resolved from PATH.
func ResolveFFmpeg() Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Extracts audio from media sources before transcription",
	}

	if override := strings.TrimSpace(os.Getenv(FFmpegEnv)); override != "" {
		if info, err := os.Stat(override); err == nil && isExecutable(info) {
			result.Command = override
			result.Available = true
			return result
		}
		if resolved, err := exec.LookPath(override); err == nil {
			result.Command = resolved
			result.Available = true
			return result
		}
	}

	ffmpegName := executableName("ffmpeg")
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

// CommandOr returns the resolved binary, or fallback when none was found.
func (s Status) CommandOr(fallback string) string {
	if s.Command != "" {
		return s.Command
	}
	return fallback
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
