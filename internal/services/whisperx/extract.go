package whisperx

import (
	"context"
)

// buildFFmpegExtractArgs returns arguments that decode the first audio stream
// of source into a WhisperX-friendly WAV at dest.
func buildFFmpegExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-map", "0:a:0",
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ExtractAudio decodes the first audio stream of source into dest.
func (s *Service) ExtractAudio(ctx context.Context, source, dest string) error {
	return s.runner(ctx, s.ffmpegBinary, buildFFmpegExtractArgs(source, dest), nil)
}
