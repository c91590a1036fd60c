package whisperx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"repurpose/internal/services"
)

const (
	downloadStem     = "download"
	urlCheckTimeout  = 10 * time.Second
	downloadedFormat = "worstaudio/worst"
)

// IsRemote reports whether source is an http(s) URL rather than a local file.
func IsRemote(source string) bool {
	parsed, err := url.Parse(strings.TrimSpace(source))
	if err != nil || parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// CheckURL issues a HEAD request against a video page and fails unless it
// answers 200 after redirects.
func (s *Service) CheckURL(ctx context.Context, videoURL string) error {
	ctx, cancel := context.WithTimeout(ctx, urlCheckTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, videoURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcription", "check url", "invalid video url", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcription", "check url", "video url is not accessible", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrValidation, "transcription", "check url",
			fmt.Sprintf("video url is not accessible (status %d)", resp.StatusCode), nil)
	}
	return nil
}

// buildDownloadArgs asks yt-dlp for the smallest audio stream of videoURL,
// printing one progress line per update.
func buildDownloadArgs(videoURL, workDir string) []string {
	return []string{
		"--format", downloadedFormat,
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--concurrent-fragments", "16",
		"--output", filepath.Join(workDir, downloadStem+".%(ext)s"),
		"--print", "after_move:filepath",
		videoURL,
	}
}

// Download fetches the audio of videoURL into workDir with yt-dlp and returns
// the downloaded file. report receives download percentages from 0 to 100.
func (s *Service) Download(ctx context.Context, videoURL, workDir string, report func(float64)) (string, error) {
	var printed string
	err := s.runner(ctx, s.downloader, buildDownloadArgs(videoURL, workDir), func(line string) {
		if pct, ok := parseDownloadProgress(line); ok {
			if report != nil {
				report(pct)
			}
			return
		}
		if candidate := strings.TrimSpace(line); filepath.IsAbs(candidate) {
			printed = candidate
		}
	})
	if err != nil {
		return "", err
	}
	if printed != "" {
		return printed, nil
	}
	matches, _ := filepath.Glob(filepath.Join(workDir, downloadStem+".*"))
	for _, match := range matches {
		if !strings.HasSuffix(match, ".part") {
			return match, nil
		}
	}
	return "", fmt.Errorf("%s produced no audio file for %s", s.downloader, videoURL)
}

var downloadProgressPattern = regexp.MustCompile(`^\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`)

func parseDownloadProgress(line string) (float64, bool) {
	m := downloadProgressPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return min(max(pct, 0), 100), true
}
