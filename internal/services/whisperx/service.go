package whisperx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"repurpose/internal/pipeline"
	"repurpose/internal/services"
)

// CommandRunner executes name with args, passing every stdout line to onLine.
type CommandRunner func(ctx context.Context, name string, args []string, onLine func(string)) error

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg          Config
	ffmpegBinary string
	downloader   string
	runner       CommandRunner
	httpClient   services.HTTPDoer
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, ffmpegBinary string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = UVXCommand
	}
	downloader := strings.TrimSpace(cfg.Downloader)
	if downloader == "" {
		downloader = YTDLPCommand
	}
	return &Service{
		cfg:          cfg,
		ffmpegBinary: ffmpegBinary,
		downloader:   downloader,
		runner:       runCommand,
		httpClient:   &http.Client{},
	}
}

// WithHTTPClient sets the client used to check video URLs (for testing).
func (s *Service) WithHTTPClient(client services.HTTPDoer) {
	if client != nil {
		s.httpClient = client
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		s.runner = runner
	}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Transcribe extracts audio from source, runs WhisperX over it and returns
// the joined segment text. An http(s) source is checked and downloaded with
// yt-dlp first. progress receives values between 0 and 1.
func (s *Service) Transcribe(ctx context.Context, source string, progress func(float64)) (pipeline.Transcript, error) {
	var result pipeline.Transcript
	source = strings.TrimSpace(source)
	if source == "" {
		return result, services.Wrap(services.ErrValidation, "transcription", "whisperx", "source path required", nil)
	}
	if progress == nil {
		progress = func(float64) {}
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	workDir, err := os.MkdirTemp(s.cfg.WorkDir, "whisperx-")
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "transcription", "whisperx", "create work dir", err)
	}
	defer os.RemoveAll(workDir)

	extracted, modelSpan := progressExtracted, progressModelSpan
	if IsRemote(source) {
		if err := s.CheckURL(ctx, source); err != nil {
			return result, err
		}
		downloaded, err := s.Download(ctx, source, workDir, func(pct float64) {
			progress(progressDownloadSpan * (pct / 100))
		})
		if err != nil {
			return result, classify(ctx, "download", err)
		}
		source = downloaded
		extracted, modelSpan = progressRemoteExtracted, progressRemoteModelSpan
	}

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := s.ExtractAudio(ctx, source, audioPath); err != nil {
		return result, classify(ctx, "extract audio", err)
	}
	progress(extracted)

	args := s.buildArgs(audioPath, workDir)
	err = s.runner(ctx, s.cfg.Command, args, func(line string) {
		if pct, ok := parseProgress(line); ok {
			progress(extracted + modelSpan*pct/100)
		}
	})
	if err != nil {
		return result, classify(ctx, "whisperx", err)
	}

	payload, err := loadPayload(filepath.Join(workDir, "audio.json"))
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcription", "whisperx", "read output", err)
	}
	result = payload.transcript()
	progress(1)
	return result, nil
}

func classify(ctx context.Context, operation string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "transcription", operation, "", err)
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return services.Wrap(services.ErrConfiguration, "transcription", operation, "command not found", err)
	}
	return services.Wrap(services.ErrExternalTool, "transcription", operation, "", err)
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 32)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--beam_size", BeamSize,
		"--temperature", Temperature,
		"--vad_method", VADMethodSilero,
		"--print_progress", "True",
	)

	if lang := isoLanguage(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

// isoLanguage reduces a language tag to the two-letter base WhisperX expects.
func isoLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.EqualFold(tag, "auto") {
		return ""
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, confidence := parsed.Base()
	if confidence == language.No {
		return ""
	}
	return base.String()
}

var progressPattern = regexp.MustCompile(`(?i)progress:\s*([0-9]+(?:\.[0-9]+)?)%`)

func parseProgress(line string) (float64, bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return min(max(pct, 0), 100), true
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// whisperXPayload is the JSON structure from WhisperX output.
type whisperXPayload struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

func loadPayload(jsonPath string) (whisperXPayload, error) {
	var payload whisperXPayload
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

func (p whisperXPayload) transcript() pipeline.Transcript {
	parts := make([]string, 0, len(p.Segments))
	var duration float64
	for _, seg := range p.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
		duration = max(duration, seg.End)
	}
	return pipeline.Transcript{
		Text:            strings.Join(parts, " "),
		Language:        p.Language,
		Segments:        len(p.Segments),
		DurationSeconds: duration,
	}
}

// runCommand executes a command, streaming stdout lines to onLine.
func runCommand(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), 512))
	}
	return nil
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
