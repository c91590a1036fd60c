package whisperx

import "time"

// Config captures runtime settings for WhisperX transcription.
type Config struct {
	// Command launches WhisperX, normally through uvx.
	Command string
	// Model is the WhisperX model to use (e.g., "base", "large-v3").
	Model string
	// Language is a BCP 47 tag or ISO code; empty lets WhisperX detect it.
	Language string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// Timeout bounds one full transcription including audio extraction.
	Timeout time.Duration
	// Downloader fetches remote video pages, normally yt-dlp.
	Downloader string
	// WorkDir holds per-job scratch directories. Defaults to os.TempDir.
	WorkDir string
}

// WhisperX configuration constants.
const (
	DefaultModel      = "base"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodSilero   = "silero"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
	YTDLPCommand  = "yt-dlp"
)

// Progress milestones reported while a source is transcribed.
const (
	progressExtracted = 0.1
	progressModelSpan = 0.85

	progressDownloadSpan    = 0.3
	progressRemoteExtracted = 0.35
	progressRemoteModelSpan = 0.6
)
