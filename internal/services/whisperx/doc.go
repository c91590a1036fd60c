// Package whisperx turns media sources into transcripts.
//
// A source file or URL is first reduced to mono 16kHz WAV with ffmpeg, then
// handed to WhisperX through uvx. Progress printed by WhisperX is relayed to
// the caller, and the JSON output is folded into a single transcript.
package whisperx
