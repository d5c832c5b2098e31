// Package transcribe turns audio files into plain-text transcripts using a
// whisper.cpp subprocess. Input must be in the canonical transcription
// format (16 kHz mono WAV).
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/podshot/podshot-server/internal/logging"
	"github.com/podshot/podshot-server/internal/media"
)

// Transcriber converts an audio file into transcript text. An empty
// transcript is valid output and means no speech was detected.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Whisper runs the whisper.cpp CLI. The binary and model paths are resolved
// once at construction and reused across calls; the component itself holds
// no per-call state.
type Whisper struct {
	binary string
	model  string
	runner media.Runner
	logger *slog.Logger
}

// NewWhisper resolves the whisper.cpp binary and verifies the model file
// exists.
func NewWhisper(binaryPath, modelPath string, logger *slog.Logger) (*Whisper, error) {
	binary, err := exec.LookPath(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("whisper binary %q not found: %w", binaryPath, err)
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found at %s: %w", logging.SanitizePath(modelPath), err)
	}

	logger.Info("transcriber initialised",
		"binary", binary,
		"model", logging.SanitizePath(modelPath),
	)

	return &Whisper{
		binary: binary,
		model:  modelPath,
		runner: &media.ExecRunner{},
		logger: logger,
	}, nil
}

// Transcribe runs whisper.cpp over audioPath and returns the transcript text.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("cannot access audio file: %w", err)
	}

	// whisper.cpp writes the transcript to <outBase>.txt
	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	args := []string{
		"-m", w.model,
		"-f", audioPath,
		"-l", "auto",
		"-otxt",
		"-of", outBase,
		"-np",
	}

	w.logger.Info("transcribing audio", "path", logging.SanitizePath(audioPath))

	result, err := w.runner.Run(ctx, w.binary, args...)
	if err != nil {
		return "", &media.ToolError{Tool: "whisper", ExitCode: result.ExitCode, StderrTail: result.StderrTail, Err: err}
	}

	textPath := outBase + ".txt"
	data, err := os.ReadFile(textPath)
	if err != nil {
		return "", fmt.Errorf("whisper completed but transcript file is missing: %w", err)
	}

	transcript := strings.TrimSpace(string(data))
	w.logger.Info("transcription complete",
		"chars", len(transcript),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return transcript, nil
}
