// Package media resolves remote video URLs to local audio files and cuts
// time-bounded segments out of them, using yt-dlp and ffmpeg subprocesses.
// All output conforms to the canonical transcription format: 16 kHz mono WAV.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/podshot/podshot-server/internal/logging"
)

const (
	sourceStem    = "source"
	canonicalExt  = ".wav"
	canonicalName = "audio.wav"
)

// AudioFile is a local audio-bearing file produced by Acquire.
type AudioFile struct {
	Path      string
	Container string // extension without the dot, e.g. "wav", "webm"
}

// Tools invokes yt-dlp and ffmpeg. It is safe for concurrent use; each call
// operates only on the workspace it is given.
type Tools struct {
	ytdlp  string
	ffmpeg string
	runner Runner
	logger *slog.Logger
}

// NewTools resolves the yt-dlp and ffmpeg binaries. Empty paths fall back to
// PATH lookup.
func NewTools(ytdlpPath, ffmpegPath string, logger *slog.Logger) (*Tools, error) {
	ytdlp, err := resolveBinary(ytdlpPath, "yt-dlp")
	if err != nil {
		return nil, err
	}
	ffmpeg, err := resolveBinary(ffmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}

	logger.Info("media tools resolved", "ytdlp", ytdlp, "ffmpeg", ffmpeg)

	return &Tools{
		ytdlp:  ytdlp,
		ffmpeg: ffmpeg,
		runner: &ExecRunner{},
		logger: logger,
	}, nil
}

// Acquire downloads the best available audio stream of videoURL into the
// workspace. If the native download container is not canonical WAV the file
// is transcoded before returning, so callers always receive a file the
// transcriber accepts.
func (t *Tools) Acquire(ctx context.Context, workspace, videoURL string) (*AudioFile, error) {
	outTemplate := filepath.Join(workspace, sourceStem+".%(ext)s")

	args := []string{
		"--no-playlist",
		"-f", "bestaudio/best",
		"-o", outTemplate,
		"--quiet", "--no-warnings",
		videoURL,
	}

	t.logger.Info("downloading audio", "url", videoURL)

	result, err := t.runner.Run(ctx, t.ytdlp, args...)
	if err != nil {
		return nil, &ToolError{Tool: "yt-dlp", ExitCode: result.ExitCode, StderrTail: result.StderrTail, Err: err}
	}

	downloaded, err := t.findDownload(workspace)
	if err != nil {
		return nil, err
	}

	container := strings.TrimPrefix(filepath.Ext(downloaded), ".")
	t.logger.Info("download complete",
		"path", logging.SanitizePath(downloaded),
		"container", container,
		"duration_ms", result.Duration.Milliseconds(),
	)

	if filepath.Ext(downloaded) == canonicalExt {
		return &AudioFile{Path: downloaded, Container: container}, nil
	}

	canonical, err := t.toCanonical(ctx, downloaded, filepath.Join(workspace, canonicalName))
	if err != nil {
		return nil, err
	}
	return &AudioFile{Path: canonical, Container: "wav"}, nil
}

// findDownload locates the file yt-dlp wrote; the extension is chosen by
// yt-dlp based on the selected format.
func (t *Tools) findDownload(workspace string) (string, error) {
	entries, err := os.ReadDir(workspace)
	if err != nil {
		return "", fmt.Errorf("cannot read workspace: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), sourceStem+".") {
			return filepath.Join(workspace, e.Name()), nil
		}
	}
	return "", fmt.Errorf("yt-dlp completed but no audio file was produced (no audio stream?)")
}

// toCanonical transcodes any audio-bearing input into 16 kHz mono WAV.
func (t *Tools) toCanonical(ctx context.Context, src, dst string) (string, error) {
	args := []string{
		"-i", src,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		dst,
	}

	result, err := t.runner.Run(ctx, t.ffmpeg, args...)
	if err != nil {
		return "", &ToolError{Tool: "ffmpeg", ExitCode: result.ExitCode, StderrTail: result.StderrTail, Err: err}
	}

	if _, err := os.Stat(dst); err != nil {
		return "", fmt.Errorf("ffmpeg completed but output file is missing: %w", err)
	}
	return dst, nil
}
