// Package pipeline sequences download, segment extraction, transcription and
// insight generation. The single Transcript implementation serves both the
// blocking endpoints and the task-tracked asynchronous workflow.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/podshot/podshot-server/internal/insights"
	"github.com/podshot/podshot-server/internal/logging"
	"github.com/podshot/podshot-server/internal/media"
	"github.com/podshot/podshot-server/internal/tasks"
	"github.com/podshot/podshot-server/internal/transcribe"
)

// Progress messages written to task records; the polling extension displays
// these verbatim.
const (
	MsgStarting     = "Starting clip processing"
	MsgDownloading  = "Downloading video clip"
	MsgTranscribing = "Generating transcript"
	MsgInsights     = "Generating insights"
)

// Request describes one transcription run.
type Request struct {
	VideoURL  string
	Start     float64
	End       float64
	WholeFile bool // transcribe the entire video, ignoring Start/End
}

// MediaTools is the acquire/extract capability consumed by the pipeline.
type MediaTools interface {
	Acquire(ctx context.Context, workspace, videoURL string) (*media.AudioFile, error)
	Extract(ctx context.Context, src string, start, end float64) (string, error)
}

// InsightGenerator is the summarization capability consumed by the pipeline.
type InsightGenerator interface {
	Generate(ctx context.Context, variant insights.Variant, transcript, keyOverride string) (string, error)
}

// Timeouts bound each external call so a hung stage cannot stall a worker
// forever.
type Timeouts struct {
	Download   time.Duration
	Extract    time.Duration
	Transcribe time.Duration
	Insights   time.Duration
}

type Pipeline struct {
	tools       MediaTools
	transcriber transcribe.Transcriber
	generator   InsightGenerator
	tempDir     string
	timeouts    Timeouts
	logger      *slog.Logger
}

func New(tools MediaTools, transcriber transcribe.Transcriber, generator InsightGenerator, tempDir string, timeouts Timeouts, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		tools:       tools,
		transcriber: transcriber,
		generator:   generator,
		tempDir:     tempDir,
		timeouts:    timeouts,
		logger:      logger,
	}
}

// Transcript resolves the video URL to audio, isolates the requested segment
// and transcribes it. onStage, when non-nil, receives a progress message as
// each stage begins. The run's temporary workspace is removed on every exit
// path. Stage failures abort the run; no stage is retried.
func (p *Pipeline) Transcript(ctx context.Context, req Request, onStage func(string)) (string, error) {
	if !req.WholeFile {
		// Bad ranges are caller errors and must be caught before any media I/O.
		if req.Start < 0 || req.End <= req.Start {
			return "", fmt.Errorf("%w: start_time=%v end_time=%v", media.ErrInvalidRange, req.Start, req.End)
		}
	}

	ws, err := media.NewWorkspace(p.tempDir)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			p.logger.Warn("workspace cleanup failed", "error", err)
		}
	}()

	emit(onStage, MsgDownloading)
	dctx, cancel := context.WithTimeout(ctx, p.timeouts.Download)
	audio, err := p.tools.Acquire(dctx, ws.Dir(), req.VideoURL)
	cancel()
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	audioPath := audio.Path
	if !req.WholeFile {
		ectx, cancel := context.WithTimeout(ctx, p.timeouts.Extract)
		audioPath, err = p.tools.Extract(ectx, audio.Path, req.Start, req.End)
		cancel()
		if err != nil {
			return "", fmt.Errorf("segment extraction failed: %w", err)
		}
	}

	emit(onStage, MsgTranscribing)
	tctx, cancel := context.WithTimeout(ctx, p.timeouts.Transcribe)
	transcript, err := p.transcriber.Transcribe(tctx, audioPath)
	cancel()
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return transcript, nil
}

// ProcessClip executes the full asynchronous workflow for one task: the
// shared Transcript pipeline plus insight generation, with every transition
// recorded in the registry. It is the sole writer of its task's record and
// never raises; failures become the record's terminal error state.
func (p *Pipeline) ProcessClip(ctx context.Context, registry *tasks.Registry, taskID string, req Request, keyOverride string) {
	log := logging.WithTaskID(p.logger, taskID)
	log.Info("clip processing started", "url", req.VideoURL, "start", req.Start, "end", req.End)

	transcript, err := p.Transcript(ctx, req, func(msg string) {
		registry.SetMessage(taskID, msg)
	})
	if err != nil {
		log.Error("clip processing failed", "error", err)
		registry.Fail(taskID, fmt.Sprintf("Error processing clip: %v", err))
		return
	}

	registry.SetMessage(taskID, MsgInsights)
	ictx, cancel := context.WithTimeout(ctx, p.timeouts.Insights)
	insightText, err := p.generator.Generate(ictx, insights.VariantNotes, transcript, keyOverride)
	cancel()
	if err != nil {
		log.Error("insight generation failed", "error", err)
		registry.Fail(taskID, fmt.Sprintf("Error processing clip: insight generation failed: %v", err))
		return
	}

	registry.Complete(taskID, transcript, insightText)
	log.Info("clip processing completed", "transcript_chars", len(transcript))
}

func emit(onStage func(string), msg string) {
	if onStage != nil {
		onStage(msg)
	}
}
