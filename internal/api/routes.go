package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/podshot/podshot-server/internal/config"
	"github.com/podshot/podshot-server/internal/insights"
	"github.com/podshot/podshot-server/internal/media"
	"github.com/podshot/podshot-server/internal/pipeline"
	"github.com/podshot/podshot-server/internal/tasks"
)

// TranscriptRunner is the blocking pipeline entry point used by the
// synchronous transcript endpoints.
type TranscriptRunner interface {
	Transcript(ctx context.Context, req pipeline.Request, onStage func(string)) (string, error)
}

// Enqueuer schedules asynchronous pipeline jobs.
type Enqueuer interface {
	Enqueue(job pipeline.Job) bool
}

// InsightGenerator is the summarization capability used by the insight
// endpoints.
type InsightGenerator interface {
	Generate(ctx context.Context, variant insights.Variant, transcript, keyOverride string) (string, error)
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/", rootHandler())
	r.Get("/health", healthHandler(cfg))

	r.Post("/process-clip", processClipHandler(cfg))
	r.Get("/status/{taskID}", statusHandler(cfg))
	r.Post("/transcribe", transcribeHandler(cfg))
	r.Post("/transcribe_full", transcribeFullHandler(cfg))
	r.Post("/generate-insights", generateInsightsHandler(cfg))
	r.Post("/insights", summaryInsightsHandler(cfg))

	return r
}

func rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, RootResponse{Status: "PodShot API is running"})
	}
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
			AllOK:   true,
		}
		if cfg.Checker != nil {
			report := cfg.Checker.Get()
			resp.AllOK = report.AllOK
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// processClipHandler accepts a clip job, records it as processing and
// schedules the pipeline without blocking the response.
func processClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, DetailResponse{Detail: "invalid request body"})
			return
		}
		if req.VideoURL == "" {
			WriteJSON(w, http.StatusBadRequest, DetailResponse{Detail: "video_url is required"})
			return
		}
		if req.StartTime < 0 || req.EndTime <= req.StartTime {
			WriteJSON(w, http.StatusBadRequest, DetailResponse{Detail: "end_time must be greater than start_time"})
			return
		}

		taskID := uuid.NewString()
		// The record must be observable before this handler returns.
		cfg.Registry.Create(taskID, pipeline.MsgStarting)

		job := pipeline.Job{
			TaskID: taskID,
			Req: pipeline.Request{
				VideoURL: req.VideoURL,
				Start:    req.StartTime,
				End:      req.EndTime,
			},
			KeyOverride: req.OpenAIKey,
		}
		if !cfg.Workers.Enqueue(job) {
			cfg.Registry.Fail(taskID, "Error processing clip: server is busy, try again later")
		}

		WriteJSON(w, http.StatusOK, ProcessClipResponse{TaskID: taskID, Status: tasks.StatusProcessing})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "taskID")

		rec, err := cfg.Registry.Get(taskID)
		if err != nil {
			WriteJSON(w, http.StatusNotFound, DetailResponse{Detail: "Task not found"})
			return
		}

		WriteJSON(w, http.StatusOK, rec)
	}
}

func transcribeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TranscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, TranscriptResponse{Error: "invalid request body"})
			return
		}

		transcript, err := cfg.Pipeline.Transcript(r.Context(), pipeline.Request{
			VideoURL: req.VideoURL,
			Start:    req.StartTime,
			End:      req.EndTime,
		}, nil)
		if err != nil {
			writeTranscriptError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, TranscriptResponse{Transcript: transcript})
	}
}

func transcribeFullHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TranscribeFullRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, TranscriptResponse{Error: "invalid request body"})
			return
		}

		transcript, err := cfg.Pipeline.Transcript(r.Context(), pipeline.Request{
			VideoURL:  req.VideoURL,
			WholeFile: true,
		}, nil)
		if err != nil {
			writeTranscriptError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, TranscriptResponse{Transcript: transcript})
	}
}

// writeTranscriptError converts any stage error into the well-formed
// transcript error shape; the transcript field is always present, empty on
// failure. Bad time ranges are caller errors, everything else is a 500.
func writeTranscriptError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, media.ErrInvalidRange) {
		status = http.StatusBadRequest
	}
	WriteJSON(w, status, TranscriptResponse{Transcript: "", Error: err.Error()})
}

// generateInsightsHandler is the personal-notes variant. A missing API key is
// a configuration error (400), a failed model call is a 500; both carry a
// detail message.
func generateInsightsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InsightsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, DetailResponse{Detail: "invalid request body"})
			return
		}

		text, err := cfg.Generator.Generate(r.Context(), insights.VariantNotes, req.Transcript, req.OpenAIKey)
		if err != nil {
			if errors.Is(err, insights.ErrNoAPIKey) {
				WriteJSON(w, http.StatusBadRequest, DetailResponse{Detail: "OpenAI API key is required"})
				return
			}
			WriteJSON(w, http.StatusInternalServerError, DetailResponse{Detail: fmt.Sprintf("Error generating insights: %v", err)})
			return
		}

		WriteJSON(w, http.StatusOK, InsightsResponse{Insights: text})
	}
}

// summaryInsightsHandler is the summary variant. Failures come back as a
// well-formed error payload, never an unhandled fault.
func summaryInsightsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InsightsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, InsightsErrorResponse{Error: "invalid request body"})
			return
		}

		text, err := cfg.Generator.Generate(r.Context(), insights.VariantSummary, req.Transcript, "")
		if err != nil {
			WriteJSON(w, http.StatusOK, InsightsErrorResponse{Error: err.Error()})
			return
		}

		WriteJSON(w, http.StatusOK, InsightsResponse{Insights: text})
	}
}
