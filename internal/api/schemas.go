package api

// Request and response shapes. Field names are the public contract with the
// browser extension; do not rename them.

type RootResponse struct {
	Status string `json:"status"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
	AllOK   bool   `json:"all_ok"`
}

// ClipRequest submits an asynchronous clip-processing job.
type ClipRequest struct {
	VideoURL  string  `json:"video_url"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	OpenAIKey string  `json:"openai_key,omitempty"`
}

type ProcessClipResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// TranscribeRequest is the synchronous clip-transcript request.
type TranscribeRequest struct {
	VideoURL  string  `json:"video_url"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

type TranscribeFullRequest struct {
	VideoURL string `json:"video_url"`
}

// TranscriptResponse always carries the transcript field; it is empty on
// failure, with Error describing what went wrong.
type TranscriptResponse struct {
	Transcript string `json:"transcript"`
	Error      string `json:"error,omitempty"`
}

type InsightsRequest struct {
	Transcript string `json:"transcript"`
	OpenAIKey  string `json:"openai_key,omitempty"`
}

type InsightsResponse struct {
	Insights string `json:"insights"`
}

// InsightsErrorResponse is the summary variant's structured failure payload.
type InsightsErrorResponse struct {
	Error string `json:"error"`
}

// DetailResponse carries a human-readable error detail, matching the
// original wire format for 4xx/5xx responses.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// ErrorResponse is used by the middleware for transport-level failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
