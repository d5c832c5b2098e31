package insights

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(baseURL, defaultKey string) *Client {
	return NewClient(ClientConfig{
		BaseURL:      baseURL,
		DefaultKey:   defaultKey,
		NotesModel:   "gpt-4o",
		SummaryModel: "gpt-3.5-turbo",
		Timeout:      2 * time.Second,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func completionResponse(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(b)
}

func TestGenerate_NoKeyAnywhere(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := testClient(srv.URL, "")
	_, err := c.Generate(context.Background(), VariantNotes, "some transcript", "")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("Generate() error = %v, want ErrNoAPIKey", err)
	}
	if called {
		t.Error("no network I/O should happen without a key")
	}
}

func TestGenerate_KeyOverrideWins(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, completionResponse("1. note"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, "sk-default")
	if _, err := c.Generate(context.Background(), VariantNotes, "t", "sk-override"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gotAuth != "Bearer sk-override" {
		t.Errorf("Authorization = %q, want the override key", gotAuth)
	}
}

func TestGenerate_NotesVariantRequestShape(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, completionResponse("1. a\n2. b\n3. c"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, "sk-test")
	out, err := c.Generate(context.Background(), VariantNotes, "I like turtles", "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "1. a\n2. b\n3. c" {
		t.Errorf("insights = %q", out)
	}

	if got.Model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", got.Model)
	}
	if got.MaxTokens != 200 {
		t.Errorf("max_tokens = %d, want 200", got.MaxTokens)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want system + user", len(got.Messages))
	}
	if !strings.Contains(got.Messages[0].Content, "numbered format (1., 2., 3.)") {
		t.Error("system prompt should enforce the numbered-notes format")
	}
	if !strings.Contains(got.Messages[0].Content, "NEVER mention transcripts, speakers, videos") {
		t.Error("system prompt should forbid referencing transcript/video/speaker")
	}
	if !strings.HasSuffix(got.Messages[1].Content, "I like turtles") {
		t.Errorf("user message %q should end with the transcript", got.Messages[1].Content)
	}
}

func TestGenerate_SummaryVariantRequestShape(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, completionResponse("a concise summary"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, "sk-test")
	if _, err := c.Generate(context.Background(), VariantSummary, "transcript text", ""); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if got.Model != "gpt-3.5-turbo" {
		t.Errorf("model = %q, want gpt-3.5-turbo", got.Model)
	}
	if !strings.Contains(got.Messages[0].Content, "without prefixing with 'Key Insights:'") {
		t.Error("system prompt should forbid the Key Insights header")
	}
	if got.Messages[1].Content != "transcript text" {
		t.Errorf("user message = %q, want the raw transcript", got.Messages[1].Content)
	}
}

func TestGenerate_EmptyTranscriptIsWellFormed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completionResponse("nothing to summarize"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, "sk-test")
	out, err := c.Generate(context.Background(), VariantSummary, "", "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out == "" {
		t.Error("expected model content for empty transcript")
	}
}

func TestGenerate_ClientErrorIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, "sk-bad")
	_, err := c.Generate(context.Background(), VariantNotes, "t", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Generate() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if calls != 1 {
		t.Errorf("endpoint called %d times, want 1 (4xx is permanent)", calls)
	}
}

func TestGenerate_ServerErrorIsRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, completionResponse("recovered"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, "sk-test")
	out, err := c.Generate(context.Background(), VariantNotes, "t", "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "recovered" {
		t.Errorf("insights = %q, want the retried response", out)
	}
	if calls < 2 {
		t.Errorf("endpoint called %d times, want a retry after 502", calls)
	}
}

func TestAPIError_IsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{500, true},
		{502, true},
		{429, false},
		{400, false},
	}
	for _, tt := range tests {
		e := &APIError{StatusCode: tt.status}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("APIError{%d}.IsRetryable() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
