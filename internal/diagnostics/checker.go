// Package diagnostics probes the external tools the pipeline depends on
// (yt-dlp, ffmpeg, whisper.cpp and its model file) and caches the result.
package diagnostics

import (
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// ToolStatus is the availability of one external dependency.
type ToolStatus struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Report summarises what the installed tools can do.
type Report struct {
	Tools    map[string]ToolStatus `json:"tools"`
	AllOK    bool                  `json:"all_ok"`
	ProbedAt time.Time             `json:"-"`
}

// Checker probes tool availability with a TTL cache so the health endpoint
// does not hit the filesystem on every request.
type Checker struct {
	ytdlp   string
	ffmpeg  string
	whisper string
	model   string
	ttl     time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	cached *Report

	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
}

// NewChecker creates a checker for the configured tool paths. Empty binary
// paths probe the conventional names on PATH.
func NewChecker(ytdlp, ffmpeg, whisper, model string, logger *slog.Logger) *Checker {
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if whisper == "" {
		whisper = "whisper-cli"
	}
	return &Checker{
		ytdlp:    ytdlp,
		ffmpeg:   ffmpeg,
		whisper:  whisper,
		model:    model,
		ttl:      defaultCacheTTL,
		logger:   logger,
		lookPath: exec.LookPath,
		stat:     os.Stat,
	}
}

// Get returns cached results if fresh, otherwise re-probes.
func (c *Checker) Get() *Report {
	c.mu.RLock()
	if c.cached != nil && time.Since(c.cached.ProbedAt) < c.ttl {
		report := c.cached
		c.mu.RUnlock()
		return report
	}
	c.mu.RUnlock()

	return c.Refresh()
}

// Refresh forces a new probe regardless of cache freshness.
func (c *Checker) Refresh() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := &Report{
		Tools:    make(map[string]ToolStatus),
		AllOK:    true,
		ProbedAt: time.Now(),
	}

	for name, bin := range map[string]string{
		"yt-dlp":  c.ytdlp,
		"ffmpeg":  c.ffmpeg,
		"whisper": c.whisper,
	} {
		p, err := c.lookPath(bin)
		if err != nil {
			report.Tools[name] = ToolStatus{Error: err.Error()}
			report.AllOK = false
			continue
		}
		report.Tools[name] = ToolStatus{Available: true, Path: p}
	}

	if _, err := c.stat(c.model); err != nil {
		report.Tools["whisper_model"] = ToolStatus{Error: err.Error()}
		report.AllOK = false
	} else {
		report.Tools["whisper_model"] = ToolStatus{Available: true, Path: c.model}
	}

	if c.logger != nil {
		c.logger.Info("tool probe complete", "all_ok", report.AllOK)
	}

	c.cached = report
	return report
}
