package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/podshot/podshot-server/internal/logging"
)

// ToEnd selects "to end of file" when passed as the end bound of Extract.
const ToEnd = -1

// ErrInvalidRange reports a caller-supplied time range that is not
// 0 <= start < end. It is detected before any media I/O happens.
var ErrInvalidRange = errors.New("invalid time range")

// Extract produces a new 16 kHz mono WAV file containing the audio of src
// within [start, end) seconds. Pass ToEnd as end to keep everything from
// start to the end of the file. The source file is never modified.
//
// A range reaching past the end of the source is clamped to the available
// media rather than rejected; ffmpeg stops at end of input.
func (t *Tools) Extract(ctx context.Context, src string, start, end float64) (string, error) {
	if start < 0 {
		return "", fmt.Errorf("%w: start_time %v is negative", ErrInvalidRange, start)
	}
	if end != ToEnd && end <= start {
		return "", fmt.Errorf("%w: end_time %v must be greater than start_time %v", ErrInvalidRange, end, start)
	}

	out := filepath.Join(filepath.Dir(src), "segment.wav")

	// Input-side seeking: -ss/-to before -i
	args := []string{"-ss", formatSeconds(start)}
	if end != ToEnd {
		args = append(args, "-to", formatSeconds(end))
	}
	args = append(args,
		"-i", src,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		out,
	)

	t.logger.Info("extracting segment",
		"source", logging.SanitizePath(src),
		"start", start,
		"end", end,
	)

	result, err := t.runner.Run(ctx, t.ffmpeg, args...)
	if err != nil {
		return "", &ToolError{Tool: "ffmpeg", ExitCode: result.ExitCode, StderrTail: result.StderrTail, Err: err}
	}

	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("ffmpeg completed but segment file is missing: %w", err)
	}
	return out, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
