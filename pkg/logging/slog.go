package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Levels beyond the slog built-ins. Trace sits below debug for per-row
// dispatcher output; fatal marks errors the process cannot survive.
const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// ParseLevel maps a configured level name onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "fatal":
		return LevelFatal, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// New builds the process logger: JSON on stdout, filtered at the given
// level. Unknown level names fall back to info rather than failing; config
// validation reports them before this runs.
func New(level string) *slog.Logger {
	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: renameCustomLevels,
	})
	return slog.New(h)
}

// renameCustomLevels renders the custom levels by name instead of slog's
// "DEBUG-4" style offsets.
func renameCustomLevels(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	lvl, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch {
	case lvl <= LevelTrace:
		a.Value = slog.StringValue("TRACE")
	case lvl >= LevelFatal:
		a.Value = slog.StringValue("FATAL")
	}
	return a
}
