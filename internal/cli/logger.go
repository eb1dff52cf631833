package cli

import (
	"io"
	"log/slog"
	"time"

	"pdfconvert/internal/config"
)

func newLogger(w io.Writer, cfg config.Log, debug bool) *slog.Logger {
	level := parseLevel(cfg.Level)
	addSource := false

	if debug {
		level = slog.LevelDebug
		addSource = true
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			}

			return a
		},
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func setupLogger(w io.Writer, cfg config.Log, debug bool) {
	slog.SetDefault(newLogger(w, cfg, debug))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
