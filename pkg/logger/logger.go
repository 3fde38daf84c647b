package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

const BritishTimeFormat = "02.01.2006 15:04:05"

// Config represents logger configuration from environment/config
// LogLevel is a string like "debug", "info", "error";
// LogHumanFriendly toggles between coloured text (true) and JSON (false).
type Config struct {
	LogLevel         string
	LogHumanFriendly bool
}

// ParseLevel converts a string to slog.Level, defaulting to Info on error.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(level))
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewFromConfig creates a slog.Logger writing to stdout based on Config.
func NewFromConfig(cfg Config) *slog.Logger {
	return New(os.Stdout, cfg)
}

// New creates a slog.Logger writing to w.
func New(w io.Writer, cfg Config) *slog.Logger {
	lvl := ParseLevel(cfg.LogLevel)

	if cfg.LogHumanFriendly {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: BritishTimeFormat,
		}))
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				// Format time as British timestamp
				return slog.String(slog.TimeKey, a.Value.Time().Format(BritishTimeFormat))
			}
			return a
		},
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
