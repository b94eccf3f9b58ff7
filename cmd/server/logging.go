package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/dropsearch/internal/server"
	"github.com/openmined/dropsearch/internal/utils"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logTimeFormat   = "2006-01-02T15:04:05.000Z07:00"
	logMaxSizeMB    = 50
	logMaxBackups   = 5
	logMaxAgeInDays = 28
)

func consoleHandler(level slog.Leveler) slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: logTimeFormat,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
}

// setupConsoleLogger installs the logger used until the config is loaded
func setupConsoleLogger() {
	slog.SetDefault(slog.New(consoleHandler(slog.LevelInfo)))
}

// setupLogger replaces the default logger according to cfg. The returned func
// flushes and closes the log file, if any.
func setupLogger(cfg *server.LogConfig) (func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log: invalid level %q: %w", cfg.Level, err)
	}

	handlers := []slog.Handler{consoleHandler(level)}
	closeFn := func() {}

	if cfg.File != "" {
		logFile, err := utils.ResolvePath(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("log: resolve file: %w", err)
		}
		if err := utils.EnsureParent(logFile); err != nil {
			return nil, fmt.Errorf("log: create directory: %w", err)
		}

		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeInDays,
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(rotator, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(time.RFC3339Nano))
				}
				return a
			},
		}))
		closeFn = func() { rotator.Close() }
	}

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(handlers...)))
	return closeFn, nil
}
