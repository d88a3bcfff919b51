// Package logger is ufserctl's process-wide slog logger. It discards
// all output until Init is called from main, mirroring how the engine
// packages (pkg/arena) stay silent until the CLI wires a real handler.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// L is the global logger instance, discarding output until Init runs.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	Verbose bool // Verbose lowers the minimum level to Debug.
	JSON    bool // JSON selects slog.JSONHandler over TextHandler.
}

// Init configures the global logger. Call from main before any command runs.
func Init(opts Options) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
		return
	}
	L = slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
