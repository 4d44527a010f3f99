package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	bridgeLogger atomic.Pointer[BridgeLogger]
	level        = new(slog.LevelVar)
)

func init() {
	bridgeLogger.Store(New(os.Stderr, FormatText))
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

// BridgeLogger is a thin wrapper around slog shared by every bridge component.
// The host process owns stdout, so output goes to stderr unless told otherwise.
type BridgeLogger struct {
	slogger *slog.Logger
}

// New builds a logger writing to w in the given format. Unknown formats fall
// back to text. All loggers share the package level set by SetLogLevel.
func New(w io.Writer, format string) *BridgeLogger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return &BridgeLogger{slogger: slog.New(h)}
}

func Default() *BridgeLogger {
	return bridgeLogger.Load()
}

// SetDefault replaces the package logger. Mostly useful in tests.
func SetDefault(l *BridgeLogger) {
	bridgeLogger.Store(l)
}

func SetLogLevel(l slog.Level) {
	level.Set(l)
}

func SetFormat(format string) {
	bridgeLogger.Store(New(os.Stderr, format))
}

// slog wrapper

func Debug(msg string, args ...any) {
	bridgeLogger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	bridgeLogger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	bridgeLogger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	bridgeLogger.Load().Error(msg, args...)
}

func (l *BridgeLogger) With(args ...any) *BridgeLogger {
	return &BridgeLogger{slogger: l.slogger.With(args...)}
}

func (l *BridgeLogger) Enabled(lvl slog.Level) bool {
	return level.Level() <= lvl
}

func (l *BridgeLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *BridgeLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *BridgeLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *BridgeLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}
