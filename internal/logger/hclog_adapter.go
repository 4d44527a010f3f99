package logger

import (
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// HCLogAdapter exposes a BridgeLogger through the hashicorp/go-hclog.Logger
// interface. Every bridge instance gets one, named after the plugin, so log
// lines coming from different plugins loaded into the same host can be told apart.
type HCLogAdapter struct {
	logger  *BridgeLogger
	name    string
	implied []interface{}
}

// NewHCLogAdapter creates a new HCLog adapter wrapping the default bridge logger.
func NewHCLogAdapter() hclog.Logger {
	return &HCLogAdapter{
		logger: Default(),
		name:   "gobridge",
	}
}

// Named is a shorthand for NewHCLogAdapter().Named(name).
func Named(name string) hclog.Logger {
	return NewHCLogAdapter().Named(name)
}

func (h *HCLogAdapter) args(args []interface{}) []interface{} {
	out := make([]interface{}, 0, len(h.implied)+len(args)+2)
	out = append(out, slog.String("logger", h.name))
	out = append(out, h.implied...)
	return append(out, args...)
}

// Log implementation
func (h *HCLogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.Debug(msg, args...)
	case hclog.Info:
		h.Info(msg, args...)
	case hclog.Warn:
		h.Warn(msg, args...)
	case hclog.Error:
		h.Error(msg, args...)
	}
}

func (h *HCLogAdapter) Trace(msg string, args ...interface{}) {
	h.logger.Debug(msg, h.args(args)...)
}

func (h *HCLogAdapter) Debug(msg string, args ...interface{}) {
	h.logger.Debug(msg, h.args(args)...)
}

func (h *HCLogAdapter) Info(msg string, args ...interface{}) {
	h.logger.Info(msg, h.args(args)...)
}

func (h *HCLogAdapter) Warn(msg string, args ...interface{}) {
	h.logger.Warn(msg, h.args(args)...)
}

func (h *HCLogAdapter) Error(msg string, args ...interface{}) {
	h.logger.Error(msg, h.args(args)...)
}

// Trace is folded into debug, slog has no lower level.
func (h *HCLogAdapter) IsTrace() bool {
	return false
}

func (h *HCLogAdapter) IsDebug() bool {
	return h.logger.Enabled(slog.LevelDebug)
}

func (h *HCLogAdapter) IsInfo() bool {
	return h.logger.Enabled(slog.LevelInfo)
}

func (h *HCLogAdapter) IsWarn() bool {
	return h.logger.Enabled(slog.LevelWarn)
}

func (h *HCLogAdapter) IsError() bool {
	return h.logger.Enabled(slog.LevelError)
}

func (h *HCLogAdapter) ImpliedArgs() []interface{} {
	return h.implied
}

// With creates a new logger carrying args on every line
func (h *HCLogAdapter) With(args ...interface{}) hclog.Logger {
	implied := make([]interface{}, 0, len(h.implied)+len(args))
	implied = append(implied, h.implied...)
	implied = append(implied, args...)
	return &HCLogAdapter{
		logger:  h.logger,
		name:    h.name,
		implied: implied,
	}
}

func (h *HCLogAdapter) Name() string {
	return h.name
}

func (h *HCLogAdapter) Named(name string) hclog.Logger {
	return &HCLogAdapter{
		logger:  h.logger,
		name:    h.name + "." + name,
		implied: h.implied,
	}
}

func (h *HCLogAdapter) ResetNamed(name string) hclog.Logger {
	return &HCLogAdapter{
		logger:  h.logger,
		name:    name,
		implied: h.implied,
	}
}

// SetLevel changes the shared bridge level, not just this adapter's.
func (h *HCLogAdapter) SetLevel(level hclog.Level) {
	switch level {
	case hclog.Trace, hclog.Debug:
		SetLogLevel(slog.LevelDebug)
	case hclog.Info:
		SetLogLevel(slog.LevelInfo)
	case hclog.Warn:
		SetLogLevel(slog.LevelWarn)
	case hclog.Error:
		SetLogLevel(slog.LevelError)
	}
}

func (h *HCLogAdapter) GetLevel() hclog.Level {
	switch {
	case h.IsDebug():
		return hclog.Debug
	case h.IsInfo():
		return hclog.Info
	case h.IsWarn():
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (h *HCLogAdapter) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(h.StandardWriter(opts), "", 0)
}

func (h *HCLogAdapter) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return &lineWriter{h: h}
}

type lineWriter struct {
	h *HCLogAdapter
}

func (w *lineWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.h.Info(msg)
	return len(p), nil
}
