package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gobridge.szuro.net/pkg/bridge"
	"gobridge.szuro.net/pkg/plugin"
)

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"Debug", "DEBUG", slog.LevelDebug},
		{"Lower case", "warn", slog.LevelWarn},
		{"Error", "ERROR", slog.LevelError},
		{"Empty", "", slog.LevelInfo},
		{"Random", "FNORD", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := BridgeConf{LogLevel: tt.input}
			conf.setLogLevel()
			require.Equal(t, tt.expected, conf.GetLogLevel())
		})
	}
}

func TestSetLogFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Json", "json", "json"},
		{"Upper case json", "JSON", "json"},
		{"Text", "text", "text"},
		{"Empty", "", "text"},
		{"Random", "logfmt", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := BridgeConf{LogFormat: tt.input}
			conf.setLogFormat()
			require.Equal(t, tt.expected, conf.LogFormat)
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gobridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseBridgeConfig(t *testing.T) {
	path := writeConfig(t, `
log_level: DEBUG
log_format: json
respond_to_unidentified: true
respond_on_panic: true
strict_registration: true
`)

	conf, err := ParseBridgeConfig(path)
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, conf.GetLogLevel())
	require.Equal(t, "json", conf.LogFormat)
	require.True(t, conf.RespondToUnidentified)
	require.True(t, conf.RespondOnPanic)
	require.True(t, conf.StrictRegistration)
}

func TestParseBridgeConfigErrors(t *testing.T) {
	t.Run("Missing file", func(t *testing.T) {
		conf, err := ParseBridgeConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		require.Equal(t, Default(), conf)
	})

	t.Run("Broken yaml", func(t *testing.T) {
		conf, err := ParseBridgeConfig(writeConfig(t, "log_level: [unterminated"))
		require.Error(t, err)
		require.Equal(t, Default(), conf)
	})
}

func TestLoad(t *testing.T) {
	t.Run("Unset", func(t *testing.T) {
		t.Setenv(ConfigEnv, "")
		conf, err := Load()
		require.NoError(t, err)
		require.Equal(t, Default(), conf)
	})

	t.Run("From env", func(t *testing.T) {
		t.Setenv(ConfigEnv, writeConfig(t, "strict_registration: true\n"))
		conf, err := Load()
		require.NoError(t, err)
		require.True(t, conf.StrictRegistration)
		require.False(t, conf.RespondToUnidentified)
		require.Equal(t, slog.LevelInfo, conf.GetLogLevel())
	})
}

func TestOverrideLogLevel(t *testing.T) {
	conf := Default()
	conf.OverrideLogLevel("error")
	require.Equal(t, slog.LevelError, conf.GetLogLevel())

	conf.OverrideLogLevel("loud")
	require.Equal(t, "INFO", conf.LogLevel)
	require.Equal(t, slog.LevelInfo, conf.GetLogLevel())
}

type fragile struct {
	*plugin.Dispatcher[*fragile]
	plugin.NopNotifier
}

func (f *fragile) Register() {
	f.Dispatcher = plugin.NewDispatcher(f)
	f.Handle("crash", func(*fragile, *plugin.RequestContext, string) plugin.Response {
		panic("crash")
	})
}

func TestOptions(t *testing.T) {
	meta := &plugin.ServiceMetadata{
		Name:   "Fragile",
		Create: func() plugin.Plugin { return &fragile{} },
	}

	tests := []struct {
		name     string
		conf     BridgeConf
		expected []string
	}{
		{"Defaults", Default(), nil},
		{"Respond on panic", BridgeConf{RespondOnPanic: true}, []string{
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"Internal error"}}`,
		}},
		{"Respond to unidentified", BridgeConf{RespondToUnidentified: true}, []string{
			`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sent []string
			d := bridge.DelivererFunc(func(_ uint32, message string) error {
				sent = append(sent, message)
				return nil
			})
			inst, err := bridge.Create("", meta, d, tt.conf.Options()...)
			require.NoError(t, err)
			sent = nil

			require.Error(t, inst.Invoke(`{"method":"crash","id":1}`, plugin.RequestContext{}))
			require.NoError(t, inst.Invoke(`{"method":`, plugin.RequestContext{}))
			require.Len(t, sent, len(tt.expected))
			for i, want := range tt.expected {
				require.JSONEq(t, want, sent[i])
			}
		})
	}
}
