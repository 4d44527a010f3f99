package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gobridge.szuro.net/internal/logger"
	"gobridge.szuro.net/pkg/bridge"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding the bridge config path.
// The bridge lives inside someone else's process, so there is no command line to read.
const ConfigEnv = "GOBRIDGE_CONFIG"

type BridgeConf struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// RespondToUnidentified sends an error envelope with a null id for
	// requests whose id cannot be recovered instead of dropping them.
	RespondToUnidentified bool `yaml:"respond_to_unidentified"`

	// RespondOnPanic replies with an internal error when a handler panics
	// after the request id was decoded. Without it the host gets no reply.
	RespondOnPanic bool `yaml:"respond_on_panic"`

	// StrictRegistration fails plugin creation when a method name was
	// registered more than once.
	StrictRegistration bool `yaml:"strict_registration"`

	slogLevel slog.Level
}

// Default returns the configuration used when no file is provided.
func Default() BridgeConf {
	conf := BridgeConf{}
	conf.setDefaults()
	return conf
}

func (bc *BridgeConf) setLogLevel() {
	switch strings.ToUpper(bc.LogLevel) {
	case "DEBUG":
		bc.slogLevel = slog.LevelDebug
	case "INFO":
		bc.slogLevel = slog.LevelInfo
	case "WARN":
		bc.slogLevel = slog.LevelWarn
	case "ERROR":
		bc.slogLevel = slog.LevelError
	default:
		bc.LogLevel = "INFO"
		bc.slogLevel = slog.LevelInfo
	}
}

// OverrideLogLevel replaces the configured level, falling back to INFO for unknown names.
func (bc *BridgeConf) OverrideLogLevel(level string) {
	bc.LogLevel = level
	bc.setLogLevel()
}

func (bc *BridgeConf) GetLogLevel() slog.Level {
	return bc.slogLevel
}

func (bc *BridgeConf) setLogFormat() {
	switch strings.ToLower(bc.LogFormat) {
	case logger.FormatJSON:
		bc.LogFormat = logger.FormatJSON
	default:
		bc.LogFormat = logger.FormatText
	}
}

func (bc *BridgeConf) setDefaults() {
	bc.setLogLevel()
	bc.setLogFormat()
}

// ParseBridgeConfig reads a YAML config file. Unlike a daemon, the bridge
// must not bring the host down over a bad file, so errors are returned
// together with a usable default configuration.
func ParseBridgeConfig(path string) (BridgeConf, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("cannot read bridge config %s: %w", path, err)
	}

	conf := BridgeConf{}
	if err := yaml.Unmarshal(file, &conf); err != nil {
		return Default(), fmt.Errorf("cannot parse bridge config %s: %w", path, err)
	}

	conf.setDefaults()
	return conf, nil
}

// Load resolves the config from ConfigEnv. An unset variable yields defaults
// without error.
func Load() (BridgeConf, error) {
	path := os.Getenv(ConfigEnv)
	if path == "" {
		return Default(), nil
	}
	return ParseBridgeConfig(path)
}

// Apply pushes the logging settings into the shared logger.
func (bc *BridgeConf) Apply() {
	logger.SetFormat(bc.LogFormat)
	logger.SetLogLevel(bc.slogLevel)
}

// Options translates the policy switches into bridge instance options.
func (bc *BridgeConf) Options() []bridge.Option {
	return []bridge.Option{
		bridge.WithRespondToUnidentified(bc.RespondToUnidentified),
		bridge.WithRespondOnPanic(bc.RespondOnPanic),
		bridge.WithStrictRegistration(bc.StrictRegistration),
	}
}
