package config

// Build information, set with -ldflags "-X gobridge.szuro.net/internal/config.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)
