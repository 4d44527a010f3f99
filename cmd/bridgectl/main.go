// Command bridgectl loads gobridge plugins built with -buildmode=plugin and
// drives them through the same bridge the C host uses.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gobridge.szuro.net/internal/config"
	"gobridge.szuro.net/internal/loader"
	"gobridge.szuro.net/pkg/plugin"
)

// openPlugin resolves a plugin path to its metadata. Tests replace it.
var openPlugin = func(path string) (*plugin.ServiceMetadata, error) {
	loaded, err := loader.GetRegistry().LoadPlugin(path)
	if err != nil {
		return nil, err
	}
	return loaded.Metadata, nil
}

func versionString() string {
	return fmt.Sprintf("bridgectl %s (commit %s, built %s)", config.Version, config.Commit, config.BuildDate)
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "bridgectl",
		Short: "Inspect and exercise gobridge plugins",
		Long:  "bridgectl loads plugins built with -buildmode=plugin and runs requests through the plugin bridge.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				conf.OverrideLogLevel(logLevel)
			}
			conf.Apply()
			bridgeConf = conf
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to bridge config file (default: $"+config.ConfigEnv+")")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	})
	cmd.AddCommand(describeCmd())
	cmd.AddCommand(callCmd())

	return cmd
}

var bridgeConf = config.Default()

func loadConfig(path string) (config.BridgeConf, error) {
	if path == "" {
		return config.Load()
	}
	return config.ParseBridgeConfig(path)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
