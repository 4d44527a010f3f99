package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gobridge.szuro.net/pkg/bridge"
	"gobridge.szuro.net/pkg/plugin"
)

func describeCmd() *cobra.Command {
	var require string

	cmd := &cobra.Command{
		Use:   "describe <plugin.so>",
		Short: "Show plugin metadata and methods",
		Long:  "Load a plugin, create one instance and print its name, version and the method list it announces.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := openPlugin(args[0])
			if err != nil {
				return err
			}
			if err := requireVersion(meta, require); err != nil {
				return err
			}

			inst, err := bridge.Create("", meta, bridge.DelivererFunc(discard), bridgeConf.Options()...)
			if err != nil {
				return fmt.Errorf("creating %s: %w", meta.Name, err)
			}
			defer inst.Destroy()

			return printDescription(cmd.OutOrStdout(), meta, inst.Methods())
		},
	}

	cmd.Flags().StringVar(&require, "require", "", "fail unless the plugin version satisfies this constraint")
	return cmd
}

func discard(uint32, string) error { return nil }

func requireVersion(meta *plugin.ServiceMetadata, constraint string) error {
	if strings.TrimSpace(constraint) == "" {
		return nil
	}
	ok, err := meta.Version.Satisfies(constraint)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("plugin %s version %s does not satisfy %q", meta.Name, meta.Version, constraint)
	}
	return nil
}

func printDescription(w io.Writer, meta *plugin.ServiceMetadata, methods string) error {
	_, err := fmt.Fprintf(w, "Name:    %s\nVersion: %s\nMethods: %s\n", meta.Name, meta.Version, methods)
	return err
}
