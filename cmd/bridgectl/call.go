package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gobridge.szuro.net/pkg/bridge"
	"gobridge.szuro.net/pkg/plugin"
)

const metricPrefix = "gobridge_"

func callCmd() *cobra.Command {
	var (
		channel uint32
		token   string
		connect bool
		require string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "call <plugin.so> <request> [request...]",
		Short: "Invoke plugin methods with JSON-RPC requests",
		Long: `Create one plugin instance and invoke each request in order.
Every message the plugin sends is printed as "<channel>\t<message>",
starting with the method list announced on channel 0.`,
		Example: `  bridgectl call arith.so '{"method":"add","params":[2,3,4],"id":1}'`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := openPlugin(args[0])
			if err != nil {
				return err
			}
			if err := requireVersion(meta, require); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			inst, err := bridge.Create("", meta, printer(out), bridgeConf.Options()...)
			if err != nil {
				return fmt.Errorf("creating %s: %w", meta.Name, err)
			}

			var errs []error
			if connect {
				errs = append(errs, inst.OnClientConnect(channel))
			}
			ctx := plugin.RequestContext{ChannelID: channel, AuthToken: token}
			for _, request := range args[1:] {
				if err := inst.Invoke(request, ctx); err != nil {
					errs = append(errs, fmt.Errorf("request %s: %w", request, err))
				}
			}
			if connect {
				errs = append(errs, inst.OnClientDisconnect(channel))
			}
			errs = append(errs, inst.Destroy())

			if metrics {
				errs = append(errs, writeMetrics(out, prometheus.DefaultGatherer))
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().Uint32Var(&channel, "channel", 1, "channel id the requests arrive on")
	cmd.Flags().StringVar(&token, "token", "", "auth token passed in the request context")
	cmd.Flags().BoolVar(&connect, "connect", false, "announce the channel as connected around the requests")
	cmd.Flags().StringVar(&require, "require", "", "fail unless the plugin version satisfies this constraint")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print bridge metrics after the calls")
	return cmd
}

func printer(w io.Writer) bridge.DelivererFunc {
	return func(channelID uint32, message string) error {
		_, err := fmt.Fprintf(w, "%d\t%s\n", channelID, message)
		return err
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), metricPrefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
