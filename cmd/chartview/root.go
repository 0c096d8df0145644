package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicktill/tinychart/pkg/config"
	"github.com/nicktill/tinychart/pkg/source"
)

var version = "dev"

// newRootCmd builds the chartview command tree. Every setting can come from a
// flag, a TINYCHART_* environment variable or the config file, in that order.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TINYCHART")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfgFile string

	root := &cobra.Command{
		Use:   "chartview",
		Short: "Timeseries chart widget",
		Long: `chartview fetches a timeseries from a data source, aggregates it into a
daily, weekly or monthly view and renders it as a line chart.

Example usage:
  chartview serve                               # Widget page on :8081
  chartview render --timeframe weekly           # Write chart.png
  chartview render --data csv --out week.png    # Also print the series`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("reading config: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("source", config.DefaultSourceURL, "data source URL or file path")
	root.PersistentFlags().Duration("timeout", config.FetchTimeout, "data source fetch timeout")

	_ = v.BindPFlag("source", root.PersistentFlags().Lookup("source"))
	_ = v.BindPFlag("timeout", root.PersistentFlags().Lookup("timeout"))

	root.AddCommand(newServeCmd(v), newRenderCmd(v), newSeedCmd(v), newVersionCmd())
	return root
}

// newSource opens the configured data source.
func newSource(v *viper.Viper) (string, source.Source) {
	location := v.GetString("source")
	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = config.FetchTimeout
	}
	return location, source.New(location, timeout)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "chartview %s\n", version)
			return nil
		},
	}
}

// renderTimeout bounds a one-shot fetch and render.
func renderTimeout(v *viper.Viper) time.Duration {
	if d := v.GetDuration("timeout"); d > config.RenderTimeout {
		return d
	}
	return config.RenderTimeout
}
