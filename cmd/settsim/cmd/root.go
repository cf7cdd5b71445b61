package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gitlab.com/badgerdao/settsim/config"
	"gitlab.com/badgerdao/settsim/metrics"
)

const flagConfig = "config"

// GetRootCmd returns the settsim command with every subcommand attached.
func GetRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "settsim",
		Short:         "Sett simulation harness and subgraph client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			file, err := cmd.Flags().GetString(flagConfig)
			if err != nil {
				return err
			}
			return config.Init(file)
		},
	}
	cmd.PersistentFlags().String(flagConfig, "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().String("log-level", "", "log level")
	bindFlags(cmd.PersistentFlags(), map[string]string{"log.level": "log-level"})

	cmd.AddCommand(GetSimulateCmd(), GetSubgraphCmd())
	return cmd
}

// bindFlags binds config keys to flags so a set flag overrides the file and the
// environment.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("fail to bind flag %s: %s", name, err))
		}
	}
}

// newLogger builds the command logger from the log config.
func newLogger(out io.Writer) (zerolog.Logger, error) {
	cfg, err := config.GetLog()
	if err != nil {
		return zerolog.Nop(), err
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("fail to parse log level: %w", err)
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Caller().Logger(), nil
}

// serveMetrics exposes a fresh registry on addr and returns its metrics. It returns nil
// metrics when addr is empty.
func serveMetrics(addr string, log zerolog.Logger) *metrics.Metrics {
	if addr == "" {
		return nil
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return m
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := GetRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
