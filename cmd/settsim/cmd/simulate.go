package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/common/registry"
	"gitlab.com/badgerdao/settsim/config"
	"gitlab.com/badgerdao/settsim/test/simulation/manager"
	"gitlab.com/badgerdao/settsim/test/simulation/pkg/evm"
)

func GetSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded random simulation against a vault on a local test node",
		Args:  cobra.ExactArgs(0),
		RunE:  simulate,
	}
	flags := cmd.Flags()
	flags.String("sett", "", "vault id, e.g. native.badger")
	flags.Int64("seed", 0, "random seed, the current time when zero")
	flags.Int("actions", 0, "number of actions to randomize")
	flags.String("rpc", "", "test node JSON-RPC url")
	flags.String("network", "", "network of the deployment (eth, bsc)")
	flags.String("deploy", "", "deployment address book")
	flags.String("registry", "", "registry file overriding the embedded whales")
	flags.String("metrics-addr", "", "address to serve prometheus metrics on")
	bindFlags(flags, map[string]string{
		"simulation.sett":          "sett",
		"simulation.seed":          "seed",
		"simulation.actions":       "actions",
		"simulation.rpc":           "rpc",
		"simulation.network":       "network",
		"simulation.deploy_file":   "deploy",
		"simulation.registry_file": "registry",
		"simulation.metrics_addr":  "metrics-addr",
	})
	return cmd
}

func simulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetSimulation()
	if err != nil {
		return err
	}
	if cfg.Sett == "" {
		return fmt.Errorf("no vault id, set --sett")
	}
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	network, err := common.NewNetwork(cfg.Network)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(network, cfg.RegistryFile)
	if err != nil {
		return err
	}

	client, err := evm.Dial(ctx, cfg.RPC, log)
	if err != nil {
		return err
	}
	defer client.Close()
	client.SetReceiptTimeout(cfg.ReceiptTimeout)

	sys, err := evm.LoadSystem(client, network, reg, cfg.DeployFile)
	if err != nil {
		return err
	}

	m, err := manager.New(ctx, manager.Config{
		System:  sys,
		SettID:  cfg.Sett,
		Seed:    cfg.Seed,
		Log:     log,
		Metrics: serveMetrics(cfg.MetricsAddr, log),
	})
	if err != nil {
		return err
	}
	return runSimulation(ctx, m, cfg.Actions)
}

func runSimulation(ctx context.Context, m *manager.Manager, actions int) error {
	if err := m.Provision(ctx); err != nil {
		return fmt.Errorf("fail to provision (seed %d): %w", m.Seed(), err)
	}
	if err := m.Randomize(ctx, actions); err != nil {
		return fmt.Errorf("fail to randomize (seed %d): %w", m.Seed(), err)
	}
	return m.Run(ctx)
}

func loadRegistry(network common.Network, path string) (*registry.Registry, error) {
	if path != "" {
		return registry.Load(network, path)
	}
	return registry.GetRegistry(network)
}
