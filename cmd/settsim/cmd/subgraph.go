package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/config"
	"gitlab.com/badgerdao/settsim/test/simulation/pkg/evm"
	"gitlab.com/badgerdao/settsim/tools/subgraph"
)

// GetSubgraphCmd groups the subgraph queries. Every query prints its result as JSON.
func GetSubgraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subgraph",
		Short: "Query vault balances and events from the subgraph",
	}
	flags := cmd.PersistentFlags()
	flags.String("url", "", "subgraph url")
	flags.String("cream-url", "", "cream subgraph url")
	flags.Int("page-size", 0, "entities per page")
	flags.Int("retries", 0, "retries of failed requests")
	flags.Float64("rate-limit", 0, "queries per second, unlimited when zero")
	bindFlags(flags, map[string]string{
		"subgraph.url":        "url",
		"subgraph.cream_url":  "cream-url",
		"subgraph.page_size":  "page-size",
		"subgraph.retries":    "retries",
		"subgraph.rate_limit": "rate-limit",
	})

	cmd.AddCommand(
		getBalancesCmd(),
		getTransfersCmd(),
		getGeyserCmd(),
		getHarvestsCmd(),
		getWalletsCmd(),
		getCreamCmd(),
	)
	return cmd
}

// newSubgraphClient builds the client from config. Metrics are not served for one-shot
// queries.
func newSubgraphClient(cmd *cobra.Command) (*subgraph.Client, zerolog.Logger, error) {
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, log, err
	}
	cfg, err := config.GetSubgraph()
	if err != nil {
		return nil, log, err
	}
	return subgraph.NewClient(subgraph.Config{
		URL:       cfg.URL,
		CreamURL:  cfg.CreamURL,
		PageSize:  cfg.PageSize,
		Retries:   cfg.Retries,
		RateLimit: cfg.RateLimit,
		Timeout:   cfg.Timeout,
	}, log, nil), log, nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseBlock(s string) (uint64, error) {
	block, err := cast.ToUint64E(s)
	if err != nil {
		return 0, fmt.Errorf("fail to parse block %q: %w", s, err)
	}
	return block, nil
}

func getBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances [sett] [block]",
		Short: "Vault share balances per account at a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := parseBlock(args[1])
			if err != nil {
				return err
			}
			client, _, err := newSubgraphClient(cmd)
			if err != nil {
				return err
			}
			balances, err := client.SettBalances(cmd.Context(), args[0], block)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), balances)
		},
	}
}

func getTransfersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfers [sett] [start-block] [end-block]",
		Short: "Vault deposits and withdrawals in want between two blocks",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseBlock(args[1])
			if err != nil {
				return err
			}
			end, err := parseBlock(args[2])
			if err != nil {
				return err
			}
			if end < start {
				return fmt.Errorf("end block %d before start block %d", end, start)
			}
			client, _, err := newSubgraphClient(cmd)
			if err != nil {
				return err
			}
			transfers, err := client.SettTransfers(cmd.Context(), args[0], start, end)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), transfers)
		},
	}
}

func getGeyserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geyser [geyser] [block]",
		Short: "Geyser stakes and unstakes up to a block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := parseBlock(args[1])
			if err != nil {
				return err
			}
			client, _, err := newSubgraphClient(cmd)
			if err != nil {
				return err
			}
			events, err := client.GeyserEvents(cmd.Context(), args[0], block)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
}

func getHarvestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "harvests [farm|sushi]",
		Short:     "Harvest events of the harvest farm or the sushi strategies",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"farm", "sushi"},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newSubgraphClient(cmd)
			if err != nil {
				return err
			}
			var events interface{}
			switch args[0] {
			case "farm":
				events, err = client.FarmHarvestEvents(cmd.Context())
			case "sushi":
				events, err = client.SushiHarvestEvents(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}
}

func getWalletsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wallets [badger-price] [digg-price]",
		Short: "BADGER and DIGG wallet balances valued at the given prices",
		Long:  "DIGG shares are converted to fragments on the node set by simulation.rpc and simulation.deploy_file.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			badgerPrice, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("fail to parse badger price: %w", err)
			}
			diggPrice, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("fail to parse digg price: %w", err)
			}
			client, log, err := newSubgraphClient(cmd)
			if err != nil {
				return err
			}

			sim, err := config.GetSimulation()
			if err != nil {
				return err
			}
			network, err := common.NewNetwork(sim.Network)
			if err != nil {
				return err
			}
			reg, err := loadRegistry(network, sim.RegistryFile)
			if err != nil {
				return err
			}
			node, err := evm.Dial(cmd.Context(), sim.RPC, log)
			if err != nil {
				return err
			}
			defer node.Close()
			sys, err := evm.LoadSystem(node, network, reg, sim.DeployFile)
			if err != nil {
				return err
			}
			digg, err := sys.Digg()
			if err != nil {
				return err
			}

			badger, diggBalances, err := client.WalletBalances(cmd.Context(), badgerPrice, diggPrice, digg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"badger": badger,
				"digg":   diggBalances,
			})
		},
	}
}

func getCreamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cream [symbol]",
		Short: "Underlying balances per account of a cream market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newSubgraphClient(cmd)
			if err != nil {
				return err
			}
			balances, err := client.CreamBalances(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), balances)
		},
	}
}
