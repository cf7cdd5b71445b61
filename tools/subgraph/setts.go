package subgraph

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"gitlab.com/badgerdao/settsim/constants"
)

// -------------------------------------------------------------------------------------
// Balances
// -------------------------------------------------------------------------------------

const balancesQuery = `
query balances($vaultID: Vault_filter, $blockHeight: Block_height, $lastBalanceId: AccountVaultBalance_filter, $first: Int) {
  vaults(block: $blockHeight, where: $vaultID) {
    balances(first: $first, where: $lastBalanceId, orderBy: id) {
      id
      account {
        id
      }
      shareBalanceRaw
    }
  }
}`

type rawBalance struct {
	ID              string `json:"id"`
	ShareBalanceRaw string `json:"shareBalanceRaw"`
}

type balancesResponse struct {
	Vaults []struct {
		Balances []rawBalance `json:"balances"`
	} `json:"vaults"`
}

// SettBalances returns the raw share balance of every account in the vault at block.
// The result is empty when the vault does not exist at that block.
func (c *Client) SettBalances(ctx context.Context, settID string, block uint64) (map[string]*big.Int, error) {
	c.log.Info().Str("sett", settID).Uint64("block", block).Msg("fetching sett balances")

	fetch := func(ctx context.Context, after string, first int) ([]rawBalance, error) {
		var resp balancesResponse
		vars := map[string]interface{}{
			"vaultID":       idFilter(settID),
			"blockHeight":   blockHeight(block),
			"lastBalanceId": idGt(after),
			"first":         first,
		}
		if err := c.query(ctx, c.subgraph, "balances", balancesQuery, vars, &resp); err != nil {
			return nil, err
		}
		if len(resp.Vaults) == 0 {
			return nil, errNotFound
		}
		return resp.Vaults[0].Balances, nil
	}

	raw, err := FetchAll(ctx, NewCursor(), c.pageSize, fetch, func(b rawBalance) string { return b.ID })
	if errors.Is(err, errNotFound) {
		return map[string]*big.Int{}, nil
	}
	if err != nil {
		return nil, err
	}

	balances := make(map[string]*big.Int, len(raw))
	for _, b := range raw {
		amount, err := parseBig("shareBalanceRaw", b.ShareBalanceRaw)
		if err != nil {
			return nil, err
		}
		account := strings.SplitN(b.ID, "-", 2)[0]
		balances[account] = amount
	}
	c.log.Info().Int("balances", len(balances)).Msg("processed sett balances")
	return balances, nil
}

// -------------------------------------------------------------------------------------
// Transfers
// -------------------------------------------------------------------------------------

const transfersQueryTemplate = `
query sett_%[1]s($vaultID: Vault_filter, $blockHeight: Block_height, $lastId: %[2]s_filter, $first: Int) {
  vaults(block: $blockHeight, where: $vaultID) {
    %[1]s(first: $first, where: $lastId, orderBy: id) {
      id
      pricePerFullShare
      account {
        id
      }
      amount
      transaction {
        timestamp
        blockNumber
      }
    }
  }
}`

type rawTransfer struct {
	ID                string `json:"id"`
	PricePerFullShare string `json:"pricePerFullShare"`
	Account           struct {
		ID string `json:"id"`
	} `json:"account"`
	Amount      string `json:"amount"`
	Transaction struct {
		Timestamp   string `json:"timestamp"`
		BlockNumber string `json:"blockNumber"`
	} `json:"transaction"`
}

type transfersResponse struct {
	Vaults []map[string][]rawTransfer `json:"vaults"`
}

var ppfsScale = decimal.New(1, constants.PPFSDecimals)

// SettTransfers returns the vault deposits and withdrawals as of endBlock that happened
// after startBlock, ordered by timestamp with deposits first on ties.
func (c *Client) SettTransfers(ctx context.Context, settID string, startBlock, endBlock uint64) ([]Transfer, error) {
	c.log.Info().Str("sett", settID).Uint64("start", startBlock).Uint64("end", endBlock).Msg("fetching sett transfers")

	deposits, err := c.transfers(ctx, settID, Deposit, "deposits", "Deposit", startBlock, endBlock)
	if err != nil {
		return nil, err
	}
	withdrawals, err := c.transfers(ctx, settID, Withdrawal, "withdrawals", "Withdrawal", startBlock, endBlock)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("deposits", len(deposits)).Int("withdrawals", len(withdrawals)).Msg("processed sett transfers")

	transfers := append(deposits, withdrawals...)
	sort.SliceStable(transfers, func(i, j int) bool {
		return transfers[i].Timestamp < transfers[j].Timestamp
	})
	return transfers, nil
}

func (c *Client) transfers(ctx context.Context, settID string, kind TransferKind, collection, entity string, startBlock, endBlock uint64) ([]Transfer, error) {
	query := fmt.Sprintf(transfersQueryTemplate, collection, entity)
	fetch := func(ctx context.Context, after string, first int) ([]rawTransfer, error) {
		var resp transfersResponse
		vars := map[string]interface{}{
			"vaultID":     idFilter(settID),
			"blockHeight": blockHeight(endBlock),
			"lastId":      idGt(after),
			"first":       first,
		}
		if err := c.query(ctx, c.subgraph, collection, query, vars, &resp); err != nil {
			return nil, err
		}
		if len(resp.Vaults) == 0 {
			return nil, errNotFound
		}
		return resp.Vaults[0][collection], nil
	}

	raw, err := FetchAll(ctx, NewCursor(), c.pageSize, fetch, func(t rawTransfer) string { return t.ID })
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]Transfer, 0, len(raw))
	for _, r := range raw {
		t, err := convertTransfer(r, kind)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s", kind, r.ID)
		}
		if t.BlockNumber <= int64(startBlock) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// convertTransfer converts a share amount to want: round_half_even(amount / (ppfs / 1e18)).
func convertTransfer(r rawTransfer, kind TransferKind) (Transfer, error) {
	ppfs, err := decimal.NewFromString(r.PricePerFullShare)
	if err != nil {
		return Transfer{}, errors.Wrap(err, "pricePerFullShare")
	}
	if ppfs.IsZero() {
		return Transfer{}, errors.New("zero pricePerFullShare")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return Transfer{}, errors.Wrap(err, "amount")
	}
	timestamp, err := cast.ToInt64E(r.Transaction.Timestamp)
	if err != nil {
		return Transfer{}, errors.Wrap(err, "timestamp")
	}
	block, err := cast.ToInt64E(r.Transaction.BlockNumber)
	if err != nil {
		return Transfer{}, errors.Wrap(err, "blockNumber")
	}

	ratio := ppfs.DivRound(ppfsScale, constants.DecimalPrecision)
	want := amount.DivRound(ratio, constants.DecimalPrecision).RoundBank(0)
	if kind == Withdrawal {
		want = want.Neg()
	}

	return Transfer{
		ID:                r.ID,
		Kind:              kind,
		Account:           r.Account.ID,
		Amount:            want.BigInt(),
		PricePerFullShare: ppfs.BigInt(),
		Timestamp:         timestamp,
		BlockNumber:       block,
	}, nil
}
