package subgraph

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"gitlab.com/badgerdao/settsim/constants"
)

// -------------------------------------------------------------------------------------
// Wallets
// -------------------------------------------------------------------------------------

const walletBalancesQuery = `
query wallet_balances($first: Int, $lastID: ID) {
  tokenBalances(first: $first, where: { id_gt: $lastID }, orderBy: id) {
    id
    balance
    token {
      symbol
    }
  }
}`

type rawTokenBalance struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
	Token   struct {
		Symbol string `json:"symbol"`
	} `json:"token"`
}

// WalletBalances values the BADGER and DIGG held by every wallet in USD. DIGG balances
// are indexed in shares and converted to fragments with converter.
func (c *Client) WalletBalances(ctx context.Context, badgerPrice, diggPrice decimal.Decimal, converter SharesConverter) (badger, digg map[string]decimal.Decimal, err error) {
	fetch := func(ctx context.Context, after string, first int) ([]rawTokenBalance, error) {
		var resp struct {
			Balances []rawTokenBalance `json:"tokenBalances"`
		}
		vars := map[string]interface{}{"lastID": after, "first": first}
		if err := c.query(ctx, c.subgraph, "tokenBalances", walletBalancesQuery, vars, &resp); err != nil {
			return nil, err
		}
		return resp.Balances, nil
	}
	raw, err := FetchAll(ctx, NewAddressCursor(), c.pageSize, fetch, func(b rawTokenBalance) string { return b.ID })
	if err != nil {
		return nil, nil, err
	}

	badgerScale := decimal.New(1, constants.PPFSDecimals)
	diggScale := decimal.New(1, constants.DiggDecimals)
	badger = map[string]decimal.Decimal{}
	digg = map[string]decimal.Decimal{}
	for _, r := range raw {
		balance, err := parseBig("balance", r.Balance)
		if err != nil {
			return nil, nil, err
		}
		if balance.Sign() <= 0 {
			continue
		}
		address := strings.SplitN(r.ID, "-", 2)[0]

		switch r.Token.Symbol {
		case "BADGER":
			badger[address] = decimal.NewFromBigInt(balance, 0).Div(badgerScale).Mul(badgerPrice)
		case "DIGG":
			fragments, err := converter.SharesToFragments(ctx, balance)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "fail to convert digg shares of %s", address)
			}
			digg[address] = decimal.NewFromBigInt(fragments, 0).Div(diggScale).Mul(diggPrice)
		}
	}
	c.log.Info().Int("badger", len(badger)).Int("digg", len(digg)).Msg("processed wallet balances")
	return badger, digg, nil
}

// -------------------------------------------------------------------------------------
// Cream
// -------------------------------------------------------------------------------------

const creamBalancesQuery = `
query cream_balances($first: Int, $lastID: ID, $symbol: String) {
  accountCTokens(first: $first, where: { id_gt: $lastID, symbol: $symbol, enteredMarket: true }, orderBy: id) {
    id
    totalUnderlyingBorrowed
    totalUnderlyingSupplied
    account {
      id
    }
  }
  markets(where: { symbol: $symbol }) {
    exchangeRate
  }
}`

type rawCToken struct {
	ID                      string `json:"id"`
	TotalUnderlyingSupplied string `json:"totalUnderlyingSupplied"`
	Account                 struct {
		ID string `json:"id"`
	} `json:"account"`
}

type creamResponse struct {
	AccountCTokens []rawCToken `json:"accountCTokens"`
	Markets        []struct {
		ExchangeRate string `json:"exchangeRate"`
	} `json:"markets"`
}

// CreamBalances returns the underlying supplied by every account to the cream market of
// symbol, as supplied * 1e18 / (1 + exchangeRate). Empty when there is no such market.
func (c *Client) CreamBalances(ctx context.Context, symbol string) (map[string]decimal.Decimal, error) {
	var exchangeRate string
	fetch := func(ctx context.Context, after string, first int) ([]rawCToken, error) {
		var resp creamResponse
		vars := map[string]interface{}{"lastID": after, "first": first, "symbol": symbol}
		if err := c.query(ctx, c.cream, "accountCTokens", creamBalancesQuery, vars, &resp); err != nil {
			return nil, err
		}
		if len(resp.Markets) == 0 {
			return nil, errNotFound
		}
		exchangeRate = resp.Markets[0].ExchangeRate
		return resp.AccountCTokens, nil
	}
	raw, err := FetchAll(ctx, NewAddressCursor(), c.pageSize, fetch, func(t rawCToken) string { return t.ID })
	if errors.Is(err, errNotFound) {
		c.log.Info().Str("symbol", symbol).Msg("no cream market")
		return map[string]decimal.Decimal{}, nil
	}
	if err != nil {
		return nil, err
	}

	rate, err := decimal.NewFromString(exchangeRate)
	if err != nil {
		return nil, errors.Wrap(err, "exchangeRate")
	}
	divisor := decimal.NewFromInt(1).Add(rate)
	scale := decimal.New(1, constants.PPFSDecimals)

	out := make(map[string]decimal.Decimal, len(raw))
	for _, r := range raw {
		supplied, err := decimal.NewFromString(r.TotalUnderlyingSupplied)
		if err != nil {
			return nil, errors.Wrapf(err, "totalUnderlyingSupplied of %s", r.ID)
		}
		out[r.Account.ID] = supplied.Mul(scale).DivRound(divisor, constants.DecimalPrecision)
	}
	c.log.Info().Str("symbol", symbol).Int("balances", len(out)).Msg("processed cream balances")
	return out, nil
}
