package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/badgerdao/settsim/metrics"
)

// -------------------------------------------------------------------------------------
// Fakes
// -------------------------------------------------------------------------------------

type record = map[string]interface{}

type fakeRunner struct {
	calls  int
	handle func(query string, vars map[string]interface{}) (interface{}, error)
}

func (f *fakeRunner) Query(ctx context.Context, query string, vars map[string]interface{}, resp interface{}) error {
	f.calls++
	data, err := f.handle(query, vars)
	if err != nil {
		return err
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, resp)
}

// page returns the records after the cursor, as a subgraph ordering by id would.
func page(records []record, after string, first int) []record {
	out := []record{}
	for _, r := range records {
		if r["id"].(string) > after && len(out) < first {
			out = append(out, r)
		}
	}
	return out
}

func cursorOf(vars map[string]interface{}, key string) string {
	return vars[key].(map[string]interface{})["id_gt"].(string)
}

func newTestClient(runner, cream Runner, pageSize int) *Client {
	return NewClientWithRunners(runner, cream, Config{PageSize: pageSize}, zerolog.Nop(), nil)
}

func accountID(i int) string {
	return fmt.Sprintf("0x%040x", i)
}

// -------------------------------------------------------------------------------------
// Pagination
// -------------------------------------------------------------------------------------

func TestFetchAllReturnsEveryRecordOnce(t *testing.T) {
	ids := make([]string, 2500)
	for i := range ids {
		ids[i] = fmt.Sprintf("%05d", i)
	}

	calls := 0
	fetch := func(ctx context.Context, after string, first int) ([]string, error) {
		calls++
		out := []string{}
		for _, id := range ids {
			if id > after && len(out) < first {
				out = append(out, id)
			}
		}
		return out, nil
	}

	cursor := NewCursor()
	all, err := FetchAll(context.Background(), cursor, 1000, fetch, func(s string) string { return s })
	require.NoError(t, err)
	assert.Equal(t, ids, all)
	assert.Equal(t, 4, calls)
	assert.Equal(t, "02499", cursor.Last())
}

func TestFetchAllPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	fetch := func(ctx context.Context, after string, first int) ([]string, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return []string{fmt.Sprint(calls)}, nil
	}
	_, err := FetchAll(context.Background(), NewCursor(), 1, fetch, func(s string) string { return s })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestCursors(t *testing.T) {
	assert.Equal(t, "", NewCursor().Last())
	assert.Equal(t, ZeroAddress, NewAddressCursor().Last())
}

// -------------------------------------------------------------------------------------
// Sett balances
// -------------------------------------------------------------------------------------

func TestSettBalances(t *testing.T) {
	balances := make([]record, 2500)
	for i := range balances {
		balances[i] = record{"id": accountID(i) + "-0xvault", "shareBalanceRaw": fmt.Sprint(i + 1)}
	}

	runner := &fakeRunner{handle: func(query string, vars map[string]interface{}) (interface{}, error) {
		assert.Equal(t, map[string]interface{}{"id": "0xvault"}, vars["vaultID"])
		assert.Equal(t, map[string]interface{}{"number": uint64(100)}, vars["blockHeight"])
		p := page(balances, cursorOf(vars, "lastBalanceId"), vars["first"].(int))
		return record{"vaults": []record{{"balances": p}}}, nil
	}}

	reg := prometheus.NewRegistry()
	client := NewClientWithRunners(runner, nil, Config{}, zerolog.Nop(), metrics.New(reg))
	out, err := client.SettBalances(context.Background(), "0xvault", 100)
	require.NoError(t, err)
	assert.Len(t, out, 2500)
	assert.Equal(t, big.NewInt(1), out[accountID(0)])
	assert.Equal(t, big.NewInt(2500), out[accountID(2499)])
	assert.Equal(t, 4, runner.calls)

	count, err := testutil.GatherAndCount(reg, "settsim_subgraph_pages_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSettBalancesMissingVault(t *testing.T) {
	runner := &fakeRunner{handle: func(string, map[string]interface{}) (interface{}, error) {
		return record{"vaults": []record{}}, nil
	}}
	out, err := newTestClient(runner, nil, 10).SettBalances(context.Background(), "0xnone", 1)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	down := errors.New("connection refused")
	runner := &fakeRunner{handle: func(string, map[string]interface{}) (interface{}, error) {
		return nil, down
	}}
	_, err := newTestClient(runner, nil, 10).SettBalances(context.Background(), "0xvault", 1)
	require.Error(t, err)
	assert.Equal(t, down, errors.Cause(err))
	assert.Contains(t, err.Error(), "fail to query balances")
	assert.Equal(t, 1, runner.calls)
}

// -------------------------------------------------------------------------------------
// Transfers
// -------------------------------------------------------------------------------------

func transfer(id, account, amount, ppfs string, timestamp, block int) record {
	return record{
		"id":                id,
		"account":           record{"id": account},
		"amount":            amount,
		"pricePerFullShare": ppfs,
		"transaction":       record{"timestamp": fmt.Sprint(timestamp), "blockNumber": fmt.Sprint(block)},
	}
}

func TestSettTransfers(t *testing.T) {
	deposits := []record{
		transfer("d1", "0xa", "100", "2000000000000000000", 20, 11),
		transfer("d2", "0xb", "5", "1000000000000000000", 5, 10), // at the start block
		transfer("d3", "0xc", "3", "2000000000000000000", 30, 12),
	}
	withdrawals := []record{
		transfer("w1", "0xa", "100", "2000000000000000000", 20, 13),
		transfer("w2", "0xb", "5", "2000000000000000000", 10, 14),
	}

	runner := &fakeRunner{handle: func(query string, vars map[string]interface{}) (interface{}, error) {
		assert.Equal(t, map[string]interface{}{"number": uint64(50)}, vars["blockHeight"])
		first := vars["first"].(int)
		switch {
		case strings.Contains(query, "Deposit_filter"):
			return record{"vaults": []record{{"deposits": page(deposits, cursorOf(vars, "lastId"), first)}}}, nil
		case strings.Contains(query, "Withdrawal_filter"):
			return record{"vaults": []record{{"withdrawals": page(withdrawals, cursorOf(vars, "lastId"), first)}}}, nil
		}
		return nil, fmt.Errorf("unexpected query %s", query)
	}}

	out, err := newTestClient(runner, nil, 2).SettTransfers(context.Background(), "0xvault", 10, 50)
	require.NoError(t, err)

	ids := []string{}
	amounts := []int64{}
	for _, tr := range out {
		ids = append(ids, tr.ID)
		amounts = append(amounts, tr.Amount.Int64())
	}
	assert.Equal(t, []string{"w2", "d1", "w1", "d3"}, ids)
	// 3 / 2 = 1.5 rounds half to even
	assert.Equal(t, []int64{-2, 50, -50, 2}, amounts)
	assert.Equal(t, Deposit, out[1].Kind)
	assert.Equal(t, Withdrawal, out[2].Kind)
	assert.Equal(t, "0xa", out[1].Account)
}

func TestConvertTransferRejectsZeroPrice(t *testing.T) {
	_, err := convertTransfer(rawTransfer{ID: "x", PricePerFullShare: "0", Amount: "1"}, Deposit)
	assert.Error(t, err)
}

// -------------------------------------------------------------------------------------
// Geyser
// -------------------------------------------------------------------------------------

func TestGeyserEvents(t *testing.T) {
	stakes := []record{
		{"id": "s1", "user": "0xa", "amount": "10", "timestamp": "1", "total": "10"},
		{"id": "s2", "user": "0xb", "amount": "20", "timestamp": "2", "total": "30"},
		{"id": "s3", "user": "0xa", "amount": "5", "timestamp": "3", "total": "35"},
	}
	unstakes := []record{
		{"id": "u1", "user": "0xa", "amount": "8", "timestamp": "4", "total": "27"},
	}

	runner := &fakeRunner{handle: func(query string, vars map[string]interface{}) (interface{}, error) {
		first := vars["first"].(int)
		return record{"geysers": []record{{
			"id":            "0xgeyser",
			"totalStaked":   "27",
			"stakeEvents":   page(stakes, cursorOf(vars, "lastStakedId"), first),
			"unstakeEvents": page(unstakes, cursorOf(vars, "lastUnstakedId"), first),
		}}}, nil
	}}

	out, err := newTestClient(runner, nil, 2).GeyserEvents(context.Background(), "0xgeyser", 100)
	require.NoError(t, err)
	assert.Len(t, out.Stakes, 3)
	assert.Len(t, out.Unstakes, 1)
	assert.Equal(t, big.NewInt(27), out.TotalStaked)
	assert.Equal(t, big.NewInt(27), out.NetStaked())
	assert.Equal(t, "s3", out.Stakes[2].ID)
	assert.Equal(t, 3, runner.calls)
}

func TestGeyserMissing(t *testing.T) {
	runner := &fakeRunner{handle: func(string, map[string]interface{}) (interface{}, error) {
		return record{"geysers": []record{}}, nil
	}}
	out, err := newTestClient(runner, nil, 2).GeyserEvents(context.Background(), "0xnone", 1)
	require.NoError(t, err)
	assert.Empty(t, out.Stakes)
	assert.Equal(t, int64(0), out.TotalStaked.Int64())
	assert.Equal(t, int64(0), out.NetStaked().Int64())
}

// -------------------------------------------------------------------------------------
// Harvests
// -------------------------------------------------------------------------------------

func TestFarmHarvestEvents(t *testing.T) {
	events := []record{
		{"id": "a", "farmToRewards": "7", "blockNumber": "30", "totalFarmHarvested": "9", "timestamp": "300"},
		{"id": "b", "farmToRewards": "3", "blockNumber": "10", "totalFarmHarvested": "4", "timestamp": "100"},
	}
	runner := &fakeRunner{handle: func(query string, vars map[string]interface{}) (interface{}, error) {
		return record{"farmHarvestEvents": page(events, cursorOf(vars, "lastId"), vars["first"].(int))}, nil
	}}

	out, err := newTestClient(runner, nil, 1).FarmHarvestEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, big.NewInt(3), out[0].RewardAmount)
	assert.Equal(t, big.NewInt(7), out[1].RewardAmount)
}

func TestSushiHarvestBuckets(t *testing.T) {
	event := func(strategy string, block int) record {
		return record{
			"id":              fmt.Sprintf("%s-%d", strategy, block),
			"xSushiHarvested": "1",
			"totalxSushi":     "2",
			"toStrategist":    "3",
			"toBadgerTree":    fmt.Sprint(block * 10),
			"toGovernance":    "4",
			"timestamp":       fmt.Sprint(block * 100),
			"blockNumber":     fmt.Sprint(block),
		}
	}
	events := []record{
		event("0x0000000000000000000000000000000000000001", 1),
		event(WbtcBadgerStrategy, 5),
		event(WbtcEthStrategy, 9),
		event(WbtcEthStrategy, 2),
		event(WbtcDiggStrategy, 3),
	}
	runner := &fakeRunner{handle: func(query string, vars map[string]interface{}) (interface{}, error) {
		return record{"sushiHarvestEvents": page(events, cursorOf(vars, "lastId"), vars["first"].(int))}, nil
	}}

	out, err := newTestClient(runner, nil, 1000).SushiHarvestEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, out.WbtcEth, 2)
	assert.Equal(t, int64(2), out.WbtcEth[0].BlockNumber)
	assert.Equal(t, big.NewInt(90), out.WbtcEth[1].RewardAmount)
	require.Len(t, out.WbtcBadger, 1)
	assert.Equal(t, big.NewInt(50), out.WbtcBadger[0].RewardAmount)
	require.Len(t, out.WbtcDigg, 1)
}

// -------------------------------------------------------------------------------------
// Wallets and cream
// -------------------------------------------------------------------------------------

type halfConverter struct{}

func (halfConverter) SharesToFragments(ctx context.Context, shares *big.Int) (*big.Int, error) {
	return new(big.Int).Div(shares, big.NewInt(2)), nil
}

func TestWalletBalances(t *testing.T) {
	balances := []record{
		{"id": accountID(1) + "-badger", "balance": "2000000000000000000", "token": record{"symbol": "BADGER"}},
		{"id": accountID(2) + "-digg", "balance": "4000000000", "token": record{"symbol": "DIGG"}},
		{"id": accountID(3) + "-badger", "balance": "0", "token": record{"symbol": "BADGER"}},
		{"id": accountID(4) + "-usdc", "balance": "5", "token": record{"symbol": "USDC"}},
	}
	runner := &fakeRunner{handle: func(query string, vars map[string]interface{}) (interface{}, error) {
		return record{"tokenBalances": page(balances, vars["lastID"].(string), vars["first"].(int))}, nil
	}}

	badger, digg, err := newTestClient(runner, nil, 3).WalletBalances(
		context.Background(), decimal.NewFromInt(10), decimal.NewFromInt(40000), halfConverter{})
	require.NoError(t, err)
	require.Len(t, badger, 1)
	require.Len(t, digg, 1)
	assert.True(t, badger[accountID(1)].Equal(decimal.NewFromInt(20)))
	assert.True(t, digg[accountID(2)].Equal(decimal.NewFromInt(80000)))
}

func TestCreamBalances(t *testing.T) {
	tokens := []record{
		{"id": accountID(1) + "-crbbadger", "totalUnderlyingSupplied": "3", "account": record{"id": "0xa"}},
		{"id": accountID(2) + "-crbbadger", "totalUnderlyingSupplied": "6", "account": record{"id": "0xb"}},
	}
	cream := &fakeRunner{handle: func(query string, vars map[string]interface{}) (interface{}, error) {
		if vars["symbol"] != "crBBADGER" {
			return record{"accountCTokens": []record{}, "markets": []record{}}, nil
		}
		return record{
			"accountCTokens": page(tokens, vars["lastID"].(string), vars["first"].(int)),
			"markets":        []record{{"exchangeRate": "2"}},
		}, nil
	}}
	client := newTestClient(&fakeRunner{}, cream, 1)

	out, err := client.CreamBalances(context.Background(), "crBBADGER")
	require.NoError(t, err)
	assert.True(t, out["0xa"].Equal(decimal.New(1, 18)))
	assert.True(t, out["0xb"].Equal(decimal.New(2, 18)))

	out, err = client.CreamBalances(context.Background(), "crNONE")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = newTestClient(&fakeRunner{}, nil, 1).CreamBalances(context.Background(), "crBBADGER")
	assert.Error(t, err)
}

// -------------------------------------------------------------------------------------
// HTTP
// -------------------------------------------------------------------------------------

func TestGraphQLRunner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, clientID, r.Header.Get("X-Client-ID"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Contains(t, req.Query, "farmHarvestEvents")

		w.Header().Set("Content-Type", "application/json")
		if cursorOf(req.Variables, "lastId") != "" {
			_, _ = w.Write([]byte(`{"data":{"farmHarvestEvents":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"farmHarvestEvents":[{"id":"a","farmToRewards":"1","blockNumber":"2","totalFarmHarvested":"3","timestamp":"4"}]}}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Timeout: 5 * time.Second}, zerolog.Nop(), nil)
	out, err := client.FarmHarvestEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, big.NewInt(1), out[0].RewardAmount)
}
