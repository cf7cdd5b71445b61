package subgraph

import (
	"context"
	"math/big"
)

// Geyser staking events and the totals reported by the geyser entity.
type GeyserEvent struct {
	ID        string
	User      string
	Amount    *big.Int
	Total     *big.Int
	Timestamp int64
}

type GeyserEvents struct {
	Stakes   []GeyserEvent
	Unstakes []GeyserEvent

	// TotalStaked is the geyser totalStaked field at the queried block.
	TotalStaked *big.Int
}

// NetStaked sums the stakes minus the unstakes.
func (g GeyserEvents) NetStaked() *big.Int {
	net := new(big.Int)
	for _, e := range g.Stakes {
		net.Add(net, e.Amount)
	}
	for _, e := range g.Unstakes {
		net.Sub(net, e.Amount)
	}
	return net
}

type TransferKind string

const (
	Deposit    TransferKind = "deposit"
	Withdrawal TransferKind = "withdrawal"
)

// Transfer is a vault deposit or withdrawal. Amount is in want, converted from shares
// with the price per full share at the time, and negative for withdrawals.
type Transfer struct {
	ID                string
	Kind              TransferKind
	Account           string
	Amount            *big.Int
	PricePerFullShare *big.Int
	Timestamp         int64
	BlockNumber       int64
}

type FarmHarvestEvent struct {
	ID                 string
	RewardAmount       *big.Int
	TotalFarmHarvested *big.Int
	BlockNumber        int64
	Timestamp          int64
}

type SushiHarvestEvent struct {
	ID              string
	XSushiHarvested *big.Int
	TotalXSushi     *big.Int
	ToStrategist    *big.Int
	ToGovernance    *big.Int
	RewardAmount    *big.Int
	BlockNumber     int64
	Timestamp       int64
}

// SushiHarvests groups sushi harvest events by strategy.
type SushiHarvests struct {
	WbtcEth    []SushiHarvestEvent
	WbtcBadger []SushiHarvestEvent
	WbtcDigg   []SushiHarvestEvent
}

// Sushi strategies with harvest events of interest.
const (
	WbtcEthStrategy    = "0x7a56d65254705b4def63c68488c0182968c452ce"
	WbtcBadgerStrategy = "0x3a494d79aa78118795daad8aeff5825c6c8df7f1"
	WbtcDiggStrategy   = "0xaa8dddfe7dfa3c3269f1910d89e4413dd006d08a"
)

// SharesConverter converts DIGG shares to fragments, as the DIGG token does.
type SharesConverter interface {
	SharesToFragments(ctx context.Context, shares *big.Int) (*big.Int, error)
}
