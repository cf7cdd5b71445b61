package provisioners

import (
	"context"
	"fmt"
	"sort"

	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////////////
// Selection
////////////////////////////////////////////////////////////////////////////////////////

type constructor func(sim Simulation) Provisioner

var provisioners = map[string]constructor{
	"native.badger":          NewBadgerRewardsProvisioner,
	"native.digg":            NewDiggRewardsProvisioner,
	"native.uniDiggWbtc":     NewDiggLpMetaFarmProvisioner,
	"native.sushiDiggWbtc":   NewSushiDiggWbtcLpOptimizerProvisioner,
	"harvest.renCrv":         NewHarvestMetaFarmProvisioner,
	"native.sushiBadgerWbtc": NewSushiBadgerWbtcProvisioner,
	"native.sushiWbtcEth":    NewSushiLpOptimizerProvisioner,
	"native.uniBadgerWbtc":   NewBadgerLpMetaFarmProvisioner,
	"native.renCrv":          NewCurveGaugeProvisioner,
	"native.sbtcCrv":         NewCurveGaugeProvisioner,
	"native.tbtcCrv":         NewCurveGaugeProvisioner,
	"native.sushiSClawUSDC":  NewSushiClawUSDCProvisioner,
	"native.sushiBClawUSDC":  NewSushiClawUSDCProvisioner,
	"native.pancakeBnbBtcb":  NewPancakeBnbBtcbProvisioner,
	"native.bBadgerBtcb":     NewPancakeBBadgerBtcbProvisioner,
	"native.bDiggBtcb":       NewPancakeBDiggBtcbProvisioner,
	"native.sushiWbtcIbBtc":  NewWbtcIbBtcLpProvisioner(false),
	"native.uniWbtcIbBtc":    NewWbtcIbBtcLpProvisioner(true),
	"native.convexRenCrv":    NewConvexProvisioner,
	"native.convexSbtcCrv":   NewConvexProvisioner,
	"native.convexTbtcCrv":   NewConvexProvisioner,
	"native.hbtcCrv":         NewConvexProvisioner,
	"native.pbtcCrv":         NewConvexProvisioner,
	"native.obtcCrv":         NewConvexProvisioner,
	"native.bbtcCrv":         NewConvexProvisioner,
	"native.triCrypto":       NewConvexProvisioner,
	"helper.cvx":             NewHelperCvxProvisioner,
	"helper.cvxCrv":          NewHelperCvxCrvProvisioner,
	"native.imBtc":           NewStrategyMStableVaultProvisioner,
	"native.fPmBtcHBtc":      NewStrategyMStableVaultProvisioner,
}

// New returns the provisioner for the vault id. There is no default: an unknown id is
// an ErrNoProvisioner error.
func New(settID string, sim Simulation) (Provisioner, error) {
	newProvisioner, ok := provisioners[settID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvisioner, settID)
	}
	return newProvisioner(sim), nil
}

// SettIDs returns every vault id with a provisioner, sorted.
func SettIDs() []string {
	ids := make([]string, 0, len(provisioners))
	for id := range provisioners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

////////////////////////////////////////////////////////////////////////////////////////
// Single Token Vaults
////////////////////////////////////////////////////////////////////////////////////////

type BadgerRewardsProvisioner struct{ *BaseProvisioner }

func NewBadgerRewardsProvisioner(sim Simulation) Provisioner {
	return &BadgerRewardsProvisioner{NewBaseProvisioner(sim)}
}

// DiggRewardsProvisioner funds DIGG from the deployer.
type DiggRewardsProvisioner struct{ *BaseProvisioner }

func NewDiggRewardsProvisioner(sim Simulation) Provisioner {
	return &DiggRewardsProvisioner{NewBaseProvisioner(sim)}
}

type HarvestMetaFarmProvisioner struct{ *BaseProvisioner }

func NewHarvestMetaFarmProvisioner(sim Simulation) Provisioner {
	return &HarvestMetaFarmProvisioner{NewBaseProvisioner(sim)}
}

// CurveGaugeProvisioner covers the renCrv, sbtcCrv and tbtcCrv gauge vaults.
type CurveGaugeProvisioner struct{ *BaseProvisioner }

func NewCurveGaugeProvisioner(sim Simulation) Provisioner {
	return &CurveGaugeProvisioner{NewBaseProvisioner(sim)}
}

// ConvexProvisioner covers the Convex staked Curve LP vaults.
type ConvexProvisioner struct{ *BaseProvisioner }

func NewConvexProvisioner(sim Simulation) Provisioner {
	return &ConvexProvisioner{NewBaseProvisioner(sim)}
}

type HelperCvxProvisioner struct{ *BaseProvisioner }

func NewHelperCvxProvisioner(sim Simulation) Provisioner {
	return &HelperCvxProvisioner{NewBaseProvisioner(sim)}
}

type HelperCvxCrvProvisioner struct{ *BaseProvisioner }

func NewHelperCvxCrvProvisioner(sim Simulation) Provisioner {
	return &HelperCvxCrvProvisioner{NewBaseProvisioner(sim)}
}

// StrategyMStableVaultProvisioner hands out imBTC and the fPmBtcHBtc feeder pool token
// as plain tokens. They are the want, so there is nothing left to distribute after.
type StrategyMStableVaultProvisioner struct{ *BaseProvisioner }

func NewStrategyMStableVaultProvisioner(sim Simulation) Provisioner {
	return &StrategyMStableVaultProvisioner{NewBaseProvisioner(sim, "imbtc", "fPmBtcHBtc")}
}

func (p *StrategyMStableVaultProvisioner) DistributeWant(ctx context.Context, users []*Account) error {
	return nil
}

////////////////////////////////////////////////////////////////////////////////////////
// Liquidity Pair Vaults
////////////////////////////////////////////////////////////////////////////////////////

type DiggLpMetaFarmProvisioner struct{ *LPProvisioner }

func NewDiggLpMetaFarmProvisioner(sim Simulation) Provisioner {
	return &DiggLpMetaFarmProvisioner{NewLPProvisioner(sim, "uniswap", "digg", "wbtc")}
}

type SushiDiggWbtcLpOptimizerProvisioner struct{ *LPProvisioner }

func NewSushiDiggWbtcLpOptimizerProvisioner(sim Simulation) Provisioner {
	return &SushiDiggWbtcLpOptimizerProvisioner{NewLPProvisioner(sim, "sushiswap", "digg", "wbtc")}
}

type SushiBadgerWbtcProvisioner struct{ *LPProvisioner }

func NewSushiBadgerWbtcProvisioner(sim Simulation) Provisioner {
	return &SushiBadgerWbtcProvisioner{NewLPProvisioner(sim, "sushiswap", "badger", "wbtc")}
}

type SushiLpOptimizerProvisioner struct{ *LPProvisioner }

func NewSushiLpOptimizerProvisioner(sim Simulation) Provisioner {
	return &SushiLpOptimizerProvisioner{NewLPProvisioner(sim, "sushiswap", "wbtc", "weth")}
}

type BadgerLpMetaFarmProvisioner struct{ *LPProvisioner }

func NewBadgerLpMetaFarmProvisioner(sim Simulation) Provisioner {
	return &BadgerLpMetaFarmProvisioner{NewLPProvisioner(sim, "uniswap", "badger", "wbtc")}
}

// SushiClawUSDCProvisioner serves both CLAW vaults. Users get both CLAW tokens and
// the pair decides which one is used.
type SushiClawUSDCProvisioner struct{ *LPProvisioner }

func NewSushiClawUSDCProvisioner(sim Simulation) Provisioner {
	return &SushiClawUSDCProvisioner{NewLPProvisioner(sim, "sushiswap", "sClaw", "bClaw", "usdc")}
}

type PancakeBnbBtcbProvisioner struct{ *LPProvisioner }

func NewPancakeBnbBtcbProvisioner(sim Simulation) Provisioner {
	return &PancakeBnbBtcbProvisioner{NewLPProvisioner(sim, "pancakeswap", "wbnb", "btcb")}
}

type PancakeBBadgerBtcbProvisioner struct{ *LPProvisioner }

func NewPancakeBBadgerBtcbProvisioner(sim Simulation) Provisioner {
	return &PancakeBBadgerBtcbProvisioner{NewLPProvisioner(sim, "pancakeswap", "bBadger", "btcb")}
}

type PancakeBDiggBtcbProvisioner struct{ *LPProvisioner }

func NewPancakeBDiggBtcbProvisioner(sim Simulation) Provisioner {
	return &PancakeBDiggBtcbProvisioner{NewLPProvisioner(sim, "pancakeswap", "bDigg", "btcb")}
}

// WbtcIbBtcLpProvisioner adds WBTC/ibBTC liquidity on Sushiswap, or Uniswap for the
// Uniswap vault.
type WbtcIbBtcLpProvisioner struct{ *LPProvisioner }

func NewWbtcIbBtcLpProvisioner(uniswap bool) constructor {
	router := "sushiswap"
	if uniswap {
		router = "uniswap"
	}
	return func(sim Simulation) Provisioner {
		return &WbtcIbBtcLpProvisioner{NewLPProvisioner(sim, router, "wbtc", "ibbtc")}
	}
}
