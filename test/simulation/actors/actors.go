package actors

import (
	"context"
	"fmt"

	ecommon "github.com/ethereum/go-ethereum/common"

	"gitlab.com/badgerdao/settsim/constants"
	. "gitlab.com/badgerdao/settsim/test/simulation/actors/common"
	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////////////
// UserActor
////////////////////////////////////////////////////////////////////////////////////////

// UserActor cycles one funded account through deposits and withdrawals. It tracks
// whether the account holds shares so it never proposes a withdrawal without them.
type UserActor struct {
	sim  Simulation
	user *Account

	hasShares bool
	hasWant   bool
}

var _ Actor = &UserActor{}

// NewUserActor returns an actor for a user that was just provisioned with want.
func NewUserActor(sim Simulation, user *Account) *UserActor {
	return &UserActor{sim: sim, user: user, hasWant: true}
}

func (a *UserActor) Name() string {
	return a.user.Name()
}

func (a *UserActor) User() *Account {
	return a.user
}

func (a *UserActor) GenerateAction(ctx context.Context) (Action, error) {
	rng := a.sim.Rand()

	deposit := !a.hasShares
	if a.hasShares && a.hasWant {
		deposit = rng.Intn(2) == 0
	}
	bps := DrawBasisPoints(rng)

	if deposit {
		a.hasShares = true
		if bps == constants.MaxBasisPoints {
			a.hasWant = false
		}
		return NewDepositAction(a.sim, a.user, bps), nil
	}

	a.hasWant = true
	if bps == constants.MaxBasisPoints {
		a.hasShares = false
	}
	return NewWithdrawAction(a.sim, a.user, bps), nil
}

////////////////////////////////////////////////////////////////////////////////////////
// SettKeeperActor
////////////////////////////////////////////////////////////////////////////////////////

// SettKeeperActor is the vault keeper. It only ever earns.
type SettKeeperActor struct {
	sim    Simulation
	keeper ecommon.Address
}

var _ Actor = &SettKeeperActor{}

func NewSettKeeperActor(sim Simulation, keeper ecommon.Address) *SettKeeperActor {
	return &SettKeeperActor{sim: sim, keeper: keeper}
}

func (a *SettKeeperActor) Name() string { return "settKeeper" }

func (a *SettKeeperActor) GenerateAction(ctx context.Context) (Action, error) {
	return NewEarnAction(a.sim, a.keeper), nil
}

////////////////////////////////////////////////////////////////////////////////////////
// StrategyKeeperActor
////////////////////////////////////////////////////////////////////////////////////////

// StrategyKeeperActor harvests, or tends when the strategy supports it.
type StrategyKeeperActor struct {
	sim    Simulation
	keeper ecommon.Address
}

var _ Actor = &StrategyKeeperActor{}

func NewStrategyKeeperActor(sim Simulation, keeper ecommon.Address) *StrategyKeeperActor {
	return &StrategyKeeperActor{sim: sim, keeper: keeper}
}

func (a *StrategyKeeperActor) Name() string { return "strategyKeeper" }

func (a *StrategyKeeperActor) GenerateAction(ctx context.Context) (Action, error) {
	tendable, err := a.sim.Strategy().IsTendable(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to check if strategy is tendable: %w", err)
	}
	if tendable && a.sim.Rand().Intn(2) == 0 {
		return NewTendAction(a.sim, a.keeper), nil
	}
	return NewHarvestAction(a.sim, a.keeper), nil
}

////////////////////////////////////////////////////////////////////////////////////////
// ChainActor
////////////////////////////////////////////////////////////////////////////////////////

// ChainActor skips chain time forward.
type ChainActor struct {
	sim Simulation
}

var _ Actor = &ChainActor{}

func NewChainActor(sim Simulation) *ChainActor {
	return &ChainActor{sim: sim}
}

func (a *ChainActor) Name() string { return "chain" }

func (a *ChainActor) GenerateAction(ctx context.Context) (Action, error) {
	delta := DrawDuration(a.sim.Rand(), constants.MinChainSkip, constants.MaxChainSkip)
	return NewChainSleepAction(a.sim, delta), nil
}

////////////////////////////////////////////////////////////////////////////////////////
// DiggActor
////////////////////////////////////////////////////////////////////////////////////////

// DiggActor rebases DIGG from the deployer, which owns the market oracle.
type DiggActor struct {
	sim      Simulation
	snap     RebaseSnapshotManager
	deployer ecommon.Address
}

var _ Actor = &DiggActor{}

func NewDiggActor(sim Simulation, snap RebaseSnapshotManager, deployer ecommon.Address) *DiggActor {
	return &DiggActor{sim: sim, snap: snap, deployer: deployer}
}

func (a *DiggActor) Name() string { return "digg" }

func (a *DiggActor) GenerateAction(ctx context.Context) (Action, error) {
	report := DrawReport(a.sim.Rand(), constants.RebaseReportSpreadBasisPoints)
	return NewRebaseAction(a.sim, a.snap, a.deployer, report), nil
}
