package actors

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"

	. "gitlab.com/badgerdao/settsim/test/simulation/actors/common"
	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////////////
// User Actions
////////////////////////////////////////////////////////////////////////////////////////

// DepositAction deposits a fraction of the user want balance into the vault.
type DepositAction struct {
	Once

	sim  Simulation
	user *Account
	bps  int64
}

var _ Action = &DepositAction{}

func NewDepositAction(sim Simulation, user *Account, bps int64) *DepositAction {
	return &DepositAction{sim: sim, user: user, bps: bps}
}

func (a *DepositAction) Name() string { return "deposit" }

func (a *DepositAction) String() string {
	return fmt.Sprintf("deposit(%s, %dbps)", a.user.Name(), a.bps)
}

func (a *DepositAction) Run(ctx context.Context) error {
	if err := a.Claim(a); err != nil {
		return err
	}

	balance, err := a.sim.Want().BalanceOf(ctx, a.user.Address)
	if err != nil {
		return fmt.Errorf("fail to get want balance: %w", err)
	}
	log := a.sim.Log().With().Str("action", a.String()).Str("user", a.user.Name()).Logger()
	if balance.Sign() == 0 {
		log.Warn().Msg("no want to deposit, skipping")
		return nil
	}
	amount := ScaleBasisPoints(balance, a.bps)

	// approve the vault for exactly the amount
	sett := a.sim.Sett()
	if err = a.sim.Want().Approve(ctx, a.user.Address, sett.Address(), amount); err != nil {
		return fmt.Errorf("fail to approve vault: %w", err)
	}
	if err = a.sim.Snapshot().SettDeposit(ctx, a.user.Address, amount); err != nil {
		return err
	}

	log.Info().Stringer("amount", amount).Msg("deposited")
	return nil
}

// WithdrawAction withdraws a fraction of the user shares from the vault.
type WithdrawAction struct {
	Once

	sim  Simulation
	user *Account
	bps  int64
}

var _ Action = &WithdrawAction{}

func NewWithdrawAction(sim Simulation, user *Account, bps int64) *WithdrawAction {
	return &WithdrawAction{sim: sim, user: user, bps: bps}
}

func (a *WithdrawAction) Name() string { return "withdraw" }

func (a *WithdrawAction) String() string {
	return fmt.Sprintf("withdraw(%s, %dbps)", a.user.Name(), a.bps)
}

func (a *WithdrawAction) Run(ctx context.Context) error {
	if err := a.Claim(a); err != nil {
		return err
	}

	shares, err := a.sim.Sett().BalanceOf(ctx, a.user.Address)
	if err != nil {
		return fmt.Errorf("fail to get share balance: %w", err)
	}
	log := a.sim.Log().With().Str("action", a.String()).Str("user", a.user.Name()).Logger()
	if shares.Sign() == 0 {
		log.Warn().Msg("no shares to withdraw, skipping")
		return nil
	}
	amount := ScaleBasisPoints(shares, a.bps)

	if err = a.sim.Snapshot().SettWithdraw(ctx, a.user.Address, amount); err != nil {
		return err
	}

	log.Info().Stringer("shares", amount).Msg("withdrew")
	return nil
}

////////////////////////////////////////////////////////////////////////////////////////
// Keeper Actions
////////////////////////////////////////////////////////////////////////////////////////

// keeperAction is a parameterless operation sent by a keeper.
type keeperAction struct {
	Once

	sim    Simulation
	name   string
	keeper ecommon.Address
	op     func(snap SnapshotManager, ctx context.Context, from ecommon.Address) error
}

func (a *keeperAction) Name() string { return a.name }

func (a *keeperAction) String() string {
	return fmt.Sprintf("%s(%s)", a.name, a.keeper.Hex())
}

func (a *keeperAction) Run(ctx context.Context) error {
	if err := a.Claim(a); err != nil {
		return err
	}
	if err := a.op(a.sim.Snapshot(), ctx, a.keeper); err != nil {
		return err
	}
	log := a.sim.Log()
	log.Info().Str("action", a.String()).Msg("keeper action complete")
	return nil
}

// NewEarnAction moves idle vault funds into the strategy.
func NewEarnAction(sim Simulation, keeper ecommon.Address) Action {
	return &keeperAction{sim: sim, name: "earn", keeper: keeper, op: SnapshotManager.SettEarn}
}

// NewHarvestAction realizes strategy yield.
func NewHarvestAction(sim Simulation, keeper ecommon.Address) Action {
	return &keeperAction{sim: sim, name: "harvest", keeper: keeper, op: SnapshotManager.SettHarvest}
}

// NewTendAction reinvests strategy rewards without realizing them.
func NewTendAction(sim Simulation, keeper ecommon.Address) Action {
	return &keeperAction{sim: sim, name: "tend", keeper: keeper, op: SnapshotManager.SettTend}
}

////////////////////////////////////////////////////////////////////////////////////////
// Chain Actions
////////////////////////////////////////////////////////////////////////////////////////

// ChainSleepAction advances chain time and mines a block.
type ChainSleepAction struct {
	Once

	sim   Simulation
	delta time.Duration
}

var _ Action = &ChainSleepAction{}

func NewChainSleepAction(sim Simulation, delta time.Duration) *ChainSleepAction {
	return &ChainSleepAction{sim: sim, delta: delta}
}

func (a *ChainSleepAction) Name() string { return "sleep" }

func (a *ChainSleepAction) String() string {
	return fmt.Sprintf("sleep(%ds)", int64(a.delta/time.Second))
}

func (a *ChainSleepAction) Run(ctx context.Context) error {
	if err := a.Claim(a); err != nil {
		return err
	}
	chain := a.sim.System().Chain()
	if err := chain.Sleep(ctx, a.delta); err != nil {
		return err
	}
	if err := chain.Mine(ctx, 1); err != nil {
		return err
	}
	log := a.sim.Log()
	log.Info().Str("action", a.String()).Msg("advanced chain")
	return nil
}

////////////////////////////////////////////////////////////////////////////////////////
// Digg Actions
////////////////////////////////////////////////////////////////////////////////////////

// RebaseAction pushes an oracle report and rebases DIGG.
type RebaseAction struct {
	Once

	sim    Simulation
	snap   RebaseSnapshotManager
	from   ecommon.Address
	report *big.Int
}

var _ Action = &RebaseAction{}

func NewRebaseAction(sim Simulation, snap RebaseSnapshotManager, from ecommon.Address, report *big.Int) *RebaseAction {
	return &RebaseAction{sim: sim, snap: snap, from: from, report: report}
}

func (a *RebaseAction) Name() string { return "rebase" }

func (a *RebaseAction) String() string {
	return fmt.Sprintf("rebase(%s)", a.report)
}

func (a *RebaseAction) Run(ctx context.Context) error {
	if err := a.Claim(a); err != nil {
		return err
	}
	if err := a.snap.Rebase(ctx, a.from, a.report); err != nil {
		return err
	}
	log := a.sim.Log()
	log.Info().Str("action", a.String()).Msg("rebased")
	return nil
}
