package snapshot

import (
	"context"
	"fmt"
	"math/big"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////////////
// Snapshot
////////////////////////////////////////////////////////////////////////////////////////

// Snapshot holds the balances relevant to one vault operation.
type Snapshot struct {
	UserWant   *big.Int
	UserShares *big.Int
	SettWant   *big.Int
	Strategy   *big.Int
	PPFS       *big.Int
}

////////////////////////////////////////////////////////////////////////////////////////
// Manager
////////////////////////////////////////////////////////////////////////////////////////

// Manager runs vault operations and checks the balances before and after each one.
type Manager struct {
	sett     types.Sett
	strategy types.Strategy
	want     types.Token
	log      zerolog.Logger
}

var _ types.SnapshotManager = &Manager{}

func New(sett types.Sett, strategy types.Strategy, want types.Token, log zerolog.Logger) *Manager {
	return &Manager{
		sett:     sett,
		strategy: strategy,
		want:     want,
		log:      log.With().Str("module", "snapshot").Logger(),
	}
}

// Snap reads the balances of user. A zero user skips the user balances.
func (m *Manager) Snap(ctx context.Context, user ecommon.Address) (*Snapshot, error) {
	var err error
	s := &Snapshot{UserWant: new(big.Int), UserShares: new(big.Int)}

	if user != (ecommon.Address{}) {
		if s.UserWant, err = m.want.BalanceOf(ctx, user); err != nil {
			return nil, fmt.Errorf("fail to get user want balance: %w", err)
		}
		if s.UserShares, err = m.sett.BalanceOf(ctx, user); err != nil {
			return nil, fmt.Errorf("fail to get user share balance: %w", err)
		}
	}
	if s.SettWant, err = m.want.BalanceOf(ctx, m.sett.Address()); err != nil {
		return nil, fmt.Errorf("fail to get vault want balance: %w", err)
	}
	if s.Strategy, err = m.strategy.BalanceOf(ctx); err != nil {
		return nil, fmt.Errorf("fail to get strategy balance: %w", err)
	}
	if s.PPFS, err = m.sett.PricePerFullShare(ctx); err != nil {
		return nil, fmt.Errorf("fail to get price per full share: %w", err)
	}
	return s, nil
}

func (m *Manager) SettDeposit(ctx context.Context, user ecommon.Address, amount *big.Int) error {
	before, err := m.Snap(ctx, user)
	if err != nil {
		return err
	}
	if err = m.sett.Deposit(ctx, user, amount); err != nil {
		return fmt.Errorf("deposit failed: %w", err)
	}
	after, err := m.Snap(ctx, user)
	if err != nil {
		return err
	}

	var errs error
	if diff := sub(before.UserWant, after.UserWant); diff.Cmp(amount) != 0 {
		errs = multierror.Append(errs, fmt.Errorf("user want decreased by %s, expected %s", diff, amount))
	}
	if diff := sub(after.SettWant, before.SettWant); diff.Cmp(amount) != 0 {
		errs = multierror.Append(errs, fmt.Errorf("vault want increased by %s, expected %s", diff, amount))
	}
	if after.UserShares.Cmp(before.UserShares) <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("user shares did not increase: %s -> %s", before.UserShares, after.UserShares))
	}
	return m.check("deposit", errs)
}

func (m *Manager) SettWithdraw(ctx context.Context, user ecommon.Address, shares *big.Int) error {
	before, err := m.Snap(ctx, user)
	if err != nil {
		return err
	}
	if err = m.sett.Withdraw(ctx, user, shares); err != nil {
		return fmt.Errorf("withdraw failed: %w", err)
	}
	after, err := m.Snap(ctx, user)
	if err != nil {
		return err
	}

	var errs error
	if diff := sub(before.UserShares, after.UserShares); diff.Cmp(shares) != 0 {
		errs = multierror.Append(errs, fmt.Errorf("user shares decreased by %s, expected %s", diff, shares))
	}
	if after.UserWant.Cmp(before.UserWant) < 0 {
		errs = multierror.Append(errs, fmt.Errorf("user want decreased on withdraw: %s -> %s", before.UserWant, after.UserWant))
	}
	return m.check("withdraw", errs)
}

func (m *Manager) SettEarn(ctx context.Context, from ecommon.Address) error {
	before, err := m.Snap(ctx, ecommon.Address{})
	if err != nil {
		return err
	}
	if err = m.sett.Earn(ctx, from); err != nil {
		return fmt.Errorf("earn failed: %w", err)
	}
	after, err := m.Snap(ctx, ecommon.Address{})
	if err != nil {
		return err
	}

	var errs error
	if after.Strategy.Cmp(before.Strategy) < 0 {
		errs = multierror.Append(errs, fmt.Errorf("strategy balance decreased on earn: %s -> %s", before.Strategy, after.Strategy))
	}
	if after.SettWant.Cmp(before.SettWant) > 0 {
		errs = multierror.Append(errs, fmt.Errorf("vault want increased on earn: %s -> %s", before.SettWant, after.SettWant))
	}
	return m.check("earn", errs)
}

func (m *Manager) SettHarvest(ctx context.Context, from ecommon.Address) error {
	return m.keeperOp(ctx, "harvest", func() error { return m.strategy.Harvest(ctx, from) })
}

func (m *Manager) SettTend(ctx context.Context, from ecommon.Address) error {
	return m.keeperOp(ctx, "tend", func() error { return m.strategy.Tend(ctx, from) })
}

// keeperOp runs a strategy operation that must not lower the share price.
func (m *Manager) keeperOp(ctx context.Context, name string, op func() error) error {
	before, err := m.Snap(ctx, ecommon.Address{})
	if err != nil {
		return err
	}
	if err = op(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	after, err := m.Snap(ctx, ecommon.Address{})
	if err != nil {
		return err
	}

	var errs error
	if after.PPFS.Cmp(before.PPFS) < 0 {
		errs = multierror.Append(errs, fmt.Errorf("price per full share decreased on %s: %s -> %s", name, before.PPFS, after.PPFS))
	}
	m.log.Debug().
		Str("op", name).
		Stringer("ppfs_before", before.PPFS).
		Stringer("ppfs_after", after.PPFS).
		Msg("strategy snapshot")
	return m.check(name, errs)
}

func (m *Manager) check(name string, errs error) error {
	if errs != nil {
		return fmt.Errorf("%s snapshot check failed: %w", name, errs)
	}
	return nil
}

func sub(a, b *big.Int) *big.Int {
	return new(big.Int).Sub(a, b)
}

////////////////////////////////////////////////////////////////////////////////////////
// DiggManager
////////////////////////////////////////////////////////////////////////////////////////

// DiggManager is a Manager for vaults exposed to DIGG rebases.
type DiggManager struct {
	*Manager
	digg types.Digg
}

var _ types.RebaseSnapshotManager = &DiggManager{}

func NewDigg(sett types.Sett, strategy types.Strategy, want types.Token, digg types.Digg, log zerolog.Logger) *DiggManager {
	return &DiggManager{
		Manager: New(sett, strategy, want, log),
		digg:    digg,
	}
}

func (m *DiggManager) Rebase(ctx context.Context, from ecommon.Address, value *big.Int) error {
	before, err := m.digg.TotalSupply(ctx)
	if err != nil {
		return fmt.Errorf("fail to get digg supply: %w", err)
	}
	if err = m.digg.PushReport(ctx, from, value); err != nil {
		return fmt.Errorf("push report failed: %w", err)
	}
	if err = m.digg.Rebase(ctx, from); err != nil {
		return fmt.Errorf("rebase failed: %w", err)
	}
	after, err := m.digg.TotalSupply(ctx)
	if err != nil {
		return fmt.Errorf("fail to get digg supply: %w", err)
	}
	if after.Sign() == 0 {
		return fmt.Errorf("digg supply is zero after rebase")
	}

	m.log.Info().
		Stringer("report", value).
		Stringer("supply_before", before).
		Stringer("supply_after", after).
		Msg("rebased")
	return nil
}
