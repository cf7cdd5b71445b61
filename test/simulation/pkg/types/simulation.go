package types

import (
	"context"
	"math/big"
	"math/rand"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

////////////////////////////////////////////////////////////////////////////////////////
// Simulation
////////////////////////////////////////////////////////////////////////////////////////

// Simulation is the state shared by the actors and provisioners of one run.
type Simulation interface {
	// SettID is the identifier of the vault under test, e.g. "native.badger".
	SettID() string

	System() System
	Sett() Sett
	Strategy() Strategy
	Want() Token
	Snapshot() SnapshotManager

	// Rand is the single random source of the run. It must only be used from the
	// goroutine driving the simulation.
	Rand() *rand.Rand

	Log() zerolog.Logger
}

////////////////////////////////////////////////////////////////////////////////////////
// Snapshots
////////////////////////////////////////////////////////////////////////////////////////

// SnapshotManager performs vault operations and verifies the balance changes they
// cause.
type SnapshotManager interface {
	SettDeposit(ctx context.Context, user ecommon.Address, amount *big.Int) error
	SettWithdraw(ctx context.Context, user ecommon.Address, shares *big.Int) error
	SettEarn(ctx context.Context, from ecommon.Address) error
	SettHarvest(ctx context.Context, from ecommon.Address) error
	SettTend(ctx context.Context, from ecommon.Address) error
}

// RebaseSnapshotManager is a SnapshotManager for systems with a rebasing token.
type RebaseSnapshotManager interface {
	SnapshotManager

	// Rebase pushes an oracle report of value from the given account and rebases.
	Rebase(ctx context.Context, from ecommon.Address, value *big.Int) error
}
