package types

import (
	"context"
	"errors"
	"math/big"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/common/registry"
)

// ErrNoDigg is returned by System.Digg when the deployment has no DIGG system.
var ErrNoDigg = errors.New("no digg system deployed")

////////////////////////////////////////////////////////////////////////////////////////
// Chain
////////////////////////////////////////////////////////////////////////////////////////

// Chain is the local test network. Every state-changing call blocks until the
// transaction is mined and returns an error if it reverted.
type Chain interface {
	// Accounts returns the unlocked accounts of the test network, in node order.
	Accounts(ctx context.Context) ([]ecommon.Address, error)

	// CodeAt returns the contract code at the address, empty for externally owned
	// accounts.
	CodeAt(ctx context.Context, address ecommon.Address) ([]byte, error)

	// Impersonate unlocks an arbitrary address so transactions can be sent from it.
	Impersonate(ctx context.Context, address ecommon.Address) error

	// Sleep advances the chain timestamp.
	Sleep(ctx context.Context, d time.Duration) error

	// Mine produces the given number of blocks.
	Mine(ctx context.Context, blocks uint64) error

	// BlockNumber returns the latest block height.
	BlockNumber(ctx context.Context) (uint64, error)

	// Token returns an ERC20 handle for the address.
	Token(address ecommon.Address) Token
}

////////////////////////////////////////////////////////////////////////////////////////
// Contracts
////////////////////////////////////////////////////////////////////////////////////////

// Token is an ERC20 token.
type Token interface {
	Address() ecommon.Address
	Symbol(ctx context.Context) (string, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, holder ecommon.Address) (*big.Int, error)
	Transfer(ctx context.Context, from, to ecommon.Address, amount *big.Int) error
	Approve(ctx context.Context, from, spender ecommon.Address, amount *big.Int) error
}

// Sett is a yield vault. Its shares are an ERC20 token.
type Sett interface {
	Token

	Keeper(ctx context.Context) (ecommon.Address, error)
	Governance(ctx context.Context) (ecommon.Address, error)

	// Want returns the underlying token address (token() on the contract).
	Want(ctx context.Context) (ecommon.Address, error)

	// GuestList returns the allow-list contract, the zero address when ungated.
	GuestList(ctx context.Context) (ecommon.Address, error)

	// PricePerFullShare is fixed point at 18 decimals.
	PricePerFullShare(ctx context.Context) (*big.Int, error)

	Deposit(ctx context.Context, from ecommon.Address, amount *big.Int) error
	Withdraw(ctx context.Context, from ecommon.Address, shares *big.Int) error
	Earn(ctx context.Context, from ecommon.Address) error
}

// Strategy implements the yield logic of a Sett.
type Strategy interface {
	Address() ecommon.Address

	Keeper(ctx context.Context) (ecommon.Address, error)
	Governance(ctx context.Context) (ecommon.Address, error)
	Want(ctx context.Context) (ecommon.Address, error)

	// BalanceOf returns the total want managed by the strategy.
	BalanceOf(ctx context.Context) (*big.Int, error)

	IsTendable(ctx context.Context) (bool, error)
	Harvest(ctx context.Context, from ecommon.Address) error
	Tend(ctx context.Context, from ecommon.Address) error
}

// GuestList restricts which accounts may deposit into a Sett.
type GuestList interface {
	Address() ecommon.Address
	Owner(ctx context.Context) (ecommon.Address, error)
	SetGuests(ctx context.Context, from ecommon.Address, guests []ecommon.Address, invited []bool) error
}

// Pair is a Uniswap V2 style liquidity pair.
type Pair interface {
	Token
	Token0(ctx context.Context) (ecommon.Address, error)
	Token1(ctx context.Context) (ecommon.Address, error)
}

// Router is a Uniswap V2 style swap router.
type Router interface {
	Address() ecommon.Address
	AddLiquidity(ctx context.Context, from, tokenA, tokenB ecommon.Address, amountA, amountB *big.Int) error
}

// Digg is the rebasing DIGG token together with its rebase machinery.
type Digg interface {
	Token

	// SharesToFragments converts internal share units to token fragments.
	SharesToFragments(ctx context.Context, shares *big.Int) (*big.Int, error)

	// PushReport submits a market oracle report, fixed point at 18 decimals.
	PushReport(ctx context.Context, from ecommon.Address, value *big.Int) error

	// Rebase triggers the orchestrator rebase.
	Rebase(ctx context.Context, from ecommon.Address) error
}

////////////////////////////////////////////////////////////////////////////////////////
// System
////////////////////////////////////////////////////////////////////////////////////////

// System is a deployed Sett system on a test network.
type System interface {
	Chain() Chain
	Network() common.Network
	Registry() *registry.Registry
	Deployer() ecommon.Address

	Sett(id string) (Sett, error)
	Strategy(id string) (Strategy, error)
	StrategyWant(ctx context.Context, id string) (Token, error)

	GuestList(address ecommon.Address) GuestList
	Pair(address ecommon.Address) Pair
	Router(name string) (Router, error)

	// Digg returns the DIGG system, or an error when none is deployed.
	Digg() (Digg, error)
}
