package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ecommon "github.com/ethereum/go-ethereum/common"

	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////////////
// Contract
////////////////////////////////////////////////////////////////////////////////////////

type contract struct {
	client  *Client
	address ecommon.Address
	abi     abi.ABI
}

func (c *Client) contract(address ecommon.Address, contractABI abi.ABI) contract {
	return contract{client: c, address: address, abi: contractABI}
}

func (c contract) Address() ecommon.Address {
	return c.address
}

func (c contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	return c.client.call(ctx, c.address, c.abi, method, args...)
}

func (c contract) send(ctx context.Context, from ecommon.Address, method string, args ...interface{}) error {
	return c.client.send(ctx, from, c.address, c.abi, method, args...)
}

func (c contract) callAddress(ctx context.Context, method string, args ...interface{}) (ecommon.Address, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return ecommon.Address{}, err
	}
	if len(out) != 1 {
		return ecommon.Address{}, fmt.Errorf("%s returned %d values", method, len(out))
	}
	addr, ok := out[0].(ecommon.Address)
	if !ok {
		return ecommon.Address{}, fmt.Errorf("%s returned %T, not an address", method, out[0])
	}
	return addr, nil
}

func (c contract) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(out))
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s returned %T, not an integer", method, out[0])
	}
	return value, nil
}

func (c contract) callBool(ctx context.Context, method string) (bool, error) {
	out, err := c.call(ctx, method)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("%s returned %d values", method, len(out))
	}
	value, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s returned %T, not a bool", method, out[0])
	}
	return value, nil
}

////////////////////////////////////////////////////////////////////////////////////////
// ERC20
////////////////////////////////////////////////////////////////////////////////////////

type erc20 struct {
	contract
}

var _ Token = &erc20{}

func (t *erc20) Symbol(ctx context.Context) (string, error) {
	out, err := t.client.call(ctx, t.address, erc20ABI, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("symbol returned %T, not a string", out[0])
	}
	return symbol, nil
}

func (t *erc20) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.erc20().callBig(ctx, "totalSupply")
}

func (t *erc20) BalanceOf(ctx context.Context, holder ecommon.Address) (*big.Int, error) {
	return t.erc20().callBig(ctx, "balanceOf", holder)
}

func (t *erc20) Transfer(ctx context.Context, from, to ecommon.Address, amount *big.Int) error {
	return t.erc20().send(ctx, from, "transfer", to, amount)
}

func (t *erc20) Approve(ctx context.Context, from, spender ecommon.Address, amount *big.Int) error {
	return t.erc20().send(ctx, from, "approve", spender, amount)
}

// erc20 views the contract through the ERC20 ABI, so embedding types with their own
// ABI still reach the token methods.
func (t *erc20) erc20() contract {
	return t.client.contract(t.address, erc20ABI)
}

////////////////////////////////////////////////////////////////////////////////////////
// Sett
////////////////////////////////////////////////////////////////////////////////////////

type sett struct {
	erc20
}

var _ Sett = &sett{}

func (c *Client) Sett(address ecommon.Address) Sett {
	return &sett{erc20{c.contract(address, settABI)}}
}

func (s *sett) Keeper(ctx context.Context) (ecommon.Address, error) {
	return s.callAddress(ctx, "keeper")
}

func (s *sett) Governance(ctx context.Context) (ecommon.Address, error) {
	return s.callAddress(ctx, "governance")
}

func (s *sett) Want(ctx context.Context) (ecommon.Address, error) {
	return s.callAddress(ctx, "token")
}

func (s *sett) GuestList(ctx context.Context) (ecommon.Address, error) {
	return s.callAddress(ctx, "guestList")
}

func (s *sett) PricePerFullShare(ctx context.Context) (*big.Int, error) {
	return s.callBig(ctx, "getPricePerFullShare")
}

func (s *sett) Deposit(ctx context.Context, from ecommon.Address, amount *big.Int) error {
	return s.send(ctx, from, "deposit", amount)
}

func (s *sett) Withdraw(ctx context.Context, from ecommon.Address, shares *big.Int) error {
	return s.send(ctx, from, "withdraw", shares)
}

func (s *sett) Earn(ctx context.Context, from ecommon.Address) error {
	return s.send(ctx, from, "earn")
}

////////////////////////////////////////////////////////////////////////////////////////
// Strategy
////////////////////////////////////////////////////////////////////////////////////////

type strategy struct {
	contract
}

var _ Strategy = &strategy{}

func (c *Client) Strategy(address ecommon.Address) Strategy {
	return &strategy{c.contract(address, strategyABI)}
}

func (s *strategy) Keeper(ctx context.Context) (ecommon.Address, error) {
	return s.callAddress(ctx, "keeper")
}

func (s *strategy) Governance(ctx context.Context) (ecommon.Address, error) {
	return s.callAddress(ctx, "governance")
}

func (s *strategy) Want(ctx context.Context) (ecommon.Address, error) {
	return s.callAddress(ctx, "want")
}

func (s *strategy) BalanceOf(ctx context.Context) (*big.Int, error) {
	return s.callBig(ctx, "balanceOf")
}

func (s *strategy) IsTendable(ctx context.Context) (bool, error) {
	return s.callBool(ctx, "isTendable")
}

func (s *strategy) Harvest(ctx context.Context, from ecommon.Address) error {
	return s.send(ctx, from, "harvest")
}

func (s *strategy) Tend(ctx context.Context, from ecommon.Address) error {
	return s.send(ctx, from, "tend")
}

////////////////////////////////////////////////////////////////////////////////////////
// GuestList
////////////////////////////////////////////////////////////////////////////////////////

type guestList struct {
	contract
}

var _ GuestList = &guestList{}

func (c *Client) GuestList(address ecommon.Address) GuestList {
	return &guestList{c.contract(address, guestListABI)}
}

func (g *guestList) Owner(ctx context.Context) (ecommon.Address, error) {
	return g.callAddress(ctx, "owner")
}

func (g *guestList) SetGuests(ctx context.Context, from ecommon.Address, guests []ecommon.Address, invited []bool) error {
	if len(guests) != len(invited) {
		return fmt.Errorf("setGuests: %d guests but %d flags", len(guests), len(invited))
	}
	return g.send(ctx, from, "setGuests", guests, invited)
}

////////////////////////////////////////////////////////////////////////////////////////
// Uniswap
////////////////////////////////////////////////////////////////////////////////////////

// LiquidityDeadline is added to the wall clock for addLiquidity deadlines. Test chains
// drift ahead of real time as actors skip forward, so it is generous.
const LiquidityDeadline = 365 * 24 * time.Hour

type pair struct {
	erc20
}

var _ Pair = &pair{}

func (c *Client) Pair(address ecommon.Address) Pair {
	return &pair{erc20{c.contract(address, pairABI)}}
}

func (p *pair) Token0(ctx context.Context) (ecommon.Address, error) {
	return p.callAddress(ctx, "token0")
}

func (p *pair) Token1(ctx context.Context) (ecommon.Address, error) {
	return p.callAddress(ctx, "token1")
}

type router struct {
	contract
}

var _ Router = &router{}

func (c *Client) Router(address ecommon.Address) Router {
	return &router{c.contract(address, routerABI)}
}

func (r *router) AddLiquidity(ctx context.Context, from, tokenA, tokenB ecommon.Address, amountA, amountB *big.Int) error {
	deadline := big.NewInt(time.Now().Add(LiquidityDeadline).Unix())
	return r.send(ctx, from, "addLiquidity",
		tokenA, tokenB,
		amountA, amountB,
		big.NewInt(0), big.NewInt(0),
		from, deadline,
	)
}

////////////////////////////////////////////////////////////////////////////////////////
// Digg
////////////////////////////////////////////////////////////////////////////////////////

type digg struct {
	erc20
	oracle       contract
	orchestrator contract
}

var _ Digg = &digg{}

// Digg returns the DIGG token together with its market oracle and orchestrator.
func (c *Client) Digg(token, oracle, orchestrator ecommon.Address) Digg {
	return &digg{
		erc20:        erc20{c.contract(token, diggABI)},
		oracle:       c.contract(oracle, diggABI),
		orchestrator: c.contract(orchestrator, diggABI),
	}
}

func (d *digg) SharesToFragments(ctx context.Context, shares *big.Int) (*big.Int, error) {
	return d.callBig(ctx, "sharesToFragments", shares)
}

func (d *digg) PushReport(ctx context.Context, from ecommon.Address, value *big.Int) error {
	return d.oracle.send(ctx, from, "pushReport", value)
}

func (d *digg) Rebase(ctx context.Context, from ecommon.Address) error {
	return d.orchestrator.send(ctx, from, "rebase")
}
