package mock

import (
	"context"
	"fmt"
	"math/big"

	ecommon "github.com/ethereum/go-ethereum/common"

	"gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////////////
// Sett
////////////////////////////////////////////////////////////////////////////////////////

type SettConfig struct {
	Want       ecommon.Address
	Keeper     ecommon.Address
	Governance ecommon.Address
	GuestList  ecommon.Address
}

type settState struct {
	SettConfig
	strategy ecommon.Address
}

// Sett is a vault whose shares are priced against the want held by the vault and its
// strategy.
type Sett struct {
	Token
}

var _ types.Sett = &Sett{}

func (l *Ledger) NewSett(symbol string, cfg SettConfig) *Sett {
	l.mu.Lock()
	defer l.mu.Unlock()
	token := l.newToken(symbol)
	l.setts[token.address] = &settState{SettConfig: cfg}
	return &Sett{Token: *token}
}

// SetStrategy connects the vault to its strategy.
func (s *Sett) SetStrategy(strategy *Strategy) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	s.state().strategy = strategy.address
}

func (s *Sett) state() *settState {
	return s.ledger.setts[s.address]
}

func (s *Sett) Keeper(ctx context.Context) (ecommon.Address, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().Keeper, nil
}

func (s *Sett) Governance(ctx context.Context) (ecommon.Address, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().Governance, nil
}

func (s *Sett) Want(ctx context.Context) (ecommon.Address, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().Want, nil
}

func (s *Sett) GuestList(ctx context.Context) (ecommon.Address, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().GuestList, nil
}

// pool is the want held by the vault and its strategy.
func (s *Sett) pool() *big.Int {
	st := s.state()
	pool := new(big.Int).Set(s.ledger.balance(st.Want, s.address))
	if st.strategy != (ecommon.Address{}) {
		pool.Add(pool, s.ledger.balance(st.Want, st.strategy))
	}
	return pool
}

func (s *Sett) PricePerFullShare(ctx context.Context) (*big.Int, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	supply := s.ledger.totalSupply(s.address)
	if supply.Sign() == 0 {
		return exp10(18), nil
	}
	ppfs := new(big.Int).Mul(s.pool(), exp10(18))
	return ppfs.Div(ppfs, supply), nil
}

func (s *Sett) Deposit(ctx context.Context, from ecommon.Address, amount *big.Int) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if err := s.ledger.begin("deposit", from); err != nil {
		return err
	}
	st := s.state()
	if st.GuestList != (ecommon.Address{}) {
		gl, ok := s.ledger.guestLists[st.GuestList]
		if !ok || !gl.guests[from] {
			return fmt.Errorf("deposit from %s: guest-list-authorization: %w", from.Hex(), ErrUnauthorized)
		}
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("deposit of %s: amount must be positive", amount)
	}

	pool := s.pool()
	supply := s.ledger.totalSupply(s.address)
	if supply.Sign() > 0 && pool.Sign() == 0 {
		return fmt.Errorf("deposit: vault has shares but no want")
	}
	if err := s.ledger.transferFrom(st.Want, s.address, from, s.address, amount); err != nil {
		return err
	}

	shares := new(big.Int).Set(amount)
	if supply.Sign() > 0 {
		shares.Mul(amount, supply).Div(shares, pool)
	}
	s.ledger.mint(s.address, from, shares)
	return nil
}

func (s *Sett) Withdraw(ctx context.Context, from ecommon.Address, shares *big.Int) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if err := s.ledger.begin("withdraw", from); err != nil {
		return err
	}
	st := s.state()
	supply := s.ledger.totalSupply(s.address)
	if supply.Sign() == 0 {
		return fmt.Errorf("withdraw from empty vault: %w", ErrInsufficientBalance)
	}
	owed := new(big.Int).Mul(s.pool(), shares)
	owed.Div(owed, supply)
	if err := s.ledger.burn(s.address, from, shares); err != nil {
		return err
	}

	// pull the shortfall back from the strategy
	held := s.ledger.balance(st.Want, s.address)
	if held.Cmp(owed) < 0 {
		missing := new(big.Int).Sub(owed, held)
		if err := s.ledger.transfer(st.Want, st.strategy, s.address, missing); err != nil {
			return err
		}
	}
	return s.ledger.transfer(st.Want, s.address, from, owed)
}

// Earn moves the idle want of the vault into the strategy.
func (s *Sett) Earn(ctx context.Context, from ecommon.Address) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if err := s.ledger.begin("earn", from); err != nil {
		return err
	}
	st := s.state()
	if from != st.Keeper && from != st.Governance {
		return fmt.Errorf("earn from %s: onlyAuthorizedActors: %w", from.Hex(), ErrUnauthorized)
	}
	if st.strategy == (ecommon.Address{}) {
		return fmt.Errorf("earn: no strategy set")
	}
	idle := new(big.Int).Set(s.ledger.balance(st.Want, s.address))
	return s.ledger.transfer(st.Want, s.address, st.strategy, idle)
}

////////////////////////////////////////////////////////////////////////////////////////
// Strategy
////////////////////////////////////////////////////////////////////////////////////////

type StrategyConfig struct {
	Want       ecommon.Address
	Keeper     ecommon.Address
	Governance ecommon.Address
	Tendable   bool

	// Yield is the want minted to the strategy on every harvest.
	Yield *big.Int
}

type strategyState struct {
	StrategyConfig
	harvests int
	tends    int
}

type Strategy struct {
	ledger  *Ledger
	address ecommon.Address
}

var _ types.Strategy = &Strategy{}

func (l *Ledger) NewStrategy(cfg StrategyConfig) *Strategy {
	l.mu.Lock()
	defer l.mu.Unlock()
	addr := l.newAddress()
	l.code[addr] = contractCode
	if cfg.Yield == nil {
		cfg.Yield = new(big.Int)
	}
	l.strategies[addr] = &strategyState{StrategyConfig: cfg}
	return &Strategy{ledger: l, address: addr}
}

func (s *Strategy) state() *strategyState {
	return s.ledger.strategies[s.address]
}

func (s *Strategy) Address() ecommon.Address {
	return s.address
}

func (s *Strategy) Keeper(ctx context.Context) (ecommon.Address, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().Keeper, nil
}

func (s *Strategy) Governance(ctx context.Context) (ecommon.Address, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().Governance, nil
}

func (s *Strategy) Want(ctx context.Context) (ecommon.Address, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().Want, nil
}

func (s *Strategy) BalanceOf(ctx context.Context) (*big.Int, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return new(big.Int).Set(s.ledger.balance(s.state().Want, s.address)), nil
}

func (s *Strategy) IsTendable(ctx context.Context) (bool, error) {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().Tendable, nil
}

func (s *Strategy) authorize(method string, from ecommon.Address) error {
	if err := s.ledger.begin(method, from); err != nil {
		return err
	}
	st := s.state()
	if from != st.Keeper && from != st.Governance {
		return fmt.Errorf("%s from %s: onlyAuthorizedActors: %w", method, from.Hex(), ErrUnauthorized)
	}
	return nil
}

func (s *Strategy) Harvest(ctx context.Context, from ecommon.Address) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if err := s.authorize("harvest", from); err != nil {
		return err
	}
	st := s.state()
	s.ledger.mint(st.Want, s.address, st.Yield)
	st.harvests++
	return nil
}

func (s *Strategy) Tend(ctx context.Context, from ecommon.Address) error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	if err := s.authorize("tend", from); err != nil {
		return err
	}
	st := s.state()
	if !st.Tendable {
		return fmt.Errorf("tend: strategy is not tendable")
	}
	st.tends++
	return nil
}

// Harvests returns the number of successful harvests.
func (s *Strategy) Harvests() int {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().harvests
}

// Tends returns the number of successful tends.
func (s *Strategy) Tends() int {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.state().tends
}

////////////////////////////////////////////////////////////////////////////////////////
// GuestList
////////////////////////////////////////////////////////////////////////////////////////

type guestListState struct {
	owner  ecommon.Address
	guests map[ecommon.Address]bool
}

type GuestList struct {
	ledger  *Ledger
	address ecommon.Address
}

var _ types.GuestList = &GuestList{}

func (l *Ledger) NewGuestList(owner ecommon.Address) *GuestList {
	l.mu.Lock()
	defer l.mu.Unlock()
	addr := l.newAddress()
	l.code[addr] = contractCode
	l.guestLists[addr] = &guestListState{owner: owner, guests: make(map[ecommon.Address]bool)}
	return &GuestList{ledger: l, address: addr}
}

func (g *GuestList) Address() ecommon.Address {
	return g.address
}

func (g *GuestList) Owner(ctx context.Context) (ecommon.Address, error) {
	g.ledger.mu.Lock()
	defer g.ledger.mu.Unlock()
	st, ok := g.ledger.guestLists[g.address]
	if !ok {
		return ecommon.Address{}, fmt.Errorf("no guest list at %s", g.address.Hex())
	}
	return st.owner, nil
}

func (g *GuestList) SetGuests(ctx context.Context, from ecommon.Address, guests []ecommon.Address, invited []bool) error {
	g.ledger.mu.Lock()
	defer g.ledger.mu.Unlock()
	if err := g.ledger.begin("setGuests", from); err != nil {
		return err
	}
	st, ok := g.ledger.guestLists[g.address]
	if !ok {
		return fmt.Errorf("no guest list at %s", g.address.Hex())
	}
	if from != st.owner {
		return fmt.Errorf("setGuests from %s: Ownable: %w", from.Hex(), ErrUnauthorized)
	}
	if len(guests) != len(invited) {
		return fmt.Errorf("setGuests: %d guests but %d flags", len(guests), len(invited))
	}
	for i, guest := range guests {
		st.guests[guest] = invited[i]
	}
	return nil
}

// IsGuest reports whether the account may deposit.
func (g *GuestList) IsGuest(addr ecommon.Address) bool {
	g.ledger.mu.Lock()
	defer g.ledger.mu.Unlock()
	st, ok := g.ledger.guestLists[g.address]
	return ok && st.guests[addr]
}

////////////////////////////////////////////////////////////////////////////////////////
// Uniswap
////////////////////////////////////////////////////////////////////////////////////////

type pairState struct {
	token0, token1 ecommon.Address
}

// Pair is a liquidity pair. Its LP token is minted one for one against the smaller
// side of each deposit.
type Pair struct {
	Token
}

var _ types.Pair = &Pair{}

func (l *Ledger) NewPair(symbol string, token0, token1 ecommon.Address) *Pair {
	l.mu.Lock()
	defer l.mu.Unlock()
	token := l.newToken(symbol)
	l.pairs[token.address] = &pairState{token0: token0, token1: token1}
	return &Pair{Token: *token}
}

func (p *Pair) Token0(ctx context.Context) (ecommon.Address, error) {
	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()
	st, ok := p.ledger.pairs[p.address]
	if !ok {
		return ecommon.Address{}, fmt.Errorf("no pair at %s", p.address.Hex())
	}
	return st.token0, nil
}

func (p *Pair) Token1(ctx context.Context) (ecommon.Address, error) {
	p.ledger.mu.Lock()
	defer p.ledger.mu.Unlock()
	st, ok := p.ledger.pairs[p.address]
	if !ok {
		return ecommon.Address{}, fmt.Errorf("no pair at %s", p.address.Hex())
	}
	return st.token1, nil
}

type Router struct {
	ledger  *Ledger
	address ecommon.Address
}

var _ types.Router = &Router{}

func (l *Ledger) NewRouter() *Router {
	l.mu.Lock()
	defer l.mu.Unlock()
	addr := l.newAddress()
	l.code[addr] = contractCode
	return &Router{ledger: l, address: addr}
}

func (r *Router) Address() ecommon.Address {
	return r.address
}

func (r *Router) AddLiquidity(ctx context.Context, from, tokenA, tokenB ecommon.Address, amountA, amountB *big.Int) error {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()
	if err := r.ledger.begin("addLiquidity", from); err != nil {
		return err
	}

	var pairAddr ecommon.Address
	for addr, st := range r.ledger.pairs {
		if (st.token0 == tokenA && st.token1 == tokenB) || (st.token0 == tokenB && st.token1 == tokenA) {
			pairAddr = addr
			break
		}
	}
	if pairAddr == (ecommon.Address{}) {
		return fmt.Errorf("addLiquidity: no pair for %s/%s", tokenA.Hex(), tokenB.Hex())
	}

	if err := r.ledger.transferFrom(tokenA, r.address, from, pairAddr, amountA); err != nil {
		return err
	}
	if err := r.ledger.transferFrom(tokenB, r.address, from, pairAddr, amountB); err != nil {
		return err
	}

	liquidity := amountA
	if amountB.Cmp(amountA) < 0 {
		liquidity = amountB
	}
	r.ledger.mint(pairAddr, from, new(big.Int).Set(liquidity))
	return nil
}

////////////////////////////////////////////////////////////////////////////////////////
// Digg
////////////////////////////////////////////////////////////////////////////////////////

type diggState struct {
	owner             ecommon.Address
	sharesPerFragment *big.Int
	report            *big.Int
	rebases           int
}

// Digg is a rebasing token. A rebase scales every balance by the last oracle report.
type Digg struct {
	Token
}

var _ types.Digg = &Digg{}

// NewDigg deploys DIGG at a fixed address. Only owner may push oracle reports.
func (l *Ledger) NewDigg(address, owner ecommon.Address, sharesPerFragment *big.Int) *Digg {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.symbols[address] = "DIGG"
	l.code[address] = contractCode
	token := &Token{ledger: l, address: address}
	l.diggs[address] = &diggState{
		owner:             owner,
		sharesPerFragment: new(big.Int).Set(sharesPerFragment),
	}
	return &Digg{Token: *token}
}

func (d *Digg) state() *diggState {
	return d.ledger.diggs[d.address]
}

func (d *Digg) SharesToFragments(ctx context.Context, shares *big.Int) (*big.Int, error) {
	d.ledger.mu.Lock()
	defer d.ledger.mu.Unlock()
	return new(big.Int).Div(shares, d.state().sharesPerFragment), nil
}

func (d *Digg) PushReport(ctx context.Context, from ecommon.Address, value *big.Int) error {
	d.ledger.mu.Lock()
	defer d.ledger.mu.Unlock()
	if err := d.ledger.begin("pushReport", from); err != nil {
		return err
	}
	st := d.state()
	if from != st.owner {
		return fmt.Errorf("pushReport from %s: %w", from.Hex(), ErrUnauthorized)
	}
	st.report = new(big.Int).Set(value)
	return nil
}

func (d *Digg) Rebase(ctx context.Context, from ecommon.Address) error {
	d.ledger.mu.Lock()
	defer d.ledger.mu.Unlock()
	if err := d.ledger.begin("rebase", from); err != nil {
		return err
	}
	st := d.state()
	if st.report == nil {
		return fmt.Errorf("rebase: no oracle report")
	}

	one := exp10(18)
	supply := new(big.Int)
	for holder, bal := range d.ledger.balances[d.address] {
		scaled := new(big.Int).Mul(bal, st.report)
		scaled.Div(scaled, one)
		d.ledger.balances[d.address][holder] = scaled
		supply.Add(supply, scaled)
	}
	d.ledger.supply[d.address] = supply

	st.sharesPerFragment = new(big.Int).Mul(st.sharesPerFragment, one)
	st.sharesPerFragment.Div(st.sharesPerFragment, st.report)
	st.report = nil
	st.rebases++
	return nil
}

// Rebases returns the number of completed rebases.
func (d *Digg) Rebases() int {
	d.ledger.mu.Lock()
	defer d.ledger.mu.Unlock()
	return d.state().rebases
}
