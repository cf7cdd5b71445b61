// Package mock provides an in-memory test network with Sett, strategy, Uniswap and
// DIGG contracts. It enforces the same sender, allowance and keeper rules as the
// deployed contracts so simulations can run without a node.
package mock

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"

	"gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

var (
	ErrNotUnlocked           = errors.New("sender not unlocked")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// contractCode is returned by CodeAt for every mock contract.
var contractCode = []byte{0x60, 0x80, 0x60, 0x40}

func exp10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

////////////////////////////////////////////////////////////////////////////////////////
// Ledger
////////////////////////////////////////////////////////////////////////////////////////

// Ledger is the state of the in-memory network. Every transaction is mined in its own
// block.
type Ledger struct {
	mu sync.Mutex

	accounts []ecommon.Address
	unlocked map[ecommon.Address]bool
	code     map[ecommon.Address][]byte
	nonce    int64

	symbols    map[ecommon.Address]string
	balances   map[ecommon.Address]map[ecommon.Address]*big.Int
	allowances map[ecommon.Address]map[ecommon.Address]map[ecommon.Address]*big.Int
	supply     map[ecommon.Address]*big.Int

	setts      map[ecommon.Address]*settState
	strategies map[ecommon.Address]*strategyState
	guestLists map[ecommon.Address]*guestListState
	pairs      map[ecommon.Address]*pairState
	diggs      map[ecommon.Address]*diggState

	reverts map[string]error
	txs     []string
	elapsed time.Duration
	height  uint64
}

var _ types.Chain = &Ledger{}

func NewLedger() *Ledger {
	return &Ledger{
		unlocked:   make(map[ecommon.Address]bool),
		code:       make(map[ecommon.Address][]byte),
		symbols:    make(map[ecommon.Address]string),
		balances:   make(map[ecommon.Address]map[ecommon.Address]*big.Int),
		allowances: make(map[ecommon.Address]map[ecommon.Address]map[ecommon.Address]*big.Int),
		supply:     make(map[ecommon.Address]*big.Int),
		setts:      make(map[ecommon.Address]*settState),
		strategies: make(map[ecommon.Address]*strategyState),
		guestLists: make(map[ecommon.Address]*guestListState),
		pairs:      make(map[ecommon.Address]*pairState),
		diggs:      make(map[ecommon.Address]*diggState),
		reverts:    make(map[string]error),
	}
}

// NewAddress returns a fresh deterministic address.
func (l *Ledger) NewAddress() ecommon.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newAddress()
}

func (l *Ledger) newAddress() ecommon.Address {
	l.nonce++
	return ecommon.BigToAddress(big.NewInt(0x10000 + l.nonce))
}

// AddAccounts appends n unlocked externally owned accounts and returns them.
func (l *Ledger) AddAccounts(n int) []ecommon.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ecommon.Address, 0, n)
	for i := 0; i < n; i++ {
		addr := l.newAddress()
		l.accounts = append(l.accounts, addr)
		l.unlocked[addr] = true
		out = append(out, addr)
	}
	return out
}

// SetCode marks an address as a contract.
func (l *Ledger) SetCode(addr ecommon.Address, code []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.code[addr] = code
}

// RevertOn makes every later transaction calling method fail with err.
func (l *Ledger) RevertOn(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reverts[method] = err
}

// Transactions returns the methods of all mined transactions in order.
func (l *Ledger) Transactions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.txs...)
}

// Elapsed returns the total time skipped.
func (l *Ledger) Elapsed() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.elapsed
}

// IsImpersonated reports whether transactions can be sent from the address.
func (l *Ledger) IsImpersonated(addr ecommon.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unlocked[addr]
}

// begin authorizes and records a transaction.
func (l *Ledger) begin(method string, from ecommon.Address) error {
	if !l.unlocked[from] {
		return fmt.Errorf("%s from %s: %w", method, from.Hex(), ErrNotUnlocked)
	}
	if err, ok := l.reverts[method]; ok {
		return fmt.Errorf("%s: %w", method, err)
	}
	l.txs = append(l.txs, method)
	l.height++
	return nil
}

////////////////////////////////////////////////////////////////////////////////////////
// Chain
////////////////////////////////////////////////////////////////////////////////////////

func (l *Ledger) Accounts(ctx context.Context) ([]ecommon.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ecommon.Address(nil), l.accounts...), nil
}

func (l *Ledger) CodeAt(ctx context.Context, address ecommon.Address) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.code[address], nil
}

func (l *Ledger) Impersonate(ctx context.Context, address ecommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocked[address] = true
	return nil
}

func (l *Ledger) Sleep(ctx context.Context, d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d < 0 {
		return fmt.Errorf("negative time skip %s", d)
	}
	l.elapsed += d
	return nil
}

func (l *Ledger) Mine(ctx context.Context, blocks uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height += blocks
	return nil
}

func (l *Ledger) BlockNumber(ctx context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height, nil
}

func (l *Ledger) Token(address ecommon.Address) types.Token {
	return &Token{ledger: l, address: address}
}

////////////////////////////////////////////////////////////////////////////////////////
// Balances
////////////////////////////////////////////////////////////////////////////////////////

// NewToken deploys a plain ERC20 token.
func (l *Ledger) NewToken(symbol string) *Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newToken(symbol)
}

// RegisterToken declares a token at a fixed address, such as a registry token.
func (l *Ledger) RegisterToken(symbol string, address ecommon.Address) *Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.symbols[address] = symbol
	l.code[address] = contractCode
	return &Token{ledger: l, address: address}
}

func (l *Ledger) newToken(symbol string) *Token {
	addr := l.newAddress()
	l.symbols[addr] = symbol
	l.code[addr] = contractCode
	return &Token{ledger: l, address: addr}
}

// Mint credits holder with amount of token outside of any transaction.
func (l *Ledger) Mint(token, holder ecommon.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mint(token, holder, amount)
}

// Balance returns the balance of holder in token.
func (l *Ledger) Balance(token, holder ecommon.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(token, holder))
}

func (l *Ledger) balance(token, holder ecommon.Address) *big.Int {
	if b, ok := l.balances[token][holder]; ok {
		return b
	}
	return new(big.Int)
}

func (l *Ledger) totalSupply(token ecommon.Address) *big.Int {
	if s, ok := l.supply[token]; ok {
		return s
	}
	return new(big.Int)
}

func (l *Ledger) setBalance(token, holder ecommon.Address, amount *big.Int) {
	if l.balances[token] == nil {
		l.balances[token] = make(map[ecommon.Address]*big.Int)
	}
	l.balances[token][holder] = amount
}

func (l *Ledger) mint(token, holder ecommon.Address, amount *big.Int) {
	l.setBalance(token, holder, new(big.Int).Add(l.balance(token, holder), amount))
	l.supply[token] = new(big.Int).Add(l.totalSupply(token), amount)
}

func (l *Ledger) burn(token, holder ecommon.Address, amount *big.Int) error {
	bal := l.balance(token, holder)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("burn %s of %s: %w", amount, holder.Hex(), ErrInsufficientBalance)
	}
	l.setBalance(token, holder, new(big.Int).Sub(bal, amount))
	l.supply[token] = new(big.Int).Sub(l.totalSupply(token), amount)
	return nil
}

func (l *Ledger) transfer(token, from, to ecommon.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer amount %s", amount)
	}
	bal := l.balance(token, from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s of %s from %s: %w", amount, l.symbols[token], from.Hex(), ErrInsufficientBalance)
	}
	l.setBalance(token, from, new(big.Int).Sub(bal, amount))
	l.setBalance(token, to, new(big.Int).Add(l.balance(token, to), amount))
	return nil
}

func (l *Ledger) allowance(token, owner, spender ecommon.Address) *big.Int {
	if a, ok := l.allowances[token][owner][spender]; ok {
		return a
	}
	return new(big.Int)
}

func (l *Ledger) approve(token, owner, spender ecommon.Address, amount *big.Int) {
	if l.allowances[token] == nil {
		l.allowances[token] = make(map[ecommon.Address]map[ecommon.Address]*big.Int)
	}
	if l.allowances[token][owner] == nil {
		l.allowances[token][owner] = make(map[ecommon.Address]*big.Int)
	}
	l.allowances[token][owner][spender] = new(big.Int).Set(amount)
}

// transferFrom moves tokens on behalf of owner, spending the allowance of spender.
func (l *Ledger) transferFrom(token, spender, owner, to ecommon.Address, amount *big.Int) error {
	allowed := l.allowance(token, owner, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%s spending %s of %s: %w", spender.Hex(), amount, l.symbols[token], ErrInsufficientAllowance)
	}
	if err := l.transfer(token, owner, to, amount); err != nil {
		return err
	}
	l.approve(token, owner, spender, new(big.Int).Sub(allowed, amount))
	return nil
}

////////////////////////////////////////////////////////////////////////////////////////
// Token
////////////////////////////////////////////////////////////////////////////////////////

// Token is a handle on an ERC20 token in the ledger.
type Token struct {
	ledger  *Ledger
	address ecommon.Address
}

var _ types.Token = &Token{}

func (t *Token) Address() ecommon.Address {
	return t.address
}

func (t *Token) Symbol(ctx context.Context) (string, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	symbol, ok := t.ledger.symbols[t.address]
	if !ok {
		return "", fmt.Errorf("no token at %s", t.address.Hex())
	}
	return symbol, nil
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	return new(big.Int).Set(t.ledger.totalSupply(t.address)), nil
}

func (t *Token) BalanceOf(ctx context.Context, holder ecommon.Address) (*big.Int, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	return new(big.Int).Set(t.ledger.balance(t.address, holder)), nil
}

func (t *Token) Transfer(ctx context.Context, from, to ecommon.Address, amount *big.Int) error {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	if err := t.ledger.begin("transfer", from); err != nil {
		return err
	}
	return t.ledger.transfer(t.address, from, to, amount)
}

func (t *Token) Approve(ctx context.Context, from, spender ecommon.Address, amount *big.Int) error {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	if err := t.ledger.begin("approve", from); err != nil {
		return err
	}
	t.ledger.approve(t.address, from, spender, amount)
	return nil
}
