package mock

import (
	"fmt"
	"math/big"

	ecommon "github.com/ethereum/go-ethereum/common"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/common/registry"
)

// WhaleBalance is minted to every registry whale by NewFixture.
var WhaleBalance = new(big.Int).Mul(big.NewInt(1_000_000), exp10(18))

// FixtureConfig describes the vault deployed by NewFixture.
type FixtureConfig struct {
	Network common.Network
	SettID  string

	// Want is the registry key of the want token. Ignored when Pair is set.
	Want string

	// Pair makes the want a liquidity pair of the two registry tokens.
	Pair [2]string

	// Accounts is the number of unlocked node accounts, the first is the deployer.
	Accounts int

	GuestList bool
	Tendable  bool
	Digg      bool

	// Yield is minted to the strategy on each harvest.
	Yield *big.Int
}

// Fixture is a funded single-vault deployment.
type Fixture struct {
	Ledger   *Ledger
	System   *System
	Sett     *Sett
	Strategy *Strategy
	Want     *Token

	Keeper         ecommon.Address
	StrategyKeeper ecommon.Address
	Governance     ecommon.Address

	GuestList *GuestList
	Pair      *Pair
	Digg      *Digg
}

// NewFixture deploys a vault on a fresh ledger and funds every registry whale of the
// network with WhaleBalance. Keepers and whales are not unlocked.
func NewFixture(cfg FixtureConfig) (*Fixture, error) {
	if cfg.Network.IsEmpty() {
		cfg.Network = common.ETHNetwork
	}
	if cfg.Accounts == 0 {
		cfg.Accounts = 20
	}
	if cfg.Yield == nil {
		cfg.Yield = exp10(15)
	}

	reg, err := registry.GetRegistry(cfg.Network)
	if err != nil {
		return nil, err
	}

	ledger := NewLedger()
	accounts := ledger.AddAccounts(cfg.Accounts)
	sys := NewSystem(ledger, cfg.Network, reg, accounts[0])
	f := &Fixture{
		Ledger:         ledger,
		System:         sys,
		Keeper:         ledger.NewAddress(),
		StrategyKeeper: ledger.NewAddress(),
		Governance:     ledger.NewAddress(),
	}

	for name, addr := range reg.Tokens {
		ledger.RegisterToken(name, addr.EVM())
	}

	if cfg.Digg {
		diggAddr, err := reg.Token("digg")
		if err != nil {
			return nil, err
		}
		f.Digg = ledger.NewDigg(diggAddr.EVM(), sys.Deployer(), exp10(9))
		sys.SetDigg(f.Digg)
	}

	for name := range reg.Whales {
		whale, err := reg.Whale(name)
		if err != nil {
			return nil, err
		}
		token, err := reg.Token(whale.Token)
		if err != nil {
			return nil, err
		}
		holder := sys.Deployer()
		if !whale.FromDeployer {
			holder = whale.Address.EVM()
		}
		ledger.Mint(token.EVM(), holder, WhaleBalance)
	}

	for name := range reg.Routers {
		sys.AddRouter(name, ledger.NewRouter())
	}

	var want ecommon.Address
	switch {
	case cfg.Pair[0] != "":
		token0, err := reg.Token(cfg.Pair[0])
		if err != nil {
			return nil, err
		}
		token1, err := reg.Token(cfg.Pair[1])
		if err != nil {
			return nil, err
		}
		f.Pair = ledger.NewPair(fmt.Sprintf("%s-%s", cfg.Pair[0], cfg.Pair[1]), token0.EVM(), token1.EVM())
		want = f.Pair.Address()
	case cfg.Want != "":
		addr, err := reg.Token(cfg.Want)
		if err != nil {
			return nil, err
		}
		want = addr.EVM()
	default:
		return nil, fmt.Errorf("fixture for %s has no want", cfg.SettID)
	}
	f.Want = &Token{ledger: ledger, address: want}

	settCfg := SettConfig{
		Want:       want,
		Keeper:     f.Keeper,
		Governance: f.Governance,
	}
	if cfg.GuestList {
		f.GuestList = ledger.NewGuestList(ledger.NewAddress())
		settCfg.GuestList = f.GuestList.Address()
	}

	f.Sett = ledger.NewSett("b"+cfg.SettID, settCfg)
	f.Strategy = ledger.NewStrategy(StrategyConfig{
		Want:       want,
		Keeper:     f.StrategyKeeper,
		Governance: f.Governance,
		Tendable:   cfg.Tendable,
		Yield:      cfg.Yield,
	})
	sys.AddSett(cfg.SettID, f.Sett, f.Strategy)

	return f, nil
}
