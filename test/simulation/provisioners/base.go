package provisioners

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/common/registry"
	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

// ErrNoProvisioner is returned for a vault id without a provisioner.
var ErrNoProvisioner = errors.New("no provisioner for vault")

// Provisioner funds the simulated users of one vault family before a run.
type Provisioner interface {
	// DistributeTokens transfers the tokens the users need besides want.
	DistributeTokens(ctx context.Context, users []*Account) error

	// DistributeWant gives every user a balance of the vault want.
	DistributeWant(ctx context.Context, users []*Account) error
}

////////////////////////////////////////////////////////////////////////////////////////
// BaseProvisioner
////////////////////////////////////////////////////////////////////////////////////////

// BaseProvisioner distributes tokens from registry whales. Want is funded from the
// whale holding the want token.
type BaseProvisioner struct {
	sim    Simulation
	whales []string
	log    zerolog.Logger
}

func NewBaseProvisioner(sim Simulation, whales ...string) *BaseProvisioner {
	return &BaseProvisioner{
		sim:    sim,
		whales: whales,
		log:    sim.Log().With().Str("module", "provisioner").Logger(),
	}
}

// Whales returns the registry whales funding the users.
func (p *BaseProvisioner) Whales() []string {
	return p.whales
}

func (p *BaseProvisioner) DistributeTokens(ctx context.Context, users []*Account) error {
	for _, name := range p.whales {
		if err := p.DistributeFromWhale(ctx, name, users); err != nil {
			return err
		}
	}
	return p.AdmitGuests(ctx, users)
}

func (p *BaseProvisioner) DistributeWant(ctx context.Context, users []*Account) error {
	reg := p.sim.System().Registry()
	whale, err := reg.WhaleForToken(common.AddressFromEVM(p.sim.Want().Address()))
	if err != nil {
		return fmt.Errorf("fail to find want whale: %w", err)
	}
	return p.distribute(ctx, "want", whale, users)
}

// DistributeFromWhale splits the registry percentage of a whale balance evenly across
// the users. Deployer-held tokens are sent by the deployer.
func (p *BaseProvisioner) DistributeFromWhale(ctx context.Context, name string, users []*Account) error {
	whale, err := p.sim.System().Registry().Whale(name)
	if err != nil {
		return err
	}
	return p.distribute(ctx, name, whale, users)
}

func (p *BaseProvisioner) distribute(ctx context.Context, name string, whale registry.Whale, users []*Account) error {
	if len(users) == 0 {
		return fmt.Errorf("no users to fund")
	}
	sys := p.sim.System()
	tokenAddr, err := sys.Registry().Token(whale.Token)
	if err != nil {
		return err
	}

	holder := sys.Deployer()
	if !whale.FromDeployer {
		holder = whale.Address.EVM()
	}
	if err = sys.Chain().Impersonate(ctx, holder); err != nil {
		return err
	}

	token := sys.Chain().Token(tokenAddr.EVM())
	balance, err := token.BalanceOf(ctx, holder)
	if err != nil {
		return fmt.Errorf("fail to get %s whale balance: %w", name, err)
	}
	each := new(big.Int).Mul(balance, big.NewInt(int64(whale.Percentage)))
	each.Div(each, big.NewInt(100))
	each.Div(each, big.NewInt(int64(len(users))))
	if each.Sign() == 0 {
		return fmt.Errorf("whale %s (%s) has no %s to distribute", name, holder.Hex(), whale.Token)
	}

	for _, user := range users {
		if err = token.Transfer(ctx, holder, user.Address, each); err != nil {
			return fmt.Errorf("fail to fund %s with %s: %w", user.Name(), whale.Token, err)
		}
	}

	p.log.Info().
		Str("whale", name).
		Str("token", whale.Token).
		Stringer("amount", each).
		Int("users", len(users)).
		Msg("distributed from whale")
	return nil
}

// AdmitGuests adds the users to the vault guest list, when the vault has one.
func (p *BaseProvisioner) AdmitGuests(ctx context.Context, users []*Account) error {
	addr, err := p.sim.Sett().GuestList(ctx)
	if err != nil {
		return fmt.Errorf("fail to get guest list: %w", err)
	}
	if addr == (ecommon.Address{}) {
		return nil
	}

	sys := p.sim.System()
	guestList := sys.GuestList(addr)
	owner, err := guestList.Owner(ctx)
	if err != nil {
		return fmt.Errorf("fail to get guest list owner: %w", err)
	}
	if err = sys.Chain().Impersonate(ctx, owner); err != nil {
		return err
	}

	invited := make([]bool, len(users))
	for i := range invited {
		invited[i] = true
	}
	if err = guestList.SetGuests(ctx, owner, Addresses(users), invited); err != nil {
		return fmt.Errorf("fail to admit guests: %w", err)
	}

	p.log.Info().Stringer("guest_list", addr).Int("users", len(users)).Msg("admitted guests")
	return nil
}

////////////////////////////////////////////////////////////////////////////////////////
// LPProvisioner
////////////////////////////////////////////////////////////////////////////////////////

// LPProvisioner funds users with a Uniswap V2 style LP want by adding liquidity with
// half of their balance of each pair token.
type LPProvisioner struct {
	*BaseProvisioner
	router string
}

func NewLPProvisioner(sim Simulation, router string, whales ...string) *LPProvisioner {
	return &LPProvisioner{
		BaseProvisioner: NewBaseProvisioner(sim, whales...),
		router:          router,
	}
}

// Router returns the registry name of the router used to add liquidity.
func (p *LPProvisioner) Router() string {
	return p.router
}

func (p *LPProvisioner) DistributeWant(ctx context.Context, users []*Account) error {
	sys := p.sim.System()
	pair := sys.Pair(p.sim.Want().Address())
	token0, err := pair.Token0(ctx)
	if err != nil {
		return fmt.Errorf("fail to get token0: %w", err)
	}
	token1, err := pair.Token1(ctx)
	if err != nil {
		return fmt.Errorf("fail to get token1: %w", err)
	}
	router, err := sys.Router(p.router)
	if err != nil {
		return err
	}

	for _, user := range users {
		amount0, err := p.approveHalf(ctx, sys.Chain().Token(token0), user, router.Address())
		if err != nil {
			return err
		}
		amount1, err := p.approveHalf(ctx, sys.Chain().Token(token1), user, router.Address())
		if err != nil {
			return err
		}
		if err = router.AddLiquidity(ctx, user.Address, token0, token1, amount0, amount1); err != nil {
			return fmt.Errorf("fail to add liquidity for %s: %w", user.Name(), err)
		}
	}

	p.log.Info().Str("router", p.router).Int("users", len(users)).Msg("added liquidity")
	return nil
}

func (p *LPProvisioner) approveHalf(ctx context.Context, token Token, user *Account, spender ecommon.Address) (*big.Int, error) {
	balance, err := token.BalanceOf(ctx, user.Address)
	if err != nil {
		return nil, err
	}
	half := new(big.Int).Div(balance, big.NewInt(2))
	if half.Sign() == 0 {
		return nil, fmt.Errorf("%s has no %s to add as liquidity", user.Name(), token.Address().Hex())
	}
	if err = token.Approve(ctx, user.Address, spender, half); err != nil {
		return nil, err
	}
	return half, nil
}
