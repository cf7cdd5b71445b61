package mock

import (
	"context"
	"fmt"

	ecommon "github.com/ethereum/go-ethereum/common"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/common/registry"
	"gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

// System is a Sett deployment on a Ledger.
type System struct {
	ledger   *Ledger
	network  common.Network
	registry *registry.Registry
	deployer ecommon.Address

	setts      map[string]*Sett
	strategies map[string]*Strategy
	routers    map[string]*Router
	digg       *Digg
}

var _ types.System = &System{}

// NewSystem creates an empty deployment owned by deployer, which is unlocked.
func NewSystem(ledger *Ledger, network common.Network, reg *registry.Registry, deployer ecommon.Address) *System {
	_ = ledger.Impersonate(context.Background(), deployer)
	return &System{
		ledger:     ledger,
		network:    network,
		registry:   reg,
		deployer:   deployer,
		setts:      make(map[string]*Sett),
		strategies: make(map[string]*Strategy),
		routers:    make(map[string]*Router),
	}
}

func (s *System) Ledger() *Ledger {
	return s.ledger
}

// AddSett registers a vault and its strategy under id.
func (s *System) AddSett(id string, sett *Sett, strategy *Strategy) {
	sett.SetStrategy(strategy)
	s.setts[id] = sett
	s.strategies[id] = strategy
}

func (s *System) AddRouter(name string, router *Router) {
	s.routers[name] = router
}

func (s *System) SetDigg(digg *Digg) {
	s.digg = digg
}

func (s *System) Chain() types.Chain {
	return s.ledger
}

func (s *System) Network() common.Network {
	return s.network
}

func (s *System) Registry() *registry.Registry {
	return s.registry
}

func (s *System) Deployer() ecommon.Address {
	return s.deployer
}

func (s *System) Sett(id string) (types.Sett, error) {
	sett, ok := s.setts[id]
	if !ok {
		return nil, fmt.Errorf("vault %s not deployed", id)
	}
	return sett, nil
}

func (s *System) Strategy(id string) (types.Strategy, error) {
	strategy, ok := s.strategies[id]
	if !ok {
		return nil, fmt.Errorf("strategy %s not deployed", id)
	}
	return strategy, nil
}

func (s *System) StrategyWant(ctx context.Context, id string) (types.Token, error) {
	strategy, err := s.Strategy(id)
	if err != nil {
		return nil, err
	}
	want, err := strategy.Want(ctx)
	if err != nil {
		return nil, err
	}
	return s.ledger.Token(want), nil
}

func (s *System) GuestList(address ecommon.Address) types.GuestList {
	return &GuestList{ledger: s.ledger, address: address}
}

func (s *System) Pair(address ecommon.Address) types.Pair {
	return &Pair{Token: Token{ledger: s.ledger, address: address}}
}

func (s *System) Router(name string) (types.Router, error) {
	router, ok := s.routers[name]
	if !ok {
		return nil, fmt.Errorf("router %s not deployed", name)
	}
	return router, nil
}

func (s *System) Digg() (types.Digg, error) {
	if s.digg == nil {
		return nil, types.ErrNoDigg
	}
	return s.digg, nil
}
