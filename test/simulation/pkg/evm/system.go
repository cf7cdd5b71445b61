package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	ecommon "github.com/ethereum/go-ethereum/common"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/common/registry"

	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

////////////////////////////////////////////////////////////////////////////////////////
// Deployment
////////////////////////////////////////////////////////////////////////////////////////

// Deployment is the address book written by the deploy scripts.
type Deployment struct {
	Deployer   common.Address `json:"deployer"`
	SettSystem struct {
		Vaults     map[string]common.Address `json:"vaults"`
		Strategies map[string]common.Address `json:"strategies"`
	} `json:"sett_system"`
	DiggSystem *struct {
		UFragments         common.Address `json:"uFragments"`
		MarketMedianOracle common.Address `json:"marketMedianOracle"`
		Orchestrator       common.Address `json:"orchestrator"`
	} `json:"digg_system,omitempty"`

	// Routers overrides registry routers with locally deployed ones.
	Routers map[string]common.Address `json:"routers,omitempty"`
}

// ReadDeployment decodes a deployment file.
func ReadDeployment(path string) (*Deployment, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fail to read deployment file: %w", err)
	}
	d := &Deployment{}
	if err = json.Unmarshal(buf, d); err != nil {
		return nil, fmt.Errorf("fail to decode deployment file %s: %w", path, err)
	}
	if d.Deployer.IsZero() {
		return nil, fmt.Errorf("deployment file %s has no deployer", path)
	}
	return d, nil
}

////////////////////////////////////////////////////////////////////////////////////////
// System
////////////////////////////////////////////////////////////////////////////////////////

// SettSystem is a deployment bound to a test node.
type SettSystem struct {
	client     *Client
	network    common.Network
	registry   *registry.Registry
	deployment *Deployment
}

var _ System = &SettSystem{}

// LoadSystem reads the deployment file and binds it to the client.
func LoadSystem(client *Client, network common.Network, reg *registry.Registry, path string) (*SettSystem, error) {
	d, err := ReadDeployment(path)
	if err != nil {
		return nil, err
	}
	return NewSystem(client, network, reg, d), nil
}

func NewSystem(client *Client, network common.Network, reg *registry.Registry, d *Deployment) *SettSystem {
	return &SettSystem{
		client:     client,
		network:    network,
		registry:   reg,
		deployment: d,
	}
}

func (s *SettSystem) Chain() Chain {
	return s.client
}

func (s *SettSystem) Network() common.Network {
	return s.network
}

func (s *SettSystem) Registry() *registry.Registry {
	return s.registry
}

func (s *SettSystem) Deployer() ecommon.Address {
	return s.deployment.Deployer.EVM()
}

func (s *SettSystem) Sett(id string) (Sett, error) {
	addr, ok := s.deployment.SettSystem.Vaults[id]
	if !ok {
		return nil, fmt.Errorf("vault %s not deployed", id)
	}
	return s.client.Sett(addr.EVM()), nil
}

func (s *SettSystem) Strategy(id string) (Strategy, error) {
	addr, ok := s.deployment.SettSystem.Strategies[id]
	if !ok {
		return nil, fmt.Errorf("strategy %s not deployed", id)
	}
	return s.client.Strategy(addr.EVM()), nil
}

func (s *SettSystem) StrategyWant(ctx context.Context, id string) (Token, error) {
	strategy, err := s.Strategy(id)
	if err != nil {
		return nil, err
	}
	want, err := strategy.Want(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to get want of %s: %w", id, err)
	}
	return s.client.Token(want), nil
}

func (s *SettSystem) GuestList(address ecommon.Address) GuestList {
	return s.client.GuestList(address)
}

func (s *SettSystem) Pair(address ecommon.Address) Pair {
	return s.client.Pair(address)
}

func (s *SettSystem) Router(name string) (Router, error) {
	if addr, ok := s.deployment.Routers[name]; ok {
		return s.client.Router(addr.EVM()), nil
	}
	addr, err := s.registry.Router(name)
	if err != nil {
		return nil, err
	}
	return s.client.Router(addr.EVM()), nil
}

func (s *SettSystem) Digg() (Digg, error) {
	d := s.deployment.DiggSystem
	if d == nil {
		return nil, ErrNoDigg
	}
	return s.client.Digg(d.UFragments.EVM(), d.MarketMedianOracle.EVM(), d.Orchestrator.EVM()), nil
}
