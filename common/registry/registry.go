package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/common/registry/registrydata"
	"gitlab.com/badgerdao/settsim/constants"
)

// Whale is an account holding a large balance of a token on the forked network, used
// as the funding source for simulated users.
type Whale struct {
	// Token is the registry key of the token held by the whale.
	Token string `json:"token"`

	// Address of the whale. Empty when FromDeployer is set.
	Address common.Address `json:"address"`

	// FromDeployer marks tokens that only the system deployer holds on the test network.
	FromDeployer bool `json:"fromDeployer"`

	// Percentage of the whale balance split across all users.
	Percentage int `json:"percentage"`
}

// Registry holds the well known addresses of one network.
type Registry struct {
	Network common.Network
	Tokens  map[string]common.Address `json:"tokens"`
	Whales  map[string]Whale          `json:"whales"`
	Routers map[string]common.Address `json:"routers"`
}

var (
	ethRegistry Registry
	bscRegistry Registry
)

func init() {
	if err := json.Unmarshal(registrydata.ETHRegistryRaw, &ethRegistry); err != nil {
		panic(err)
	}
	ethRegistry.Network = common.ETHNetwork
	if err := ethRegistry.Validate(); err != nil {
		panic(err)
	}

	if err := json.Unmarshal(registrydata.BSCRegistryRaw, &bscRegistry); err != nil {
		panic(err)
	}
	bscRegistry.Network = common.BSCNetwork
	if err := bscRegistry.Validate(); err != nil {
		panic(err)
	}
}

// GetRegistry returns the embedded registry for the network.
func GetRegistry(network common.Network) (*Registry, error) {
	switch {
	case network.Equals(common.ETHNetwork):
		r := ethRegistry
		return &r, nil
	case network.Equals(common.BSCNetwork):
		r := bscRegistry
		return &r, nil
	default:
		return nil, fmt.Errorf("no registry for network %q", network)
	}
}

// Load reads a registry file, used to override the embedded whales for a fork at a
// different block height.
func Load(network common.Network, path string) (*Registry, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fail to read registry file: %w", err)
	}
	r := &Registry{}
	if err = json.Unmarshal(buf, r); err != nil {
		return nil, fmt.Errorf("fail to decode registry file %s: %w", path, err)
	}
	r.Network = network
	if err = r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks that every whale references a known token and carries a source.
func (r *Registry) Validate() error {
	for name, token := range r.Tokens {
		if _, err := common.NewAddress(token.String()); err != nil {
			return fmt.Errorf("token %s: %w", name, err)
		}
	}
	for name, whale := range r.Whales {
		if _, ok := r.Tokens[whale.Token]; !ok {
			return fmt.Errorf("whale %s references unknown token %s", name, whale.Token)
		}
		if !whale.FromDeployer {
			if _, err := common.NewAddress(whale.Address.String()); err != nil {
				return fmt.Errorf("whale %s: %w", name, err)
			}
		}
		if whale.Percentage < 0 || whale.Percentage > 100 {
			return fmt.Errorf("whale %s percentage %d out of range", name, whale.Percentage)
		}
	}
	return nil
}

// Token returns the address of a token by registry key.
func (r *Registry) Token(name string) (common.Address, error) {
	addr, ok := r.Tokens[name]
	if !ok {
		return common.NoAddress, fmt.Errorf("token %s not in %s registry", name, r.Network)
	}
	return addr, nil
}

// Whale returns a whale by registry key, with the default percentage applied.
func (r *Registry) Whale(name string) (Whale, error) {
	whale, ok := r.Whales[name]
	if !ok {
		return Whale{}, fmt.Errorf("whale %s not in %s registry", name, r.Network)
	}
	if whale.Percentage == 0 {
		whale.Percentage = constants.DefaultWhalePercentage
	}
	return whale, nil
}

// WhaleForToken finds the whale funding the token at the given address.
func (r *Registry) WhaleForToken(token common.Address) (Whale, error) {
	// iterate in key order so lookups are stable when several whales hold a token
	names := make([]string, 0, len(r.Whales))
	for name := range r.Whales {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		whale := r.Whales[name]
		if r.Tokens[whale.Token].Equals(token) {
			return r.Whale(name)
		}
	}
	return Whale{}, fmt.Errorf("no whale for token %s in %s registry", token, r.Network)
}

// Router returns the address of a swap router by name.
func (r *Registry) Router(name string) (common.Address, error) {
	addr, ok := r.Routers[name]
	if !ok {
		return common.NoAddress, fmt.Errorf("router %s not in %s registry", name, r.Network)
	}
	return addr, nil
}
