package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "gopkg.in/check.v1"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/constants"
)

func TestPackage(t *testing.T) { TestingT(t) }

type RegistrySuite struct{}

var _ = Suite(&RegistrySuite{})

func (s *RegistrySuite) TestEmbeddedRegistries(c *C) {
	for _, network := range common.AllNetworks {
		r, err := GetRegistry(network)
		c.Assert(err, IsNil)
		c.Assert(r.Validate(), IsNil)
		c.Check(r.Network, Equals, network)
		c.Check(len(r.Tokens) > 0, Equals, true)
		c.Check(len(r.Routers) > 0, Equals, true)
	}

	_, err := GetRegistry(common.Network("polygon"))
	c.Assert(err, NotNil)
}

func (s *RegistrySuite) TestGetRegistryReturnsCopy(c *C) {
	r, err := GetRegistry(common.ETHNetwork)
	c.Assert(err, IsNil)
	r.Network = common.BSCNetwork

	r2, err := GetRegistry(common.ETHNetwork)
	c.Assert(err, IsNil)
	c.Check(r2.Network, Equals, common.ETHNetwork)
}

func (s *RegistrySuite) TestNoDuplicateTokenAddresses(c *C) {
	for _, network := range common.AllNetworks {
		r, err := GetRegistry(network)
		c.Assert(err, IsNil)
		seen := make(map[string]string)
		for name, addr := range r.Tokens {
			key := strings.ToLower(addr.String())
			if other, ok := seen[key]; ok {
				c.Errorf("tokens %s and %s share address %s", name, other, addr)
			}
			seen[key] = name
		}
	}
}

func (s *RegistrySuite) TestWhaleLookup(c *C) {
	r, err := GetRegistry(common.ETHNetwork)
	c.Assert(err, IsNil)

	whale, err := r.Whale("wbtc")
	c.Assert(err, IsNil)
	c.Check(whale.Token, Equals, "wbtc")
	c.Check(whale.FromDeployer, Equals, false)

	whale, err = r.Whale("digg")
	c.Assert(err, IsNil)
	c.Check(whale.FromDeployer, Equals, true)

	wbtc, err := r.Token("wbtc")
	c.Assert(err, IsNil)
	whale, err = r.WhaleForToken(wbtc)
	c.Assert(err, IsNil)
	c.Check(whale.Token, Equals, "wbtc")

	_, err = r.WhaleForToken(common.ZeroAddress)
	c.Assert(err, NotNil)
	_, err = r.Whale("nope")
	c.Assert(err, NotNil)
	_, err = r.Router("pancakeswap")
	c.Assert(err, NotNil)
}

func (s *RegistrySuite) TestDefaultPercentage(c *C) {
	r := &Registry{
		Network: common.ETHNetwork,
		Tokens:  map[string]common.Address{"tkn": "0x52c84043cd9c865236f11d9fc9f56aa003c1f922"},
		Whales:  map[string]Whale{"tkn": {Token: "tkn", FromDeployer: true}},
	}
	c.Assert(r.Validate(), IsNil)
	whale, err := r.Whale("tkn")
	c.Assert(err, IsNil)
	c.Check(whale.Percentage, Equals, constants.DefaultWhalePercentage)
}

func (s *RegistrySuite) TestValidate(c *C) {
	r := &Registry{
		Tokens: map[string]common.Address{"tkn": "0x52c84043cd9c865236f11d9fc9f56aa003c1f922"},
		Whales: map[string]Whale{"w": {Token: "missing", FromDeployer: true}},
	}
	c.Assert(r.Validate(), NotNil)

	r.Whales = map[string]Whale{"w": {Token: "tkn", Address: "bogus"}}
	c.Assert(r.Validate(), NotNil)

	r.Whales = map[string]Whale{"w": {Token: "tkn", FromDeployer: true, Percentage: 101}}
	c.Assert(r.Validate(), NotNil)
}

func (s *RegistrySuite) TestLoad(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "registry.json")
	raw := `{
	  "tokens": {"tkn": "0x52c84043cd9c865236f11d9fc9f56aa003c1f922"},
	  "whales": {"tkn": {"token": "tkn", "address": "0xf977814e90da44bfa03b6295a0616a897441acec", "percentage": 25}},
	  "routers": {"uniswap": "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"}
	}`
	c.Assert(os.WriteFile(path, []byte(raw), 0o600), IsNil)

	r, err := Load(common.ETHNetwork, path)
	c.Assert(err, IsNil)
	whale, err := r.Whale("tkn")
	c.Assert(err, IsNil)
	c.Check(whale.Percentage, Equals, 25)

	_, err = Load(common.ETHNetwork, filepath.Join(dir, "missing.json"))
	c.Assert(err, NotNil)
}
