package evm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	. "gopkg.in/check.v1"

	"gitlab.com/badgerdao/settsim/common"
	"gitlab.com/badgerdao/settsim/common/registry"
	"gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

func Test(t *testing.T) { TestingT(t) }

////////////////////////////////////////////////////////////////////////////////////////
// Fake Node
////////////////////////////////////////////////////////////////////////////////////////

var (
	eoa          = ecommon.HexToAddress("0x00000000000000000000000000000000000000e0")
	contractAddr = ecommon.HexToAddress("0x00000000000000000000000000000000000000c0")
)

type ethService struct {
	height uint64
}

func (s *ethService) Accounts() []ecommon.Address {
	return []ecommon.Address{eoa, contractAddr}
}

func (s *ethService) GetCode(addr ecommon.Address, _ string) hexutil.Bytes {
	if addr == contractAddr {
		return hexutil.Bytes{0x60, 0x80}
	}
	return hexutil.Bytes{}
}

func (s *ethService) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(s.height)
}

type anvilService struct{}

func (anvilService) ImpersonateAccount(ecommon.Address) error {
	return errors.New("method not found")
}

type hardhatService struct {
	impersonated []ecommon.Address
}

func (s *hardhatService) ImpersonateAccount(addr ecommon.Address) bool {
	s.impersonated = append(s.impersonated, addr)
	return true
}

type evmService struct {
	eth     *ethService
	skipped int64
}

func (s *evmService) IncreaseTime(seconds int64) int64 {
	s.skipped += seconds
	return s.skipped
}

func (s *evmService) Mine() string {
	s.eth.height++
	return "0x0"
}

type NodeSuite struct {
	eth     *ethService
	evm     *evmService
	hardhat *hardhatService
	client  *Client
}

var _ = Suite(&NodeSuite{})

func (s *NodeSuite) SetUpTest(c *C) {
	s.eth = &ethService{height: 100}
	s.evm = &evmService{eth: s.eth}
	s.hardhat = &hardhatService{}

	server := rpc.NewServer()
	c.Assert(server.RegisterName("eth", s.eth), IsNil)
	c.Assert(server.RegisterName("evm", s.evm), IsNil)
	c.Assert(server.RegisterName("anvil", anvilService{}), IsNil)
	c.Assert(server.RegisterName("hardhat", s.hardhat), IsNil)

	s.client = NewClient(rpc.DialInProc(server), zerolog.Nop())
}

func (s *NodeSuite) TearDownTest(c *C) {
	s.client.Close()
}

func (s *NodeSuite) TestAccountsAndCode(c *C) {
	ctx := context.Background()
	accounts, err := s.client.Accounts(ctx)
	c.Assert(err, IsNil)
	c.Assert(accounts, DeepEquals, []ecommon.Address{eoa, contractAddr})

	code, err := s.client.CodeAt(ctx, eoa)
	c.Assert(err, IsNil)
	c.Check(code, HasLen, 0)

	code, err = s.client.CodeAt(ctx, contractAddr)
	c.Assert(err, IsNil)
	c.Check(code, HasLen, 2)
}

func (s *NodeSuite) TestImpersonateFallsBackToHardhat(c *C) {
	c.Assert(s.client.Impersonate(context.Background(), eoa), IsNil)
	c.Assert(s.hardhat.impersonated, DeepEquals, []ecommon.Address{eoa})
}

func (s *NodeSuite) TestSleepAndMine(c *C) {
	ctx := context.Background()
	c.Assert(s.client.Sleep(ctx, 2*time.Hour), IsNil)
	c.Check(s.evm.skipped, Equals, int64(7200))

	c.Assert(s.client.Mine(ctx, 3), IsNil)
	height, err := s.client.BlockNumber(ctx)
	c.Assert(err, IsNil)
	c.Check(height, Equals, uint64(103))
}

////////////////////////////////////////////////////////////////////////////////////////
// Reverts
////////////////////////////////////////////////////////////////////////////////////////

type RevertSuite struct{}

var _ = Suite(&RevertSuite{})

type dataError struct {
	data interface{}
}

func (e dataError) Error() string          { return "execution reverted" }
func (e dataError) ErrorData() interface{} { return e.data }

func revertData(c *C, reason string) []byte {
	stringType, err := abi.NewType("string", "", nil)
	c.Assert(err, IsNil)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	c.Assert(err, IsNil)
	return append(hexutil.MustDecode("0x08c379a0"), packed...)
}

func (s *RevertSuite) TestRevertReasonDecoded(c *C) {
	data := revertData(c, "onlyAuthorizedActors")
	err := revertError(dataError{data: hexutil.Encode(data)})
	c.Assert(errors.Is(err, ErrReverted), Equals, true)
	c.Assert(err, ErrorMatches, ".*onlyAuthorizedActors")
}

func (s *RevertSuite) TestUndecodableRevert(c *C) {
	err := revertError(dataError{data: "0xdeadbeef"})
	c.Assert(errors.Is(err, ErrReverted), Equals, true)

	// no revert data at all
	plain := errors.New("connection refused")
	c.Assert(revertError(plain), Equals, plain)

	// non string payloads are passed through
	odd := dataError{data: 42}
	c.Assert(revertError(odd), Equals, error(odd))
}

////////////////////////////////////////////////////////////////////////////////////////
// Deployment
////////////////////////////////////////////////////////////////////////////////////////

type DeploymentSuite struct{}

var _ = Suite(&DeploymentSuite{})

func (s *DeploymentSuite) TestABIsParsed(c *C) {
	for name, a := range map[string]abi.ABI{
		"erc20":     erc20ABI,
		"sett":      settABI,
		"strategy":  strategyABI,
		"guestlist": guestListABI,
		"router":    routerABI,
		"pair":      pairABI,
		"digg":      diggABI,
	} {
		c.Check(len(a.Methods) > 0, Equals, true, Commentf("abi %s", name))
	}
	_, ok := settABI.Methods["getPricePerFullShare"]
	c.Check(ok, Equals, true)
	_, ok = strategyABI.Methods["isTendable"]
	c.Check(ok, Equals, true)
}

func (s *DeploymentSuite) TestLoadSystem(c *C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "deploy.json")
	raw := `{
	  "deployer": "0xDA25ee226E534d868f0Dd8a459536b03fEE9079b",
	  "sett_system": {
	    "vaults": {"native.badger": "0x19D97D8fA813EE2f51aD4B4e04EA08bAf4DFfC28"},
	    "strategies": {"native.badger": "0x75b8E21BD623012Efb3b69E1B562465A68944eE6"}
	  },
	  "routers": {"uniswap": "0x0000000000000000000000000000000000000abc"}
	}`
	c.Assert(os.WriteFile(path, []byte(raw), 0o600), IsNil)

	reg, err := registry.GetRegistry(common.ETHNetwork)
	c.Assert(err, IsNil)

	server := rpc.NewServer()
	client := NewClient(rpc.DialInProc(server), zerolog.Nop())
	defer client.Close()

	sys, err := LoadSystem(client, common.ETHNetwork, reg, path)
	c.Assert(err, IsNil)
	c.Check(sys.Deployer(), Equals, ecommon.HexToAddress("0xDA25ee226E534d868f0Dd8a459536b03fEE9079b"))

	sett, err := sys.Sett("native.badger")
	c.Assert(err, IsNil)
	c.Check(sett.Address(), Equals, ecommon.HexToAddress("0x19D97D8fA813EE2f51aD4B4e04EA08bAf4DFfC28"))

	_, err = sys.Sett("native.digg")
	c.Assert(err, NotNil)
	_, err = sys.Digg()
	c.Assert(errors.Is(err, types.ErrNoDigg), Equals, true)

	// deployment routers override the registry
	router, err := sys.Router("uniswap")
	c.Assert(err, IsNil)
	c.Check(router.Address(), Equals, ecommon.HexToAddress("0xabc"))

	sushi, err := sys.Router("sushiswap")
	c.Assert(err, IsNil)
	want, err := reg.Router("sushiswap")
	c.Assert(err, IsNil)
	c.Check(sushi.Address(), Equals, want.EVM())

	// missing deployer
	c.Assert(os.WriteFile(path, []byte(`{"sett_system": {}}`), 0o600), IsNil)
	_, err = ReadDeployment(path)
	c.Assert(err, NotNil)
}
