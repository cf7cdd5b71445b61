package common

import (
	"testing"

	eth "github.com/ethereum/go-ethereum/common"
	. "gopkg.in/check.v1"
)

func TestPackage(t *testing.T) { TestingT(t) }

type AddressSuite struct{}

var _ = Suite(&AddressSuite{})

func (s *AddressSuite) TestNewAddress(c *C) {
	addr, err := NewAddress("0x7A56D65254705B4DEF63C68488C0182968C452CE")
	c.Assert(err, IsNil)
	c.Check(addr.String(), Equals, "0x7a56d65254705b4def63c68488c0182968c452ce")

	_, err = NewAddress("not-an-address")
	c.Assert(err, NotNil)

	_, err = NewAddress("")
	c.Assert(err, NotNil)
}

func (s *AddressSuite) TestEqualsAndZero(c *C) {
	a := Address("0xABCDEF0000000000000000000000000000000001")
	b := Address("0xabcdef0000000000000000000000000000000001")
	c.Check(a.Equals(b), Equals, true)
	c.Check(a.IsZero(), Equals, false)
	c.Check(ZeroAddress.IsZero(), Equals, true)
	c.Check(NoAddress.IsZero(), Equals, true)
}

func (s *AddressSuite) TestAccountFromID(c *C) {
	c.Check(AccountFromID("0xAbC-0xdef").String(), Equals, "0xabc")
	c.Check(AccountFromID("0x7a56d65254705b4def63c68488c0182968c452ce-12").String(),
		Equals, "0x7a56d65254705b4def63c68488c0182968c452ce")
	c.Check(AccountFromID("0xonly").String(), Equals, "0xonly")
}

func (s *AddressSuite) TestEVMRoundTrip(c *C) {
	evm := eth.HexToAddress("0x3a494d79aa78118795daad8aeff5825c6c8df7f1")
	addr := AddressFromEVM(evm)
	c.Check(addr.String(), Equals, "0x3a494d79aa78118795daad8aeff5825c6c8df7f1")
	c.Check(addr.EVM(), Equals, evm)
}

type NetworkSuite struct{}

var _ = Suite(&NetworkSuite{})

func (s *NetworkSuite) TestNewNetwork(c *C) {
	n, err := NewNetwork(" ETH ")
	c.Assert(err, IsNil)
	c.Check(n, Equals, ETHNetwork)

	n, err = NewNetwork("bsc")
	c.Assert(err, IsNil)
	c.Check(n, Equals, BSCNetwork)

	_, err = NewNetwork("")
	c.Assert(err, NotNil)
	_, err = NewNetwork("polygon")
	c.Assert(err, NotNil)
}
