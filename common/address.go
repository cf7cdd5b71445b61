package common

import (
	"fmt"
	"strings"

	eth "github.com/ethereum/go-ethereum/common"
)

// Address is a lower-cased, 0x-prefixed EVM address as used for map keys and subgraph
// entity ids.
type Address string

const (
	NoAddress   = Address("")
	ZeroAddress = Address("0x0000000000000000000000000000000000000000")
)

// NewAddress validates and normalizes a hex address.
func NewAddress(address string) (Address, error) {
	if !eth.IsHexAddress(address) {
		return NoAddress, fmt.Errorf("address format not supported: %s", address)
	}
	return Address(strings.ToLower(eth.HexToAddress(address).Hex())), nil
}

// MustNewAddress is NewAddress for static values and panics on invalid input.
func MustNewAddress(address string) Address {
	addr, err := NewAddress(address)
	if err != nil {
		panic(err)
	}
	return addr
}

// AddressFromEVM converts a go-ethereum address.
func AddressFromEVM(addr eth.Address) Address {
	return Address(strings.ToLower(addr.Hex()))
}

// AccountFromID extracts the account part of a composite subgraph entity id of the
// form "<account>-<suffix>".
func AccountFromID(id string) Address {
	account, _, _ := strings.Cut(id, "-")
	return Address(strings.ToLower(account))
}

func (addr Address) EVM() eth.Address {
	return eth.HexToAddress(addr.String())
}

func (addr Address) Equals(addr2 Address) bool {
	return strings.EqualFold(addr.String(), addr2.String())
}

func (addr Address) IsEmpty() bool {
	return strings.TrimSpace(addr.String()) == ""
}

// IsZero is true for the empty address and the all-zero EVM address.
func (addr Address) IsZero() bool {
	return addr.IsEmpty() || addr.Equals(ZeroAddress)
}

func (addr Address) String() string {
	return string(addr)
}
