package types

import (
	"fmt"

	ecommon "github.com/ethereum/go-ethereum/common"
)

////////////////////////////////////////////////////////////////////////////////////////
// Account
////////////////////////////////////////////////////////////////////////////////////////

// Account is a funded test network account acting as a simulated user.
type Account struct {
	// Address is the externally owned address of the account.
	Address ecommon.Address

	// Index is the position of the account in the test network account list.
	Index int
}

// NewAccount returns an account for the test network account at index.
func NewAccount(address ecommon.Address, index int) *Account {
	return &Account{
		Address: address,
		Index:   index,
	}
}

// Name returns a short, stable label for logs.
func (a *Account) Name() string {
	return fmt.Sprintf("user-%d", a.Index)
}

// String implements fmt.Stringer.
func (a *Account) String() string {
	return fmt.Sprintf("%s(%s)", a.Name(), a.Address.Hex())
}

// Addresses returns the addresses of the accounts, in order.
func Addresses(accounts []*Account) []ecommon.Address {
	out := make([]ecommon.Address, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, account.Address)
	}
	return out
}
