package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	EmptyNetwork = Network("")
	ETHNetwork   = Network("eth")
	BSCNetwork   = Network("bsc")
)

var AllNetworks = Networks{
	ETHNetwork,
	BSCNetwork,
}

// Network identifies the chain a Sett system is deployed on.
type Network string

// Networks represent a slice of Network
type Networks []Network

// NewNetwork parses a network name, case-insensitively.
func NewNetwork(network string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(network)))
	if err := n.Valid(); err != nil {
		return EmptyNetwork, err
	}
	return n, nil
}

// Valid returns an error when the network is not supported.
func (n Network) Valid() error {
	if n.IsEmpty() {
		return errors.New("network is empty")
	}
	if !AllNetworks.Has(n) {
		return fmt.Errorf("network %q is not supported", string(n))
	}
	return nil
}

func (n Network) IsEmpty() bool {
	return strings.TrimSpace(string(n)) == ""
}

func (n Network) Equals(n2 Network) bool {
	return strings.EqualFold(n.String(), n2.String())
}

func (n Network) String() string {
	return string(n)
}

// Has check whether network c is in the list
func (ns Networks) Has(n Network) bool {
	for _, network := range ns {
		if network.Equals(n) {
			return true
		}
	}
	return false
}
