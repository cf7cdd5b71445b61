package registrydata

import (
	_ "embed"
)

//go:embed eth_mainnet.json
var ETHRegistryRaw []byte

//go:embed bsc_mainnet.json
var BSCRegistryRaw []byte
