package constants

import "time"

// Simulation sizing.
const (
	// NumUsers is the number of funded user accounts provisioned for every run.
	NumUsers = 4

	// AccountPoolOffset skips the test network accounts reserved for deployment roles
	// (deployer, guardian, keeper, ...). Users are sampled from the accounts after it.
	AccountPoolOffset = 9

	// DefaultNumActions is the number of actions randomized when none is configured.
	DefaultNumActions = 10
)

// Fixed point and ratio helpers.
const (
	// PPFSDecimals is the precision of price-per-full-share and raw share amounts.
	PPFSDecimals = 18

	// DiggDecimals is the precision of DIGG fragments.
	DiggDecimals = 9

	// MaxBasisPoints is 100% expressed in basis points.
	MaxBasisPoints = 10_000

	// DefaultWhalePercentage is the share of a whale balance distributed to users when
	// the registry does not specify one.
	DefaultWhalePercentage = 50

	// DecimalPrecision is the number of decimal places kept for intermediate decimal
	// division results.
	DecimalPrecision = 20
)

// Chain actor time skips.
const (
	MinChainSkip = time.Hour
	MaxChainSkip = 3 * 24 * time.Hour
)

// Digg rebase reports are drawn within this many basis points of the 1e18 target.
const RebaseReportSpreadBasisPoints = 1_000

// Subgraph paging.
const (
	// SubgraphPageSize is the maximum number of entities requested per page.
	SubgraphPageSize = 1000
)
