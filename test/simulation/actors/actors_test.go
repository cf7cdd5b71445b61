package actors

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	. "gopkg.in/check.v1"

	"gitlab.com/badgerdao/settsim/constants"
	. "gitlab.com/badgerdao/settsim/test/simulation/actors/common"
	"gitlab.com/badgerdao/settsim/test/simulation/pkg/mock"
	"gitlab.com/badgerdao/settsim/test/simulation/pkg/snapshot"
	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
)

func Test(t *testing.T) { TestingT(t) }

////////////////////////////////////////////////////////////////////////////////////////
// Simulation
////////////////////////////////////////////////////////////////////////////////////////

type testSim struct {
	id   string
	f    *mock.Fixture
	snap SnapshotManager
	rng  *rand.Rand
}

func newTestSim(c *C, cfg mock.FixtureConfig, seed int64) *testSim {
	f, err := mock.NewFixture(cfg)
	c.Assert(err, IsNil)
	ctx := context.Background()
	c.Assert(f.Ledger.Impersonate(ctx, f.Keeper), IsNil)
	c.Assert(f.Ledger.Impersonate(ctx, f.StrategyKeeper), IsNil)

	var snap SnapshotManager = snapshot.New(f.Sett, f.Strategy, f.Want, zerolog.Nop())
	if f.Digg != nil {
		snap = snapshot.NewDigg(f.Sett, f.Strategy, f.Want, f.Digg, zerolog.Nop())
	}
	return &testSim{id: cfg.SettID, f: f, snap: snap, rng: rand.New(rand.NewSource(seed))}
}

func (s *testSim) SettID() string            { return s.id }
func (s *testSim) System() System            { return s.f.System }
func (s *testSim) Sett() Sett                { return s.f.Sett }
func (s *testSim) Strategy() Strategy        { return s.f.Strategy }
func (s *testSim) Want() Token               { return s.f.Want }
func (s *testSim) Snapshot() SnapshotManager { return s.snap }
func (s *testSim) Rand() *rand.Rand          { return s.rng }
func (s *testSim) Log() zerolog.Logger       { return zerolog.Nop() }

// fund gives a new account want, as a provisioner would.
func (s *testSim) fund(c *C, amount int64) *Account {
	addr := s.f.Ledger.AddAccounts(1)[0]
	s.f.Ledger.Mint(s.f.Want.Address(), addr, big.NewInt(amount))
	return NewAccount(addr, 42)
}

////////////////////////////////////////////////////////////////////////////////////////
// Tests
////////////////////////////////////////////////////////////////////////////////////////

type ActorsSuite struct {
	ctx context.Context
}

var _ = Suite(&ActorsSuite{ctx: context.Background()})

func (s *ActorsSuite) TestUserActorNeverWithdrawsWithoutShares(c *C) {
	sim := newTestSim(c, mock.FixtureConfig{SettID: "native.badger", Want: "badger"}, 7)
	user := sim.fund(c, 1_000_000_000)
	actor := NewUserActor(sim, user)
	c.Assert(actor.Name(), Equals, "user-42")
	c.Assert(actor.User(), Equals, user)

	// the first proposal for a fresh user is always a deposit
	first, err := actor.GenerateAction(s.ctx)
	c.Assert(err, IsNil)
	c.Assert(first.Name(), Equals, "deposit")
	c.Assert(first.Run(s.ctx), IsNil)

	deposits, withdrawals := 1, 0
	for i := 0; i < 60; i++ {
		action, err := actor.GenerateAction(s.ctx)
		c.Assert(err, IsNil)
		switch action.Name() {
		case "deposit":
			deposits++
		case "withdraw":
			withdrawals++
		default:
			c.Fatalf("unexpected action %s", action)
		}
		c.Assert(action.Run(s.ctx), IsNil, Commentf("action %d: %s", i, action))
	}
	c.Check(deposits > 1, Equals, true)
	c.Check(withdrawals > 0, Equals, true)
}

func (s *ActorsSuite) TestUserActorFullWithdrawClearsShares(c *C) {
	sim := newTestSim(c, mock.FixtureConfig{SettID: "native.badger", Want: "badger"}, 1)
	actor := NewUserActor(sim, sim.fund(c, 100))

	actor.hasShares, actor.hasWant = true, false
	action, err := actor.GenerateAction(s.ctx)
	c.Assert(err, IsNil)
	c.Assert(action.Name(), Equals, "withdraw")
	c.Assert(actor.hasWant, Equals, true)
}

func (s *ActorsSuite) TestActionsRunOnce(c *C) {
	sim := newTestSim(c, mock.FixtureConfig{SettID: "native.badger", Want: "badger"}, 1)
	action := NewDepositAction(sim, sim.fund(c, 100), 5000)
	c.Assert(action.String(), Equals, "deposit(user-42, 5000bps)")
	c.Assert(action.Run(s.ctx), IsNil)

	err := action.Run(s.ctx)
	c.Assert(errors.Is(err, ErrActionAlreadyRun), Equals, true)
}

func (s *ActorsSuite) TestKeepers(c *C) {
	sim := newTestSim(c, mock.FixtureConfig{SettID: "native.badger", Want: "badger"}, 3)

	earn, err := NewSettKeeperActor(sim, sim.f.Keeper).GenerateAction(s.ctx)
	c.Assert(err, IsNil)
	c.Assert(earn.Name(), Equals, "earn")
	c.Assert(earn.Run(s.ctx), IsNil)

	strategyKeeper := NewStrategyKeeperActor(sim, sim.f.StrategyKeeper)
	for i := 0; i < 20; i++ {
		action, err := strategyKeeper.GenerateAction(s.ctx)
		c.Assert(err, IsNil)
		c.Assert(action.Name(), Equals, "harvest")
	}

	// keeper actions sent from the wrong account revert
	bad := NewHarvestAction(sim, sim.f.Keeper)
	c.Assert(bad.Run(s.ctx), ErrorMatches, ".*onlyAuthorizedActors.*")
}

func (s *ActorsSuite) TestTendableStrategy(c *C) {
	sim := newTestSim(c, mock.FixtureConfig{SettID: "native.badger", Want: "badger", Tendable: true}, 5)
	actor := NewStrategyKeeperActor(sim, sim.f.StrategyKeeper)

	seen := map[string]int{}
	for i := 0; i < 40; i++ {
		action, err := actor.GenerateAction(s.ctx)
		c.Assert(err, IsNil)
		c.Assert(action.Run(s.ctx), IsNil)
		seen[action.Name()]++
	}
	c.Check(seen["tend"] > 0, Equals, true)
	c.Check(seen["harvest"] > 0, Equals, true)
	c.Check(sim.f.Strategy.Tends(), Equals, seen["tend"])
}

func (s *ActorsSuite) TestChainActor(c *C) {
	sim := newTestSim(c, mock.FixtureConfig{SettID: "native.badger", Want: "badger"}, 9)
	actor := NewChainActor(sim)

	var total time.Duration
	for i := 0; i < 25; i++ {
		action, err := actor.GenerateAction(s.ctx)
		c.Assert(err, IsNil)
		sleep := action.(*ChainSleepAction)
		c.Assert(sleep.delta >= constants.MinChainSkip, Equals, true)
		c.Assert(sleep.delta <= constants.MaxChainSkip, Equals, true)
		c.Assert(sleep.delta%time.Second, Equals, time.Duration(0))
		c.Assert(strings.HasPrefix(action.String(), "sleep("), Equals, true)
		c.Assert(action.Run(s.ctx), IsNil)
		total += sleep.delta
	}
	c.Check(sim.f.Ledger.Elapsed(), Equals, total)
	height, err := sim.f.Ledger.BlockNumber(s.ctx)
	c.Assert(err, IsNil)
	c.Check(height, Equals, uint64(25))
}

func (s *ActorsSuite) TestDiggActor(c *C) {
	sim := newTestSim(c, mock.FixtureConfig{SettID: "native.digg", Want: "digg", Digg: true}, 11)
	rebaser, ok := sim.snap.(RebaseSnapshotManager)
	c.Assert(ok, Equals, true)
	actor := NewDiggActor(sim, rebaser, sim.f.System.Deployer())

	low := big.NewInt(900_000_000_000_000_000)
	high := big.NewInt(1_100_000_000_000_000_000)
	for i := 0; i < 10; i++ {
		action, err := actor.GenerateAction(s.ctx)
		c.Assert(err, IsNil)
		rebase := action.(*RebaseAction)
		c.Assert(rebase.report.Cmp(low) >= 0, Equals, true)
		c.Assert(rebase.report.Cmp(high) <= 0, Equals, true)
		c.Assert(action.Run(s.ctx), IsNil)
	}
	c.Check(sim.f.Digg.Rebases(), Equals, 10)
}

type HelpersSuite struct{}

var _ = Suite(&HelpersSuite{})

func (s *HelpersSuite) TestScaleBasisPoints(c *C) {
	c.Check(ScaleBasisPoints(big.NewInt(10_000), 2_500).Int64(), Equals, int64(2_500))
	c.Check(ScaleBasisPoints(big.NewInt(3), 1).Int64(), Equals, int64(1))
	c.Check(ScaleBasisPoints(big.NewInt(0), 10_000).Int64(), Equals, int64(0))
	c.Check(ScaleBasisPoints(big.NewInt(7), 10_000).Int64(), Equals, int64(7))
}

func (s *HelpersSuite) TestDrawsAreReproducible(c *C) {
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		bps := DrawBasisPoints(a)
		c.Assert(bps, Equals, DrawBasisPoints(b))
		c.Assert(bps >= 1 && bps <= constants.MaxBasisPoints, Equals, true)
	}
}
