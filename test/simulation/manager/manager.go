package manager

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gitlab.com/badgerdao/settsim/constants"
	"gitlab.com/badgerdao/settsim/metrics"
	"gitlab.com/badgerdao/settsim/test/simulation/actors"
	"gitlab.com/badgerdao/settsim/test/simulation/pkg/snapshot"
	. "gitlab.com/badgerdao/settsim/test/simulation/pkg/types"
	"gitlab.com/badgerdao/settsim/test/simulation/provisioners"
)

var (
	// ErrInvalidState is returned when a step is called out of order.
	ErrInvalidState = errors.New("invalid simulation state")

	// ErrInsufficientAccounts is returned when the account pool holds too few EOAs.
	ErrInsufficientAccounts = errors.New("insufficient accounts")
)

////////////////////////////////////////////////////////////////////////////////////////
// State
////////////////////////////////////////////////////////////////////////////////////////

type State int

const (
	StateIdle State = iota
	StateProvisioned
	StateRandomized
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateProvisioned:
		return "PROVISIONED"
	case StateRandomized:
		return "RANDOMIZED"
	case StateRunning:
		return "RUNNING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

////////////////////////////////////////////////////////////////////////////////////////
// Config
////////////////////////////////////////////////////////////////////////////////////////

type Config struct {
	System System
	SettID string

	// Seed of the run. Zero uses the current unix time.
	Seed int64

	// Snapshot verifies vault operations. When nil a snapshot manager is built for the
	// vault, rebase-aware when the want is DIGG.
	Snapshot SnapshotManager

	Log     zerolog.Logger
	Metrics *metrics.Metrics
}

////////////////////////////////////////////////////////////////////////////////////////
// Manager
////////////////////////////////////////////////////////////////////////////////////////

// Manager provisions users for one vault, randomizes a sequence of actions from its
// actors and runs them in order. Every random draw comes from a single source seeded
// with the run seed, so a seed reproduces the run.
type Manager struct {
	id     uuid.UUID
	settID string
	seed   int64
	rng    *rand.Rand
	log    zerolog.Logger
	m      *metrics.Metrics

	system   System
	sett     Sett
	strategy Strategy
	want     Token
	snap     SnapshotManager

	provisioner provisioners.Provisioner
	pool        []ecommon.Address

	state   State
	users   []*Account
	actors  []Actor
	actions []Action
}

var _ Simulation = &Manager{}

func New(ctx context.Context, cfg Config) (*Manager, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().Unix()
	}

	id := uuid.New()
	log := cfg.Log.With().
		Str("run_id", id.String()).
		Str("sett", cfg.SettID).
		Int64("seed", seed).
		Logger()
	log.Info().Msg("simulation seed")

	m := &Manager{
		id:     id,
		settID: cfg.SettID,
		seed:   seed,
		rng:    rand.New(rand.NewSource(seed)),
		log:    log,
		m:      cfg.Metrics,
		system: cfg.System,
	}

	var err error
	if m.sett, err = m.system.Sett(cfg.SettID); err != nil {
		return nil, fmt.Errorf("fail to get sett: %w", err)
	}
	if m.strategy, err = m.system.Strategy(cfg.SettID); err != nil {
		return nil, fmt.Errorf("fail to get strategy: %w", err)
	}
	if m.want, err = m.system.StrategyWant(ctx, cfg.SettID); err != nil {
		return nil, fmt.Errorf("fail to get want: %w", err)
	}

	// unknown vaults fail before any call that changes the test node
	if m.provisioner, err = provisioners.New(cfg.SettID, m); err != nil {
		return nil, err
	}

	m.snap = cfg.Snapshot
	if m.snap == nil {
		if m.snap, err = m.defaultSnapshot(); err != nil {
			return nil, err
		}
	}

	// keepers send earn, harvest and tend
	settKeeper, err := m.sett.Keeper(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to get sett keeper: %w", err)
	}
	strategyKeeper, err := m.strategy.Keeper(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to get strategy keeper: %w", err)
	}
	chain := m.system.Chain()
	for _, keeper := range []ecommon.Address{settKeeper, strategyKeeper} {
		if err = chain.Impersonate(ctx, keeper); err != nil {
			return nil, fmt.Errorf("fail to impersonate keeper %s: %w", keeper.Hex(), err)
		}
	}

	accounts, err := chain.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fail to get accounts: %w", err)
	}
	if len(accounts) > constants.AccountPoolOffset {
		m.pool = accounts[constants.AccountPoolOffset:]
	}

	m.actors = []Actor{
		actors.NewSettKeeperActor(m, settKeeper),
		actors.NewStrategyKeeperActor(m, strategyKeeper),
		actors.NewChainActor(m),
	}
	if rebaser, ok := m.snap.(RebaseSnapshotManager); ok {
		m.actors = append(m.actors, actors.NewDiggActor(m, rebaser, m.system.Deployer()))
	}

	m.m.SetState(int(StateIdle))
	return m, nil
}

func (m *Manager) defaultSnapshot() (SnapshotManager, error) {
	digg, err := m.system.Digg()
	switch {
	case err == nil && digg.Address() == m.want.Address():
		return snapshot.NewDigg(m.sett, m.strategy, m.want, digg, m.log), nil
	case err == nil, errors.Is(err, ErrNoDigg):
		return snapshot.New(m.sett, m.strategy, m.want, m.log), nil
	default:
		return nil, fmt.Errorf("fail to get digg: %w", err)
	}
}

// ------------------------------ lifecycle ------------------------------

// Provision draws the users from the account pool, funds them and adds a user actor
// for each.
func (m *Manager) Provision(ctx context.Context) error {
	if m.state != StateIdle {
		return fmt.Errorf("provision in %s: %w", m.state, ErrInvalidState)
	}

	users, err := m.drawUsers(ctx)
	if err != nil {
		return err
	}
	if err = m.provisioner.DistributeTokens(ctx, users); err != nil {
		return fmt.Errorf("fail to distribute tokens: %w", err)
	}
	if err = m.provisioner.DistributeWant(ctx, users); err != nil {
		return fmt.Errorf("fail to distribute want: %w", err)
	}

	m.users = users
	for _, user := range users {
		m.actors = append(m.actors, actors.NewUserActor(m, user))
	}
	m.setState(StateProvisioned)
	return nil
}

func (m *Manager) drawUsers(ctx context.Context) ([]*Account, error) {
	chain := m.system.Chain()
	tried := make(map[int]bool, len(m.pool))
	users := make([]*Account, 0, constants.NumUsers)

	for len(users) < constants.NumUsers {
		if len(tried) == len(m.pool) {
			return nil, fmt.Errorf("found %d of %d users in %d accounts: %w",
				len(users), constants.NumUsers, len(m.pool), ErrInsufficientAccounts)
		}
		idx := m.rng.Intn(len(m.pool))
		if tried[idx] {
			continue
		}
		tried[idx] = true

		addr := m.pool[idx]
		code, err := chain.CodeAt(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("fail to get code at %s: %w", addr.Hex(), err)
		}
		if len(code) > 0 {
			m.log.Debug().Stringer("address", addr).Msg("skipping contract account")
			continue
		}
		users = append(users, NewAccount(addr, idx+constants.AccountPoolOffset))
	}
	return users, nil
}

// Randomize asks randomly chosen actors for n actions.
func (m *Manager) Randomize(ctx context.Context, n int) error {
	if m.state != StateProvisioned {
		return fmt.Errorf("randomize in %s: %w", m.state, ErrInvalidState)
	}
	if n < 0 {
		return fmt.Errorf("negative number of actions: %d", n)
	}

	// actions are kept only when all n were generated
	generated := make([]Action, 0, n)
	for i := 0; i < n; i++ {
		actor := m.actors[m.rng.Intn(len(m.actors))]
		action, err := actor.GenerateAction(ctx)
		if err != nil {
			return fmt.Errorf("actor %s failed to generate action %d: %w", actor.Name(), i, err)
		}
		generated = append(generated, action)
		m.m.ActionGenerated(actor.Name())
		m.log.Debug().Int("index", i).Str("actor", actor.Name()).Stringer("action", action).Msg("generated")
	}

	m.actions = generated
	m.setState(StateRandomized)
	return nil
}

// Run executes the actions in generation order and stops at the first failure.
func (m *Manager) Run(ctx context.Context) error {
	if m.state != StateRandomized {
		return fmt.Errorf("run in %s: %w", m.state, ErrInvalidState)
	}
	m.setState(StateRunning)

	for i, action := range m.actions {
		err := action.Run(ctx)
		m.m.ActionExecuted(action.Name(), err == nil)
		if err != nil {
			m.log.Error().Err(err).Int("index", i).Stringer("action", action).Msg("action failed")
			return fmt.Errorf("action %d %s failed (seed %d): %w", i, action, m.seed, err)
		}
	}

	m.log.Info().Int("actions", len(m.actions)).Msg("simulation complete")
	return nil
}

func (m *Manager) setState(state State) {
	m.log.Info().Stringer("from", m.state).Stringer("to", state).Msg("state transition")
	m.state = state
	m.m.SetState(int(state))
}

// ------------------------------ accessors ------------------------------

func (m *Manager) ID() uuid.UUID      { return m.id }
func (m *Manager) Seed() int64        { return m.seed }
func (m *Manager) State() State       { return m.state }
func (m *Manager) Users() []*Account  { return append([]*Account(nil), m.users...) }
func (m *Manager) Actors() []Actor    { return append([]Actor(nil), m.actors...) }
func (m *Manager) Actions() []Action  { return append([]Action(nil), m.actions...) }
func (m *Manager) SettID() string     { return m.settID }
func (m *Manager) System() System     { return m.system }
func (m *Manager) Sett() Sett         { return m.sett }
func (m *Manager) Strategy() Strategy { return m.strategy }
func (m *Manager) Want() Token        { return m.want }

func (m *Manager) Snapshot() SnapshotManager { return m.snap }
func (m *Manager) Rand() *rand.Rand          { return m.rng }
func (m *Manager) Log() zerolog.Logger       { return m.log }
