package pool

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Pool distributes one funding batch across a fixed number of shares, one
// share per claimant. The ledger is owned by the Pool; callers see it only
// through Claim and the read accessors.
type Pool struct {
	claimMu sync.Mutex   // serializes claims
	stalled *ClaimRecord // payout outcome unknown; guarded by claimMu

	mu      sync.RWMutex // guards state and claimed
	state   State
	claimed map[Identity]ClaimRecord

	store    Store
	entropy  Entropy
	payer    Payer
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Pool.
type Option func(*Pool)

// WithPayer sets the payout executor's release step. Required.
func WithPayer(p Payer) Option { return func(pl *Pool) { pl.payer = p } }

// WithEntropy sets the random-mode entropy source. Defaults to a
// HashEntropy without a block source.
func WithEntropy(e Entropy) Option { return func(pl *Pool) { pl.entropy = e } }

// WithNotifier sets the claim-completed listener.
func WithNotifier(n Notifier) Option { return func(pl *Pool) { pl.notifier = n } }

// WithLogger sets the structured logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option { return func(pl *Pool) { pl.logger = l } }

// WithClock overrides the time source used for claim records and events.
func WithClock(now func() time.Time) Option { return func(pl *Pool) { pl.now = now } }

// Create validates params, persists a new pool and returns it. Funding and
// share count are written together; there is no later top-up.
func Create(store Store, params Params, opts ...Option) (*Pool, error) {
	if params.ShareCount == 0 {
		return nil, fmt.Errorf("%w: share count must be positive", ErrInvalidConfig)
	}
	if params.Funding == 0 {
		return nil, fmt.Errorf("%w: funding must be positive", ErrInvalidConfig)
	}

	mode := ModeRandom
	if params.EqualSplit {
		mode = ModeEqual
	}
	state := State{
		ID:              params.ID,
		Owner:           params.Owner,
		Mode:            mode,
		FundingTotal:    params.Funding,
		RemainingTotal:  params.Funding,
		ShareCount:      params.ShareCount,
		SharesRemaining: params.ShareCount,
	}

	p, err := newPool(store, state, nil, opts)
	if err != nil {
		return nil, err
	}
	if err := store.CreatePool(&state); err != nil {
		return nil, err
	}
	p.logger.Info("pool created",
		"pool", state.ID.String(),
		"mode", state.Mode.String(),
		"funding", state.FundingTotal,
		"shares", state.ShareCount,
	)
	return p, nil
}

// Open loads a stored pool and audits its ledger before returning it.
func Open(store Store, id PoolID, opts ...Option) (*Pool, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	state, claims, err := store.LoadPool(id)
	if err != nil {
		return nil, err
	}
	if err := ValidateLedger(state, claims); err != nil {
		return nil, fmt.Errorf("pool %s: %w", id, err)
	}
	return newPool(store, *state, claims, opts)
}

func newPool(store Store, state State, claims []ClaimRecord, opts []Option) (*Pool, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilParam)
	}
	p := &Pool{
		state:   state,
		claimed: make(map[Identity]ClaimRecord, len(claims)),
		store:   store,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.payer == nil {
		return nil, fmt.Errorf("%w: payer", ErrNilParam)
	}
	if p.entropy == nil {
		p.entropy = NewHashEntropy(nil)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.now == nil {
		p.now = time.Now
	}
	for _, rec := range claims {
		p.claimed[rec.Claimant] = rec
	}
	return p, nil
}

// ID returns the pool ID.
func (p *Pool) ID() PoolID { return p.state.ID }

// Owner returns the creator identity.
func (p *Pool) Owner() Identity { return p.state.Owner }

// Mode returns the split mode.
func (p *Pool) Mode() Mode { return p.state.Mode }

// FundingTotal returns the amount deposited at creation.
func (p *Pool) FundingTotal() uint64 { return p.state.FundingTotal }

// ShareCount returns the number of shares available at creation.
func (p *Pool) ShareCount() uint64 { return p.state.ShareCount }

// RemainingTotal returns the funds not yet paid out.
func (p *Pool) RemainingTotal() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.RemainingTotal
}

// SharesRemaining returns the number of unclaimed shares.
func (p *Pool) SharesRemaining() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.SharesRemaining
}

// HasClaimed reports whether id is in the claimed set. A claimant whose
// payout is being released already reports true.
func (p *Pool) HasClaimed(id Identity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.claimed[id]
	return ok
}

// Snapshot returns a copy of the pool state.
func (p *Pool) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Claims returns the claim records ordered by Seq.
func (p *Pool) Claims() []ClaimRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	claims := make([]ClaimRecord, 0, len(p.claimed))
	for _, rec := range p.claimed {
		claims = append(claims, rec)
	}
	sortClaims(claims)
	return claims
}
