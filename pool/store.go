package pool

import (
	"fmt"
	"sort"
	"sync"
)

// Store persists pool ledgers. Every method is atomic: either all of its
// writes are committed or none are.
type Store interface {
	// CreatePool stores the initial state of a new pool.
	CreatePool(state *State) error

	// LoadPool returns the pool state and its claim records ordered by Seq.
	LoadPool(id PoolID) (*State, []ClaimRecord, error)

	// MarkClaimed inserts a pending claim record. Returns ErrAlreadyClaimed
	// if the claimant already has a record.
	MarkClaimed(id PoolID, rec *ClaimRecord) error

	// RevertClaim removes a pending claim record whose payout was never released.
	RevertClaim(id PoolID, claimant Identity) error

	// SettleClaim overwrites the claim record and the pool state together.
	SettleClaim(id PoolID, rec *ClaimRecord, state *State) error
}

// MemStore is an in-memory implementation of Store for testing.
type MemStore struct {
	mu    sync.RWMutex
	pools map[PoolID]*memPool
}

type memPool struct {
	state  State
	claims map[Identity]ClaimRecord
}

// NewMemStore creates a new in-memory ledger store.
func NewMemStore() *MemStore {
	return &MemStore{pools: make(map[PoolID]*memPool)}
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// CreatePool stores the initial state of a new pool.
func (s *MemStore) CreatePool(state *State) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pools[state.ID]; exists {
		return fmt.Errorf("%w: %s", ErrPoolExists, state.ID)
	}
	s.pools[state.ID] = &memPool{state: *state, claims: make(map[Identity]ClaimRecord)}
	return nil
}

// LoadPool returns the pool state and its claim records ordered by Seq.
func (s *MemStore) LoadPool(id PoolID) (*State, []ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	state := p.state
	claims := make([]ClaimRecord, 0, len(p.claims))
	for _, rec := range p.claims {
		claims = append(claims, rec)
	}
	sortClaims(claims)
	return &state, claims, nil
}

// MarkClaimed inserts a pending claim record.
func (s *MemStore) MarkClaimed(id PoolID, rec *ClaimRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: claim record", ErrNilParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	if _, exists := p.claims[rec.Claimant]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyClaimed, rec.Claimant)
	}
	p.claims[rec.Claimant] = *rec
	return nil
}

// RevertClaim removes a pending claim record.
func (s *MemStore) RevertClaim(id PoolID, claimant Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	rec, ok := p.claims[claimant]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClaimNotFound, claimant)
	}
	if rec.Status != ClaimPending {
		return fmt.Errorf("%w: cannot revert %s claim of %s", ErrInvalidClaimData, rec.Status, claimant)
	}
	delete(p.claims, claimant)
	return nil
}

// SettleClaim overwrites the claim record and the pool state together.
func (s *MemStore) SettleClaim(id PoolID, rec *ClaimRecord, state *State) error {
	if rec == nil || state == nil {
		return fmt.Errorf("%w: claim record and state", ErrNilParam)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pools[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	if _, exists := p.claims[rec.Claimant]; !exists {
		return fmt.Errorf("%w: %s", ErrClaimNotFound, rec.Claimant)
	}
	p.claims[rec.Claimant] = *rec
	p.state = *state
	return nil
}

func sortClaims(claims []ClaimRecord) {
	sort.Slice(claims, func(i, j int) bool { return claims[i].Seq < claims[j].Seq })
}
