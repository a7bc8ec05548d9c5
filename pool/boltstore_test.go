package pool

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempBoltStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger", "pool.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func testState(seed byte) *State {
	return &State{
		ID: makePoolID(seed), Owner: makeIdentity(seed), Mode: ModeEqual,
		FundingTotal: 1000, RemainingTotal: 1000, ShareCount: 4, SharesRemaining: 4,
	}
}

// ---------------------------------------------------------------------------
// Store contract, run against both implementations
// ---------------------------------------------------------------------------

func storeImpls(t *testing.T) map[string]Store {
	bolt, _ := tempBoltStore(t)
	return map[string]Store{
		"mem":  NewMemStore(),
		"bolt": bolt,
	}
}

func TestStore_CreateAndLoad(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			state := testState(0x01)
			require.NoError(t, store.CreatePool(state))

			got, claims, err := store.LoadPool(state.ID)
			require.NoError(t, err)
			assert.Equal(t, state, got)
			assert.Empty(t, claims)

			assert.ErrorIs(t, store.CreatePool(state), ErrPoolExists)

			_, _, err = store.LoadPool(makePoolID(0x99))
			assert.ErrorIs(t, err, ErrPoolNotFound)
		})
	}
}

func TestStore_ClaimLifecycle(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			state := testState(0x02)
			require.NoError(t, store.CreatePool(state))

			rec := &ClaimRecord{Claimant: makeIdentity(0xA1), Amount: 250, Seq: 1, Status: ClaimPending}
			require.NoError(t, store.MarkClaimed(state.ID, rec))
			assert.ErrorIs(t, store.MarkClaimed(state.ID, rec), ErrAlreadyClaimed)

			rec.Status = ClaimSettled
			next := *state
			next.RemainingTotal -= rec.Amount
			next.SharesRemaining--
			require.NoError(t, store.SettleClaim(state.ID, rec, &next))

			got, claims, err := store.LoadPool(state.ID)
			require.NoError(t, err)
			assert.Equal(t, &next, got)
			require.Len(t, claims, 1)
			assert.Equal(t, *rec, claims[0])
			assert.NoError(t, ValidateLedger(got, claims))

			// Settled claims are permanent.
			assert.ErrorIs(t, store.RevertClaim(state.ID, rec.Claimant), ErrInvalidClaimData)
		})
	}
}

func TestStore_RevertPending(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			state := testState(0x03)
			require.NoError(t, store.CreatePool(state))

			claimant := makeIdentity(0xB2)
			require.NoError(t, store.MarkClaimed(state.ID, &ClaimRecord{Claimant: claimant, Seq: 1, Status: ClaimPending}))
			require.NoError(t, store.RevertClaim(state.ID, claimant))

			_, claims, err := store.LoadPool(state.ID)
			require.NoError(t, err)
			assert.Empty(t, claims)

			assert.ErrorIs(t, store.RevertClaim(state.ID, claimant), ErrClaimNotFound)
		})
	}
}

func TestStore_SettleUnknownClaim(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			state := testState(0x04)
			require.NoError(t, store.CreatePool(state))

			rec := &ClaimRecord{Claimant: makeIdentity(0xC3), Seq: 1, Status: ClaimSettled}
			assert.ErrorIs(t, store.SettleClaim(state.ID, rec, state), ErrClaimNotFound)
			assert.ErrorIs(t, store.MarkClaimed(makePoolID(0x55), rec), ErrPoolNotFound)
		})
	}
}

func TestStore_ClaimsOrderedBySeq(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			state := testState(0x05)
			require.NoError(t, store.CreatePool(state))

			// Identity byte order is the reverse of claim order.
			for i := byte(1); i <= 3; i++ {
				rec := &ClaimRecord{Claimant: makeIdentity(0x10 - i), Seq: uint64(i), Status: ClaimPending}
				require.NoError(t, store.MarkClaimed(state.ID, rec))
			}
			_, claims, err := store.LoadPool(state.ID)
			require.NoError(t, err)
			require.Len(t, claims, 3)
			for i, rec := range claims {
				assert.Equal(t, uint64(i+1), rec.Seq)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Bolt durability
// ---------------------------------------------------------------------------

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)

	id := makePoolID(0x06)
	p, err := Create(store, Params{ID: id, ShareCount: 3, Funding: 301, EqualSplit: true},
		WithPayer(newLedgerPayer()))
	require.NoError(t, err)
	for i := 1; i <= 2; i++ {
		_, err := p.Claim(context.Background(), makeIdentity(byte(i)))
		require.NoError(t, err)
	}
	want := p.Snapshot()
	require.NoError(t, store.Close())

	store, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	reopened, err := Open(store, id, WithPayer(newLedgerPayer()))
	require.NoError(t, err)
	assert.Equal(t, want, reopened.Snapshot())
	assert.Equal(t, p.Claims(), reopened.Claims())

	amount, err := reopened.Claim(context.Background(), makeIdentity(0x03))
	require.NoError(t, err)
	assert.Equal(t, uint64(301-100-100), amount)
}

func TestBoltStore_CreatesParentDir(t *testing.T) {
	_, path := tempBoltStore(t)
	assert.FileExists(t, path)
}
