package pool

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/script"
)

const (
	// IDLen is the length of a pool ID.
	IDLen = 32

	// IdentityLen is the length of a claimant identity (P2PKH hash).
	IdentityLen = 20
)

// PoolID identifies a pool. On chain it is the funding transaction ID.
type PoolID [IDLen]byte

// String returns the hex encoding of the ID.
func (id PoolID) String() string { return hex.EncodeToString(id[:]) }

// PoolIDFromBytes copies a 32-byte slice into a PoolID.
func PoolIDFromBytes(b []byte) (PoolID, error) {
	var id PoolID
	if len(b) != IDLen {
		return id, fmt.Errorf("%w: pool ID must be %d bytes, got %d", ErrInvalidPoolData, IDLen, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Identity is a claimant's P2PKH public key hash.
type Identity [IdentityLen]byte

// IdentityFromPublicKey returns Hash160 of the compressed public key.
func IdentityFromPublicKey(pub *ec.PublicKey) (Identity, error) {
	var id Identity
	if pub == nil {
		return id, fmt.Errorf("%w: public key", ErrNilParam)
	}
	copy(id[:], bsvhash.Hash160(pub.Compressed()))
	return id, nil
}

// String returns the hex encoding of the identity.
func (id Identity) String() string { return hex.EncodeToString(id[:]) }

// Address returns the P2PKH address for the identity.
func (id Identity) Address(mainnet bool) (*script.Address, error) {
	return script.NewAddressFromPublicKeyHash(id[:], mainnet)
}

// Mode selects how the pool is split between claimants.
type Mode uint8

const (
	// ModeEqual pays floor(remaining/shares) per claim.
	ModeEqual Mode = iota
	// ModeRandom pays a pseudo-random amount within [avg/100, avg*2].
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeEqual:
		return "equal"
	case ModeRandom:
		return "random"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// State is the authoritative ledger of a pool, minus the claimed set.
type State struct {
	ID              PoolID
	Owner           Identity // informational only
	Mode            Mode
	FundingTotal    uint64 // satoshis deposited at creation
	RemainingTotal  uint64 // satoshis not yet paid out
	ShareCount      uint64 // shares available at creation
	SharesRemaining uint64 // shares not yet claimed
}

// Exhausted reports whether every share has been claimed.
func (s *State) Exhausted() bool { return s.SharesRemaining == 0 }

// ClaimedCount returns the number of shares consumed so far.
func (s *State) ClaimedCount() uint64 { return s.ShareCount - s.SharesRemaining }

// ClaimStatus tracks a claim record through the commit protocol.
type ClaimStatus uint8

const (
	// ClaimPending is written before the payout is released.
	ClaimPending ClaimStatus = 1
	// ClaimSettled is written once the pool totals include the payout.
	ClaimSettled ClaimStatus = 2
)

func (s ClaimStatus) String() string {
	switch s {
	case ClaimPending:
		return "pending"
	case ClaimSettled:
		return "settled"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// ClaimRecord is one row of the claimed set.
type ClaimRecord struct {
	Claimant  Identity
	Amount    uint64 // satoshis paid
	Seq       uint64 // 1-based claim index
	Status    ClaimStatus
	ClaimedAt int64 // unix seconds
}

// Params are the creation inputs of a pool.
type Params struct {
	ID         PoolID
	Owner      Identity
	ShareCount uint64
	EqualSplit bool
	Funding    uint64
}

// ClaimEvent is emitted after a claim is committed.
type ClaimEvent struct {
	ID              uuid.UUID
	Pool            PoolID
	Claimant        Identity
	Amount          uint64
	Seq             uint64
	RemainingTotal  uint64
	SharesRemaining uint64
	At              time.Time
}

// Notifier receives claim-completed events. Delivery is best-effort; a
// returned error is logged and never undoes the claim.
type Notifier interface {
	ClaimCompleted(ctx context.Context, ev ClaimEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev ClaimEvent) error

// ClaimCompleted calls f.
func (f NotifierFunc) ClaimCompleted(ctx context.Context, ev ClaimEvent) error { return f(ctx, ev) }

// Payer releases a committed payout to the claimant. Release may run code
// controlled by the claimant and may call back into the pool.
type Payer interface {
	Release(ctx context.Context, pool PoolID, claimant Identity, amount uint64) error
}

// PayerFunc adapts a function to Payer.
type PayerFunc func(ctx context.Context, pool PoolID, claimant Identity, amount uint64) error

// Release calls f.
func (f PayerFunc) Release(ctx context.Context, pool PoolID, claimant Identity, amount uint64) error {
	return f(ctx, pool, claimant, amount)
}
