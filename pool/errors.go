package pool

import "errors"

var (
	// ErrInvalidConfig indicates a pool was created with a zero share count or zero funding.
	ErrInvalidConfig = errors.New("pool: invalid pool configuration")

	// ErrPoolExhausted indicates every share has already been claimed.
	ErrPoolExhausted = errors.New("pool: all shares claimed")

	// ErrPoolEmpty indicates no funds remain in the pool.
	ErrPoolEmpty = errors.New("pool: no funds remaining")

	// ErrAlreadyClaimed indicates the claimant already holds a share of this pool.
	ErrAlreadyClaimed = errors.New("pool: identity already claimed")

	// ErrReentrantClaim indicates a claim for a different identity was attempted
	// while a payout of the same pool was being released.
	ErrReentrantClaim = errors.New("pool: claim attempted during payout release")

	// ErrPayoutFailed indicates the payout could not be released; the claim was reverted.
	ErrPayoutFailed = errors.New("pool: payout release failed")

	// ErrPayoutUnknown indicates a payer cannot tell whether a release reached
	// the claimant. The claim stays pending until reconciled.
	ErrPayoutUnknown = errors.New("pool: payout outcome unknown")

	// ErrEntropyUnavailable indicates the entropy source could not produce a value.
	ErrEntropyUnavailable = errors.New("pool: entropy unavailable")

	// ErrPoolExists indicates a pool with the same ID is already stored.
	ErrPoolExists = errors.New("pool: pool already exists")

	// ErrPoolNotFound indicates the pool ID is not present in the store.
	ErrPoolNotFound = errors.New("pool: pool not found")

	// ErrClaimNotFound indicates no claim record exists for the identity.
	ErrClaimNotFound = errors.New("pool: claim record not found")

	// ErrPendingClaim indicates a stored claim was marked but never settled.
	ErrPendingClaim = errors.New("pool: unsettled claim in ledger")

	// ErrInvariantViolation indicates stored ledger state breaks a pool invariant.
	ErrInvariantViolation = errors.New("pool: ledger invariant violated")

	// ErrInvalidPoolData indicates serialized pool state is malformed.
	ErrInvalidPoolData = errors.New("pool: invalid pool data")

	// ErrInvalidClaimData indicates a serialized claim record is malformed.
	ErrInvalidClaimData = errors.New("pool: invalid claim data")

	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("pool: required parameter is nil")
)
