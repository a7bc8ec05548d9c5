package payout

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("payout: required parameter is nil")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("payout: invalid parameters")

	// ErrInsufficientFunds indicates the escrow cannot cover the payout and fee.
	ErrInsufficientFunds = errors.New("payout: insufficient funds")

	// ErrScriptBuild indicates script construction failed.
	ErrScriptBuild = errors.New("payout: script build failed")

	// ErrSigningFailed indicates transaction signing failed.
	ErrSigningFailed = errors.New("payout: signing failed")

	// ErrInvalidMarker indicates an output is not a pool payout marker.
	ErrInvalidMarker = errors.New("payout: invalid marker")

	// ErrEscrowMismatch indicates the on-chain escrow output differs from the configured one.
	ErrEscrowMismatch = errors.New("payout: escrow does not match chain")

	// ErrEscrowExhausted indicates the escrow has no spendable output left.
	ErrEscrowExhausted = errors.New("payout: escrow exhausted")

	// ErrBroadcastFailed indicates the node did not accept a payout transaction.
	ErrBroadcastFailed = errors.New("payout: broadcast failed")
)
