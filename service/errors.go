package service

import "errors"

var (
	// ErrClosed indicates the service has been closed.
	ErrClosed = errors.New("service: closed")

	// ErrUnderfunded indicates the escrow cannot cover the pool plus payout fees.
	ErrUnderfunded = errors.New("service: escrow does not cover pool funding and fees")

	// ErrNoWallet indicates an operation needs a wallet the service was opened without.
	ErrNoWallet = errors.New("service: no wallet configured")

	// ErrPoolOpen indicates the pool is already open in this service.
	ErrPoolOpen = errors.New("service: pool already open")
)
