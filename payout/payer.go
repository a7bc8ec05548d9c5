package payout

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bsv-blockchain/go-sdk/chainhash"

	"github.com/bitfsorg/sharepool-go/network"
	"github.com/bitfsorg/sharepool-go/pool"
)

// Compile-time interface check.
var _ pool.Payer = (*TxPayer)(nil)

// TxPayer releases claims by spending a pool's escrow output on chain.
// Payouts are serialized; each spends the change left by the previous one.
type TxPayer struct {
	mu      sync.Mutex
	chain   network.BlockchainService
	escrow  *Escrow
	feeRate uint64
	logger  *slog.Logger
}

// NewTxPayer checks that escrow is unspent on chain with the expected amount
// and locking script, then returns a payer spending it.
func NewTxPayer(ctx context.Context, chain network.BlockchainService, escrow *Escrow, feeRate uint64, logger *slog.Logger) (*TxPayer, error) {
	if chain == nil {
		return nil, fmt.Errorf("%w: chain", ErrNilParam)
	}
	if err := escrow.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h, err := chainhash.NewHash(escrow.TxID)
	if err != nil {
		return nil, fmt.Errorf("%w: escrow TxID: %w", ErrInvalidParams, err)
	}
	utxo, err := chain.GetUTXO(ctx, h.String(), escrow.Vout)
	if err != nil {
		return nil, fmt.Errorf("payout: escrow %s: %w", escrow.Outpoint(), err)
	}
	if utxo.Amount != escrow.Amount {
		return nil, fmt.Errorf("%w: %s holds %d sat, expected %d",
			ErrEscrowMismatch, escrow.Outpoint(), utxo.Amount, escrow.Amount)
	}
	lock, err := escrow.LockingScript()
	if err != nil {
		return nil, err
	}
	if utxo.ScriptPubKey != "" && utxo.ScriptPubKey != hex.EncodeToString(*lock) {
		return nil, fmt.Errorf("%w: %s is not locked to the escrow key", ErrEscrowMismatch, escrow.Outpoint())
	}

	e := *escrow
	return &TxPayer{
		chain:   chain,
		escrow:  &e,
		feeRate: feeRate,
		logger:  logger,
	}, nil
}

// Escrow returns a copy of the current escrow output, or nil once spent out.
func (p *TxPayer) Escrow() *Escrow {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.escrow == nil {
		return nil
	}
	e := *p.escrow
	return &e
}

// Release pays amount to claimant. A zero amount is a no-op.
//
// A broadcast the node rejected returns ErrBroadcastFailed with the escrow
// unchanged. When the broadcast errors otherwise and the escrow cannot be
// checked, the error wraps pool.ErrPayoutUnknown.
func (p *TxPayer) Release(ctx context.Context, id pool.PoolID, claimant pool.Identity, amount uint64) error {
	if amount == 0 {
		p.logger.Debug("zero payout skipped", "pool", id, "claimant", claimant)
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.escrow == nil {
		return ErrEscrowExhausted
	}

	res, err := BuildPayoutTx(&PayoutParams{
		Escrow:   p.escrow,
		Pool:     id,
		Claimant: claimant,
		Amount:   amount,
		FeeRate:  p.feeRate,
	})
	if err != nil {
		return err
	}

	txid, err := p.chain.BroadcastTx(ctx, hex.EncodeToString(res.RawTx))
	if err != nil {
		if errors.Is(err, network.ErrBroadcastRejected) {
			return fmt.Errorf("%w: %w", ErrBroadcastFailed, err)
		}
		// The node may have accepted the transaction before the error. The
		// escrow output answers that: still unspent means it did not.
		spent, checkErr := p.escrowSpent(ctx)
		switch {
		case checkErr != nil:
			p.logger.Error("payout outcome unknown",
				"pool", id, "claimant", claimant, "amount", amount, "txid", res.TxHash, "err", err, "check_err", checkErr)
			return fmt.Errorf("%w: %w: tx %s: %w", pool.ErrPayoutUnknown, ErrBroadcastFailed, res.TxHash, err)
		case !spent:
			return fmt.Errorf("%w: %w", ErrBroadcastFailed, err)
		}
		p.logger.Warn("broadcast errored but escrow is spent; treating payout as sent",
			"pool", id, "claimant", claimant, "txid", res.TxHash, "err", err)
	} else if txid != "" && txid != res.TxHash {
		p.logger.Warn("node returned unexpected txid", "want", res.TxHash, "got", txid)
	}

	p.escrow = res.Change
	p.logger.Info("payout broadcast",
		"pool", id,
		"claimant", claimant,
		"amount", amount,
		"fee", res.Fee,
		"txid", res.TxHash,
	)
	return nil
}

// escrowSpent reports whether the current escrow output has left the node's
// UTXO set, mempool included.
func (p *TxPayer) escrowSpent(ctx context.Context) (bool, error) {
	h, err := chainhash.NewHash(p.escrow.TxID)
	if err != nil {
		return false, fmt.Errorf("%w: escrow TxID: %w", ErrInvalidParams, err)
	}
	_, err = p.chain.GetUTXO(ctx, h.String(), p.escrow.Vout)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, network.ErrTxNotFound):
		return true, nil
	}
	return false, err
}
