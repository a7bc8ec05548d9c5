package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// releaseKey marks a context as belonging to an in-flight payout release of
// one pool. Claims made with such a context re-enter the pool.
type releaseKey struct{ p *Pool }

// checkEligible is the eligibility guard. Callers hold p.mu.
func (p *Pool) checkEligible(claimant Identity) error {
	if _, ok := p.claimed[claimant]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyClaimed, claimant)
	}
	if p.state.SharesRemaining == 0 {
		return ErrPoolExhausted
	}
	if p.state.RemainingTotal == 0 {
		return ErrPoolEmpty
	}
	return nil
}

// Claim hands one share to claimant and returns the committed payout.
//
// The claim runs as one unit of work:
//
//  1. guard: claimant not yet claimed, shares and funds left
//  2. compute the share, drawing entropy in random mode
//  3. persist claimant as claimed (pending)
//  4. release the payout
//  5. decrement funds and shares, settle the record
//  6. notify listeners
//
// A failure before step 4 completes leaves no trace. Step 3 is visible to
// the payer, so a release that calls back into Claim for the same claimant
// gets ErrAlreadyClaimed.
//
// A release error wrapping ErrPayoutUnknown keeps the pending record: the
// claimant may have been paid. The pool then refuses further claims with
// ErrPendingClaim until the record is resolved with ResolvePending and the
// pool reopened.
func (p *Pool) Claim(ctx context.Context, claimant Identity) (uint64, error) {
	if releasing, ok := ctx.Value(releaseKey{p}).(Identity); ok {
		return 0, p.claimDuringRelease(claimant, releasing)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.claimMu.Lock()
	defer p.claimMu.Unlock()

	p.mu.RLock()
	err := p.checkEligible(claimant)
	remaining, shares := p.state.RemainingTotal, p.state.SharesRemaining
	p.mu.RUnlock()
	if err == nil && p.stalled != nil {
		err = fmt.Errorf("%w: claim %d by %s", ErrPendingClaim, p.stalled.Seq, p.stalled.Claimant)
	}
	if err != nil {
		p.logger.Debug("claim rejected", "pool", p.state.ID.String(), "claimant", claimant.String(), "err", err)
		return 0, err
	}

	amount, err := p.shareFor(ctx, claimant, remaining, shares)
	if err != nil {
		return 0, err
	}

	rec := ClaimRecord{
		Claimant:  claimant,
		Amount:    amount,
		Seq:       p.state.ShareCount - shares + 1,
		Status:    ClaimPending,
		ClaimedAt: p.now().Unix(),
	}
	if err := p.store.MarkClaimed(p.state.ID, &rec); err != nil {
		return 0, fmt.Errorf("pool: mark claimed: %w", err)
	}
	p.mu.Lock()
	p.claimed[claimant] = rec
	p.mu.Unlock()

	releaseCtx := context.WithValue(ctx, releaseKey{p}, claimant)
	if err := p.payer.Release(releaseCtx, p.state.ID, claimant, amount); err != nil {
		releaseErr := fmt.Errorf("%w: %w", ErrPayoutFailed, err)
		if errors.Is(err, ErrPayoutUnknown) {
			p.stalled = &rec
			p.logger.Error("claim left pending",
				"pool", p.state.ID.String(), "claimant", claimant.String(), "seq", rec.Seq, "amount", amount, "err", err)
			return 0, releaseErr
		}
		if revertErr := p.revert(claimant); revertErr != nil {
			return 0, errors.Join(releaseErr, revertErr)
		}
		return 0, releaseErr
	}

	rec.Status = ClaimSettled
	p.mu.Lock()
	p.state.RemainingTotal -= amount
	p.state.SharesRemaining--
	p.claimed[claimant] = rec
	next := p.state
	p.mu.Unlock()

	// The payout is out; the in-memory ledger stays advanced even if the
	// store rejects the settlement. The pending record then blocks Open.
	settleErr := p.store.SettleClaim(next.ID, &rec, &next)
	if settleErr != nil {
		p.logger.Error("settle claim failed",
			"pool", next.ID.String(), "claimant", claimant.String(), "seq", rec.Seq, "err", settleErr)
	}

	p.logger.Info("claim committed",
		"pool", next.ID.String(),
		"claimant", claimant.String(),
		"seq", rec.Seq,
		"amount", amount,
		"shares_remaining", next.SharesRemaining,
		"remaining_total", next.RemainingTotal,
	)
	p.notify(ctx, &rec, &next)

	if settleErr != nil {
		return amount, fmt.Errorf("pool: settle claim %d: %w", rec.Seq, settleErr)
	}
	return amount, nil
}

// claimDuringRelease handles a claim issued from inside a payout release.
// It never mutates the ledger.
func (p *Pool) claimDuringRelease(claimant, releasing Identity) error {
	p.mu.RLock()
	err := p.checkEligible(claimant)
	p.mu.RUnlock()
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s while paying %s", ErrReentrantClaim, claimant, releasing)
}

// shareFor runs the share calculator, consulting entropy only when the
// random split needs it.
func (p *Pool) shareFor(ctx context.Context, claimant Identity, remaining, shares uint64) (uint64, error) {
	if p.state.Mode != ModeRandom || shares <= 1 {
		return ComputeShare(p.state.Mode, remaining, shares, nil), nil
	}
	if lo, hi := RandomBounds(remaining, shares); lo == hi {
		return ComputeShare(ModeRandom, remaining, shares, nil), nil
	}
	r, err := p.entropy.Draw(ctx, claimant, remaining, shares)
	if err != nil {
		if errors.Is(err, ErrEntropyUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrEntropyUnavailable, err)
	}
	return ComputeShare(ModeRandom, remaining, shares, r), nil
}

// revert undoes the claimed marker of a claim whose payout was not released.
func (p *Pool) revert(claimant Identity) error {
	p.mu.Lock()
	delete(p.claimed, claimant)
	p.mu.Unlock()

	if err := p.store.RevertClaim(p.state.ID, claimant); err != nil {
		p.logger.Error("revert claim failed", "pool", p.state.ID.String(), "claimant", claimant.String(), "err", err)
		return fmt.Errorf("pool: revert claim: %w", err)
	}
	return nil
}

func (p *Pool) notify(ctx context.Context, rec *ClaimRecord, state *State) {
	if p.notifier == nil {
		return
	}
	ev := ClaimEvent{
		ID:              uuid.New(),
		Pool:            state.ID,
		Claimant:        rec.Claimant,
		Amount:          rec.Amount,
		Seq:             rec.Seq,
		RemainingTotal:  state.RemainingTotal,
		SharesRemaining: state.SharesRemaining,
		At:              p.now(),
	}
	if err := p.notifier.ClaimCompleted(ctx, ev); err != nil {
		p.logger.Warn("claim notification failed", "pool", state.ID.String(), "event", ev.ID.String(), "err", err)
	}
}

// ResolvePending settles or drops the pending claim of claimant after the
// operator has checked the chain. paid reports whether the payout reached
// the claimant. Pools holding the ledger in memory must be reopened.
func ResolvePending(store Store, id PoolID, claimant Identity, paid bool) error {
	if store == nil {
		return fmt.Errorf("%w: store", ErrNilParam)
	}
	state, claims, err := store.LoadPool(id)
	if err != nil {
		return err
	}
	var rec *ClaimRecord
	for i := range claims {
		if claims[i].Claimant == claimant {
			rec = &claims[i]
			break
		}
	}
	if rec == nil {
		return fmt.Errorf("%w: %s", ErrClaimNotFound, claimant)
	}
	if rec.Status != ClaimPending {
		return fmt.Errorf("%w: claim of %s is %s", ErrInvalidClaimData, claimant, rec.Status)
	}

	if !paid {
		return store.RevertClaim(id, claimant)
	}
	if state.SharesRemaining == 0 || rec.Amount > state.RemainingTotal {
		return fmt.Errorf("%w: pending claim of %d exceeds remaining %d",
			ErrInvariantViolation, rec.Amount, state.RemainingTotal)
	}
	state.RemainingTotal -= rec.Amount
	state.SharesRemaining--
	rec.Status = ClaimSettled
	return store.SettleClaim(id, rec, state)
}
