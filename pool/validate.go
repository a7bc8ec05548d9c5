package pool

import "fmt"

// ValidateLedger checks a stored ledger against the pool invariants:
// bounded totals, full drain on exhaustion, one record per consumed share,
// unique claimants and exact conservation of funds. Pending records are
// reported as ErrPendingClaim.
func ValidateLedger(state *State, claims []ClaimRecord) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}
	if state.ShareCount == 0 || state.FundingTotal == 0 {
		return fmt.Errorf("%w: zero share count or funding", ErrInvariantViolation)
	}
	if state.SharesRemaining > state.ShareCount {
		return fmt.Errorf("%w: shares remaining %d > share count %d",
			ErrInvariantViolation, state.SharesRemaining, state.ShareCount)
	}
	if state.RemainingTotal > state.FundingTotal {
		return fmt.Errorf("%w: remaining %d > funding %d",
			ErrInvariantViolation, state.RemainingTotal, state.FundingTotal)
	}
	if state.SharesRemaining == 0 && state.RemainingTotal != 0 {
		return fmt.Errorf("%w: exhausted pool holds %d", ErrInvariantViolation, state.RemainingTotal)
	}

	seen := make(map[Identity]struct{}, len(claims))
	var paid uint64
	for _, rec := range claims {
		if rec.Status == ClaimPending {
			return fmt.Errorf("%w: claim %d by %s", ErrPendingClaim, rec.Seq, rec.Claimant)
		}
		if _, dup := seen[rec.Claimant]; dup {
			return fmt.Errorf("%w: duplicate claimant %s", ErrInvariantViolation, rec.Claimant)
		}
		seen[rec.Claimant] = struct{}{}
		paid += rec.Amount
	}

	if uint64(len(claims)) != state.ClaimedCount() {
		return fmt.Errorf("%w: %d claims for %d consumed shares",
			ErrInvariantViolation, len(claims), state.ClaimedCount())
	}
	if paid+state.RemainingTotal != state.FundingTotal {
		return fmt.Errorf("%w: paid %d + remaining %d != funding %d",
			ErrInvariantViolation, paid, state.RemainingTotal, state.FundingTotal)
	}
	return nil
}
