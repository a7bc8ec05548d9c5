package pool

import "math/big"

// RandomBounds returns the [lo, hi] window a random-mode payout is drawn
// from before clamping: lo = avg/100, hi = avg*2, avg = remaining/shares.
func RandomBounds(remaining, shares uint64) (lo, hi uint64) {
	if shares == 0 {
		return 0, 0
	}
	avg := remaining / shares
	return avg / 100, avg * 2
}

// ComputeShare returns the payout for the next claim given the pool's
// remaining funds and shares. The last share always takes the exact
// remainder, which absorbs the rounding loss of every earlier floor division.
// r is only consulted in random mode and may be nil elsewhere.
func ComputeShare(mode Mode, remaining, shares uint64, r *big.Int) uint64 {
	switch {
	case shares == 0:
		return 0
	case shares == 1:
		return remaining
	case mode == ModeEqual:
		return remaining / shares
	}

	lo, hi := RandomBounds(remaining, shares)
	span := hi - lo
	if span == 0 {
		return lo
	}

	var offset uint64
	if r != nil {
		// big.Int.Mod is Euclidean, so offset is in [0, span).
		offset = new(big.Int).Mod(r, new(big.Int).SetUint64(span)).Uint64()
	}
	amount := lo + offset
	if amount > remaining {
		amount = remaining
	}
	return amount
}
