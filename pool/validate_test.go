package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func settled(seed byte, seq, amount uint64) ClaimRecord {
	return ClaimRecord{Claimant: makeIdentity(seed), Amount: amount, Seq: seq, Status: ClaimSettled}
}

func TestValidateLedger(t *testing.T) {
	base := State{FundingTotal: 100, RemainingTotal: 40, ShareCount: 3, SharesRemaining: 1}
	twoClaims := []ClaimRecord{settled(0x01, 1, 30), settled(0x02, 2, 30)}

	tests := []struct {
		name    string
		modify  func(*State)
		claims  []ClaimRecord
		wantErr error
	}{
		{"valid", nil, twoClaims, nil},
		{"fresh pool", func(s *State) { s.RemainingTotal, s.SharesRemaining = 100, 3 }, nil, nil},
		{"zero shares", func(s *State) { s.ShareCount = 0 }, twoClaims, ErrInvariantViolation},
		{"shares above initial", func(s *State) { s.SharesRemaining = 4 }, twoClaims, ErrInvariantViolation},
		{"remaining above funding", func(s *State) { s.RemainingTotal = 101 }, twoClaims, ErrInvariantViolation},
		{"dust after exhaustion", func(s *State) { s.SharesRemaining = 0 }, append(twoClaims, settled(0x03, 3, 0)), ErrInvariantViolation},
		{"claim count mismatch", nil, twoClaims[:1], ErrInvariantViolation},
		{"duplicate claimant", nil, []ClaimRecord{settled(0x01, 1, 30), settled(0x01, 2, 30)}, ErrInvariantViolation},
		{"funds not conserved", nil, []ClaimRecord{settled(0x01, 1, 30), settled(0x02, 2, 31)}, ErrInvariantViolation},
		{"pending claim", nil, []ClaimRecord{settled(0x01, 1, 30), {Claimant: makeIdentity(0x02), Seq: 2, Status: ClaimPending}}, ErrPendingClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := base
			if tt.modify != nil {
				tt.modify(&state)
			}
			err := ValidateLedger(&state, tt.claims)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateLedger_NilState(t *testing.T) {
	assert.ErrorIs(t, ValidateLedger(nil, nil), ErrNilParam)
}
