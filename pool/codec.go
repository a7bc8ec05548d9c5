package pool

import (
	"encoding/binary"
	"fmt"
)

const (
	stateSize = 85 // id(32) + owner(20) + mode(1) + funding(8) + remaining(8) + shares(8) + shares_remaining(8)
	claimSize = 45 // claimant(20) + amount(8) + seq(8) + status(1) + claimed_at(8)
)

// SerializeState encodes a pool State to binary format.
func SerializeState(state *State) []byte {
	buf := make([]byte, stateSize)
	copy(buf[0:32], state.ID[:])
	copy(buf[32:52], state.Owner[:])
	buf[52] = byte(state.Mode)
	binary.BigEndian.PutUint64(buf[53:61], state.FundingTotal)
	binary.BigEndian.PutUint64(buf[61:69], state.RemainingTotal)
	binary.BigEndian.PutUint64(buf[69:77], state.ShareCount)
	binary.BigEndian.PutUint64(buf[77:85], state.SharesRemaining)
	return buf
}

// DeserializeState decodes binary data into a pool State.
func DeserializeState(data []byte) (*State, error) {
	if len(data) != stateSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPoolData, stateSize, len(data))
	}
	mode := Mode(data[52])
	if mode != ModeEqual && mode != ModeRandom {
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidPoolData, data[52])
	}
	state := &State{Mode: mode}
	copy(state.ID[:], data[0:32])
	copy(state.Owner[:], data[32:52])
	state.FundingTotal = binary.BigEndian.Uint64(data[53:61])
	state.RemainingTotal = binary.BigEndian.Uint64(data[61:69])
	state.ShareCount = binary.BigEndian.Uint64(data[69:77])
	state.SharesRemaining = binary.BigEndian.Uint64(data[77:85])
	return state, nil
}

// SerializeClaim encodes a ClaimRecord to binary format.
func SerializeClaim(rec *ClaimRecord) []byte {
	buf := make([]byte, claimSize)
	copy(buf[0:20], rec.Claimant[:])
	binary.BigEndian.PutUint64(buf[20:28], rec.Amount)
	binary.BigEndian.PutUint64(buf[28:36], rec.Seq)
	buf[36] = byte(rec.Status)
	binary.BigEndian.PutUint64(buf[37:45], uint64(rec.ClaimedAt))
	return buf
}

// DeserializeClaim decodes binary data into a ClaimRecord.
func DeserializeClaim(data []byte) (*ClaimRecord, error) {
	if len(data) != claimSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidClaimData, claimSize, len(data))
	}
	status := ClaimStatus(data[36])
	if status != ClaimPending && status != ClaimSettled {
		return nil, fmt.Errorf("%w: unknown status %d", ErrInvalidClaimData, data[36])
	}
	rec := &ClaimRecord{Status: status}
	copy(rec.Claimant[:], data[0:20])
	rec.Amount = binary.BigEndian.Uint64(data[20:28])
	rec.Seq = binary.BigEndian.Uint64(data[28:36])
	rec.ClaimedAt = int64(binary.BigEndian.Uint64(data[37:45]))
	return rec, nil
}
