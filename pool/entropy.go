package pool

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/sha3"
)

// BlockSource supplies a block-level value from the host chain, typically
// the best block hash.
type BlockSource interface {
	BlockHash(ctx context.Context) ([]byte, error)
}

// Entropy supplies the pseudo-random input for random-mode payouts.
type Entropy interface {
	Draw(ctx context.Context, claimant Identity, remaining, shares uint64) (*big.Int, error)
}

// EntropyFunc adapts a function to Entropy.
type EntropyFunc func(ctx context.Context, claimant Identity, remaining, shares uint64) (*big.Int, error)

// Draw calls f.
func (f EntropyFunc) Draw(ctx context.Context, claimant Identity, remaining, shares uint64) (*big.Int, error) {
	return f(ctx, claimant, remaining, shares)
}

// HashEntropy derives a draw from
//
//	Keccak256(unix_seconds(8) || block_hash || claimant(20) || remaining(8) || shares(8))
//
// read as a big-endian unsigned integer.
//
// This is not a secure RNG. Whoever orders transactions or produces blocks
// can steer which value a claim receives. The payout stays within the
// [RandomBounds] window whatever the draw, and that window is the only
// guarantee the pool makes about random mode.
type HashEntropy struct {
	Blocks BlockSource      // nil omits the block value
	Now    func() time.Time // nil uses time.Now
}

// NewHashEntropy returns a HashEntropy reading block values from blocks.
func NewHashEntropy(blocks BlockSource) *HashEntropy {
	return &HashEntropy{Blocks: blocks}
}

// Draw implements Entropy.
func (e *HashEntropy) Draw(ctx context.Context, claimant Identity, remaining, shares uint64) (*big.Int, error) {
	var block []byte
	if e.Blocks != nil {
		var err error
		block, err = e.Blocks.BlockHash(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: block hash: %w", ErrEntropyUnavailable, err)
		}
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	var word [8]byte
	h := sha3.NewLegacyKeccak256()
	binary.BigEndian.PutUint64(word[:], uint64(now().Unix()))
	h.Write(word[:])
	h.Write(block)
	h.Write(claimant[:])
	binary.BigEndian.PutUint64(word[:], remaining)
	h.Write(word[:])
	binary.BigEndian.PutUint64(word[:], shares)
	h.Write(word[:])

	return new(big.Int).SetBytes(h.Sum(nil)), nil
}
