package network

import (
	"context"
	"encoding/hex"
	"fmt"
)

// BlockHashSource feeds the chain tip hash into random-mode entropy. The
// value is public and producer-influenced; it only makes draws differ
// between blocks.
type BlockHashSource struct {
	Chain BlockchainService
}

// BlockHash returns the raw 32 bytes of the best block hash in display order.
func (s BlockHashSource) BlockHash(ctx context.Context) ([]byte, error) {
	hash, err := s.Chain.GetBestBlockHash(ctx)
	if err != nil {
		return nil, fmt.Errorf("network: best block hash: %w", err)
	}
	raw, err := hex.DecodeString(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: best block hash: %v", ErrInvalidResponse, err)
	}
	return raw, nil
}
