package pool

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBlocks struct{}

func (failingBlocks) BlockHash(context.Context) ([]byte, error) {
	return nil, errors.New("rpc unreachable")
}

func TestHashEntropy_Deterministic(t *testing.T) {
	e := &HashEntropy{Blocks: fixedBlocks{0x01, 0x02}, Now: fixedClock}
	ctx := context.Background()

	a, err := e.Draw(ctx, makeIdentity(0x01), 100, 5)
	require.NoError(t, err)
	b, err := e.Draw(ctx, makeIdentity(0x01), 100, 5)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 0, a.Cmp(b))
	assert.LessOrEqual(t, a.BitLen(), 256)
}

func TestHashEntropy_InputsChangeDraw(t *testing.T) {
	ctx := context.Background()
	base := &HashEntropy{Blocks: fixedBlocks{0x01}, Now: fixedClock}
	ref, err := base.Draw(ctx, makeIdentity(0x01), 100, 5)
	require.NoError(t, err)

	variants := []struct {
		name string
		draw func() (*big.Int, error)
	}{
		{"claimant", func() (*big.Int, error) { return base.Draw(ctx, makeIdentity(0x02), 100, 5) }},
		{"remaining", func() (*big.Int, error) { return base.Draw(ctx, makeIdentity(0x01), 101, 5) }},
		{"shares", func() (*big.Int, error) { return base.Draw(ctx, makeIdentity(0x01), 100, 4) }},
		{"block", func() (*big.Int, error) {
			e := &HashEntropy{Blocks: fixedBlocks{0x02}, Now: fixedClock}
			return e.Draw(ctx, makeIdentity(0x01), 100, 5)
		}},
		{"time", func() (*big.Int, error) {
			e := &HashEntropy{Blocks: fixedBlocks{0x01}, Now: func() time.Time { return fixedClock().Add(time.Second) }}
			return e.Draw(ctx, makeIdentity(0x01), 100, 5)
		}},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			got, err := v.draw()
			require.NoError(t, err)
			assert.NotEqual(t, 0, ref.Cmp(got))
		})
	}
}

func TestHashEntropy_SubsecondClockIgnored(t *testing.T) {
	ctx := context.Background()
	a := &HashEntropy{Now: func() time.Time { return time.Unix(1_700_000_000, 1) }}
	b := &HashEntropy{Now: func() time.Time { return time.Unix(1_700_000_000, 999_999_999) }}

	ra, err := a.Draw(ctx, makeIdentity(0x01), 10, 2)
	require.NoError(t, err)
	rb, err := b.Draw(ctx, makeIdentity(0x01), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, ra.Cmp(rb))
}

func TestHashEntropy_BlockSourceError(t *testing.T) {
	e := NewHashEntropy(failingBlocks{})
	_, err := e.Draw(context.Background(), makeIdentity(0x01), 10, 2)
	assert.ErrorIs(t, err, ErrEntropyUnavailable)
	assert.Contains(t, err.Error(), "rpc unreachable")
}

func TestClaim_BlockSourceErrorRejectsClaim(t *testing.T) {
	p, payer := newTestPool(t, Params{ShareCount: 3, Funding: 300}, WithEntropy(NewHashEntropy(failingBlocks{})))

	_, err := p.Claim(context.Background(), makeIdentity(0x01))
	assert.ErrorIs(t, err, ErrEntropyUnavailable)
	assert.Equal(t, uint64(3), p.SharesRemaining())
	assert.Zero(t, payer.n)
}
