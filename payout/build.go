package payout

import (
	"bytes"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"

	"github.com/bitfsorg/sharepool-go/pool"
)

// DefaultFeeRate is the default fee rate in satoshis per kilobyte.
const DefaultFeeRate = uint64(1)

// MarkerPrefix is the first push of the OP_RETURN output tagging a payout.
var MarkerPrefix = []byte("sharepool")

// Output positions in a payout transaction.
const (
	ClaimantVout = uint32(0)
	MarkerVout   = uint32(1)
	ChangeVout   = uint32(2)
)

// PayoutParams describes a single claim payout.
type PayoutParams struct {
	Escrow   *Escrow
	Pool     pool.PoolID
	Claimant pool.Identity
	Amount   uint64 // satoshis to the claimant, > 0
	FeeRate  uint64 // satoshis per kilobyte (0 = DefaultFeeRate)
}

// PayoutResult holds a signed payout transaction.
type PayoutResult struct {
	RawTx  []byte
	TxID   []byte  // 32 bytes, internal byte order
	TxHash string  // TxID in display order
	Fee    uint64
	Change *Escrow // nil when the escrow is spent out
}

// EstimateFee returns ceil(txSizeBytes * feeRate / 1000).
func EstimateFee(txSizeBytes int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	fee := uint64(txSizeBytes) * feeRate
	return (fee + 999) / 1000
}

// EstimatePayoutSize estimates the size in bytes of a payout transaction.
//
//	base:     version(4) + locktime(4) + in count(1) + out count(1) = 10
//	input:    prevout(36) + scriptlen(1) + P2PKH unlock(~107) + sequence(4) = 148
//	P2PKH:    value(8) + scriptlen(1) + script(25) = 34
//	marker:   value(8) + scriptlen(1) + OP_FALSE OP_RETURN(2) + pushes
func EstimatePayoutSize(withChange bool) int {
	marker := 8 + 1 + 2 + 1 + len(MarkerPrefix) + 1 + pool.IDLen
	size := 10 + 148 + 34 + marker
	if withChange {
		size += 34
	}
	return size
}

// FeeHeadroom returns the fees an escrow must carry on top of the pool
// funding to pay out shares claims at feeRate.
func FeeHeadroom(shares uint64, feeRate uint64) uint64 {
	return shares * EstimateFee(EstimatePayoutSize(true), feeRate)
}

// BuildPayoutTx builds and signs a transaction spending the escrow.
//
// Outputs:
//
//	0: P2PKH to the claimant (Amount)
//	1: OP_FALSE OP_RETURN "sharepool" <pool id>
//	2: P2PKH change back to the escrow key (omitted when zero)
//
// Change is never folded into the fee: a pool may still owe a share smaller
// than any dust threshold, and the escrow must stay spendable for it.
func BuildPayoutTx(params *PayoutParams) (*PayoutResult, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params", ErrNilParam)
	}
	if err := params.Escrow.validate(); err != nil {
		return nil, err
	}
	if params.Amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidParams)
	}
	esc := params.Escrow

	fee := EstimateFee(EstimatePayoutSize(true), params.FeeRate)
	if esc.Amount < params.Amount || esc.Amount-params.Amount < fee {
		return nil, fmt.Errorf("%w: need %d sat, have %d sat",
			ErrInsufficientFunds, params.Amount+fee, esc.Amount)
	}
	change := esc.Amount - params.Amount - fee

	escrowLock, err := esc.LockingScript()
	if err != nil {
		return nil, err
	}
	claimantLock, err := claimantScript(params.Claimant)
	if err != nil {
		return nil, err
	}
	marker, err := buildMarkerScript(params.Pool)
	if err != nil {
		return nil, err
	}

	srcHash, err := chainhash.NewHash(esc.TxID)
	if err != nil {
		return nil, fmt.Errorf("%w: escrow TxID: %w", ErrScriptBuild, err)
	}

	sdkTx := transaction.NewTransaction()
	sdkTx.AddInput(&transaction.TransactionInput{
		SourceTXID:       srcHash,
		SourceTxOutIndex: esc.Vout,
		SequenceNumber:   transaction.DefaultSequenceNumber,
	})
	sdkTx.Outputs = append(sdkTx.Outputs,
		&transaction.TransactionOutput{Satoshis: params.Amount, LockingScript: claimantLock},
		&transaction.TransactionOutput{Satoshis: 0, LockingScript: marker},
	)
	if change > 0 {
		sdkTx.Outputs = append(sdkTx.Outputs,
			&transaction.TransactionOutput{Satoshis: change, LockingScript: escrowLock})
	}

	unlocker, err := p2pkh.Unlock(esc.PrivateKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: unlocker: %w", ErrSigningFailed, err)
	}
	sdkTx.Inputs[0].SetSourceTxOutput(&transaction.TransactionOutput{
		Satoshis:      esc.Amount,
		LockingScript: escrowLock,
	})
	sdkTx.Inputs[0].UnlockingScriptTemplate = unlocker
	if err := sdkTx.Sign(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	hash := sdkTx.TxID()
	txid := hash.CloneBytes()
	result := &PayoutResult{
		RawTx:  sdkTx.Bytes(),
		TxID:   txid,
		TxHash: hash.String(),
		Fee:    fee,
	}
	if change > 0 {
		result.Change = &Escrow{
			TxID:       txid,
			Vout:       ChangeVout,
			Amount:     change,
			PrivateKey: esc.PrivateKey,
		}
	}
	return result, nil
}

// ParseMarker extracts the pool ID from a payout marker script.
func ParseMarker(s *script.Script) (pool.PoolID, error) {
	var id pool.PoolID
	if s == nil {
		return id, fmt.Errorf("%w: nil script", ErrInvalidMarker)
	}
	b := []byte(*s)
	if len(b) < 2 || b[0] != script.Op0 || b[1] != script.OpRETURN {
		return id, fmt.Errorf("%w: missing OP_FALSE OP_RETURN", ErrInvalidMarker)
	}
	prefix, rest, err := readPush(b[2:])
	if err != nil {
		return id, err
	}
	if !bytes.Equal(prefix, MarkerPrefix) {
		return id, fmt.Errorf("%w: prefix mismatch", ErrInvalidMarker)
	}
	raw, rest, err := readPush(rest)
	if err != nil {
		return id, err
	}
	if len(rest) != 0 {
		return id, fmt.Errorf("%w: trailing data", ErrInvalidMarker)
	}
	id, err = pool.PoolIDFromBytes(raw)
	if err != nil {
		return id, fmt.Errorf("%w: %w", ErrInvalidMarker, err)
	}
	return id, nil
}

// readPush reads one direct or OP_PUSHDATA1 push.
func readPush(b []byte) (data, rest []byte, err error) {
	if len(b) == 0 {
		return nil, nil, fmt.Errorf("%w: truncated", ErrInvalidMarker)
	}
	op, b := b[0], b[1:]
	var n int
	switch {
	case op >= 0x01 && op <= 0x4b:
		n = int(op)
	case op == script.OpPUSHDATA1:
		if len(b) == 0 {
			return nil, nil, fmt.Errorf("%w: truncated", ErrInvalidMarker)
		}
		n, b = int(b[0]), b[1:]
	default:
		return nil, nil, fmt.Errorf("%w: unexpected opcode 0x%02x", ErrInvalidMarker, op)
	}
	if len(b) < n {
		return nil, nil, fmt.Errorf("%w: truncated", ErrInvalidMarker)
	}
	return b[:n], b[n:], nil
}

func claimantScript(id pool.Identity) (*script.Script, error) {
	addr, err := script.NewAddressFromPublicKeyHash(id[:], true)
	if err != nil {
		return nil, fmt.Errorf("%w: claimant address: %w", ErrScriptBuild, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: claimant lock script: %w", ErrScriptBuild, err)
	}
	return lock, nil
}

func buildMarkerScript(id pool.PoolID) (*script.Script, error) {
	s := &script.Script{}
	*s = append(*s, script.Op0, script.OpRETURN)
	for _, push := range [][]byte{MarkerPrefix, id[:]} {
		if err := s.AppendPushData(push); err != nil {
			return nil, fmt.Errorf("%w: marker push data: %w", ErrScriptBuild, err)
		}
	}
	return s, nil
}
