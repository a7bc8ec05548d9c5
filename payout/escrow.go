package payout

import (
	"fmt"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

// Escrow is the single P2PKH output holding a pool's undistributed funds.
// Each payout spends it and, when change remains, leaves a new one.
type Escrow struct {
	TxID       []byte         // 32 bytes, internal byte order
	Vout       uint32
	Amount     uint64         // satoshis
	PrivateKey *ec.PrivateKey // controls the escrow output
}

// Outpoint returns the escrow output as "txid:vout" in display order.
func (e *Escrow) Outpoint() string {
	h, err := chainhash.NewHash(e.TxID)
	if err != nil {
		return fmt.Sprintf("<invalid>:%d", e.Vout)
	}
	return fmt.Sprintf("%s:%d", h, e.Vout)
}

// LockingScript returns the P2PKH script that pays the escrow key.
func (e *Escrow) LockingScript() (*script.Script, error) {
	if e.PrivateKey == nil {
		return nil, fmt.Errorf("%w: escrow private key", ErrNilParam)
	}
	addr, err := script.NewAddressFromPublicKey(e.PrivateKey.PubKey(), true)
	if err != nil {
		return nil, fmt.Errorf("%w: escrow address: %w", ErrScriptBuild, err)
	}
	lock, err := p2pkh.Lock(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: escrow lock script: %w", ErrScriptBuild, err)
	}
	return lock, nil
}

func (e *Escrow) validate() error {
	if e == nil {
		return fmt.Errorf("%w: escrow", ErrNilParam)
	}
	if e.PrivateKey == nil {
		return fmt.Errorf("%w: escrow private key", ErrNilParam)
	}
	if len(e.TxID) != chainhash.HashSize {
		return fmt.Errorf("%w: escrow TxID must be %d bytes, got %d", ErrInvalidParams, chainhash.HashSize, len(e.TxID))
	}
	return nil
}
