package wallet

import (
	"encoding/binary"
	"fmt"

	bip32 "github.com/bsv-blockchain/go-sdk/compat/bip32"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	chaincfg "github.com/bsv-blockchain/go-sdk/transaction/chaincfg"

	"github.com/bitfsorg/sharepool-go/pool"
)

const (
	// BIP44 path constants.
	PurposeBIP44  = 44
	CoinType      = 236
	OwnerAccount  = 0
	EscrowAccount = 1

	// BIP32 hardened offset.
	Hardened = 0x80000000
)

// Wallet derives the keys of a pool operator from one HD seed.
type Wallet struct {
	masterKey *bip32.ExtendedKey
	mainnet   bool
}

// KeyPair holds a derived key pair.
type KeyPair struct {
	PrivateKey *ec.PrivateKey `json:"-"`
	PublicKey  *ec.PublicKey  `json:"public_key"`
	Path       string         `json:"path"`
}

// Identity returns the pool identity controlled by the key pair.
func (kp *KeyPair) Identity() (pool.Identity, error) {
	return pool.IdentityFromPublicKey(kp.PublicKey)
}

// NewWallet creates a Wallet from a BIP39 seed for network ("mainnet",
// "testnet" or "regtest").
func NewWallet(seed []byte, network string) (*Wallet, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	var params *chaincfg.Params
	switch network {
	case "mainnet":
		params = &chaincfg.MainNet
	case "testnet", "regtest":
		params = &chaincfg.TestNet
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, network)
	}

	masterKey, err := bip32.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDerivationFailed, err)
	}
	return &Wallet{masterKey: masterKey, mainnet: network == "mainnet"}, nil
}

// Mainnet reports whether addresses should use the mainnet prefix.
func (w *Wallet) Mainnet() bool { return w.mainnet }

// derive walks hardened children from the master key.
func (w *Wallet) derive(path ...uint32) (*bip32.ExtendedKey, error) {
	key := w.masterKey
	for depth, idx := range path {
		child, err := key.Child(idx + Hardened)
		if err != nil {
			return nil, fmt.Errorf("%w: depth %d: %w", ErrDerivationFailed, depth, err)
		}
		key = child
	}
	return key, nil
}

// OwnerKey derives the operator's identity key.
//
//	Path: m/44'/236'/0'/0'/0'
func (w *Wallet) OwnerKey() (*KeyPair, error) {
	key, err := w.derive(PurposeBIP44, CoinType, OwnerAccount, 0, 0)
	if err != nil {
		return nil, err
	}
	return extKeyToKeyPair(key, "m/44'/236'/0'/0'/0'")
}

// EscrowKey derives the escrow key of a pool from its ID, so a pool's funds
// stay recoverable from the seed alone. The first 8 bytes of the ID select
// two hardened indices of 31 bits each.
//
//	Path: m/44'/236'/1'/a'/b'
func (w *Wallet) EscrowKey(id pool.PoolID) (*KeyPair, error) {
	a := binary.BigEndian.Uint32(id[0:4]) &^ Hardened
	b := binary.BigEndian.Uint32(id[4:8]) &^ Hardened
	key, err := w.derive(PurposeBIP44, CoinType, EscrowAccount, a, b)
	if err != nil {
		return nil, err
	}
	return extKeyToKeyPair(key, fmt.Sprintf("m/44'/236'/1'/%d'/%d'", a, b))
}

// EscrowAddress returns the P2PKH address that funds a pool's escrow.
func (w *Wallet) EscrowAddress(id pool.PoolID) (string, error) {
	kp, err := w.EscrowKey(id)
	if err != nil {
		return "", err
	}
	ident, err := kp.Identity()
	if err != nil {
		return "", err
	}
	addr, err := ident.Address(w.mainnet)
	if err != nil {
		return "", fmt.Errorf("%w: escrow address: %w", ErrDerivationFailed, err)
	}
	return addr.AddressString, nil
}

func extKeyToKeyPair(extKey *bip32.ExtendedKey, path string) (*KeyPair, error) {
	privKey, err := extKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: extract EC private key: %w", ErrDerivationFailed, err)
	}
	pubKey := privKey.PubKey()
	if pubKey == nil {
		return nil, fmt.Errorf("%w: derive public key", ErrDerivationFailed)
	}
	return &KeyPair{PrivateKey: privKey, PublicKey: pubKey, Path: path}, nil
}
