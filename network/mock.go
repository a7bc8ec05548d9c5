package network

import "context"

// MockBlockchainService is a test double for BlockchainService.
// All function fields must be set before the corresponding method is called.
type MockBlockchainService struct {
	GetUTXOFn          func(ctx context.Context, txid string, vout uint32) (*UTXO, error)
	BroadcastTxFn      func(ctx context.Context, rawTxHex string) (string, error)
	GetBestBlockHashFn func(ctx context.Context) (string, error)
}

// Compile-time interface check.
var _ BlockchainService = (*MockBlockchainService)(nil)

func (m *MockBlockchainService) GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error) {
	return m.GetUTXOFn(ctx, txid, vout)
}
func (m *MockBlockchainService) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	return m.BroadcastTxFn(ctx, rawTxHex)
}
func (m *MockBlockchainService) GetBestBlockHash(ctx context.Context) (string, error) {
	return m.GetBestBlockHashFn(ctx)
}
