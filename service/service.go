// Package service wires the pool engine to its configured collaborators:
// the bbolt ledger, a BSV node, on-chain payouts and the event bus.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/bitfsorg/sharepool-go/config"
	"github.com/bitfsorg/sharepool-go/network"
	"github.com/bitfsorg/sharepool-go/notify"
	"github.com/bitfsorg/sharepool-go/payout"
	"github.com/bitfsorg/sharepool-go/pool"
	"github.com/bitfsorg/sharepool-go/wallet"
)

// Service owns the shared resources of a node and the pools opened on it.
type Service struct {
	cfg       config.Config
	logger    *slog.Logger
	logCloser io.Closer
	store     *pool.BoltStore
	chain     network.BlockchainService
	entropy   pool.Entropy
	bus       *notify.Bus
	wallet    *wallet.Wallet

	mu     sync.Mutex
	pools  map[pool.PoolID]*pool.Pool
	closed bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	chain   network.BlockchainService
	logger  *slog.Logger
	env     map[string]string
	entropy pool.Entropy
	wallet  *wallet.Wallet
	seedPwd *string
}

// WithChain uses chain instead of dialing the configured node.
func WithChain(chain network.BlockchainService) Option {
	return func(o *options) { o.chain = chain }
}

// WithLogger uses logger instead of building one from the config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithEnv replaces the process environment consulted for SHAREPOOL_RPC_*.
func WithEnv(env map[string]string) Option {
	return func(o *options) { o.env = env }
}

// WithEntropy overrides the block-hash entropy used by random-mode pools.
func WithEntropy(e pool.Entropy) Option {
	return func(o *options) { o.entropy = e }
}

// WithWallet derives pool owners and escrow keys from w when callers
// leave them unset.
func WithWallet(w *wallet.Wallet) Option {
	return func(o *options) { o.wallet = w }
}

// WithSeedFile loads the wallet from the sealed seed file in cfg.DataDir,
// opened with password. WithWallet takes precedence.
func WithSeedFile(password string) Option {
	return func(o *options) { o.seedPwd = &password }
}

// Open validates cfg and opens the ledger database under cfg.DataDir.
func Open(cfg config.Config, opts ...Option) (*Service, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.wallet == nil && o.seedPwd != nil {
		seed, err := wallet.LoadSeed(wallet.SeedPath(cfg.DataDir), *o.seedPwd)
		if err != nil {
			return nil, err
		}
		if o.wallet, err = wallet.NewWallet(seed, cfg.Network); err != nil {
			return nil, err
		}
	}

	s := &Service{cfg: cfg, wallet: o.wallet, pools: make(map[pool.PoolID]*pool.Pool)}

	if o.logger != nil {
		s.logger = o.logger
	} else {
		logger, closer, err := config.NewLogger(cfg)
		if err != nil {
			return nil, err
		}
		s.logger, s.logCloser = logger, closer
	}

	s.chain = o.chain
	if s.chain == nil {
		env := o.env
		if env == nil {
			env = environ()
		}
		rpcCfg, err := network.ResolveConfig(&network.RPCConfig{
			URL:      cfg.RPCURL,
			User:     cfg.RPCUser,
			Password: cfg.RPCPassword,
		}, env, cfg.Network)
		if err != nil {
			s.closeLog()
			return nil, err
		}
		s.chain = network.NewRPCClient(*rpcCfg)
		s.logger.Debug("rpc configured", "url", rpcCfg.URL)
	}

	s.entropy = o.entropy
	if s.entropy == nil {
		s.entropy = pool.NewHashEntropy(network.BlockHashSource{Chain: s.chain})
	}

	store, err := pool.OpenBoltStore(config.DBPath(cfg.DataDir))
	if err != nil {
		s.closeLog()
		return nil, err
	}
	s.store = store
	s.bus = notify.NewBus(s.logger)

	s.logger.Info("service opened", "datadir", cfg.DataDir)
	return s, nil
}

// CreatePool persists a new pool funded by escrow and opens it. The escrow
// must hold the pool funding plus the fees of one payout per share.
func (s *Service) CreatePool(ctx context.Context, params pool.Params, escrow *payout.Escrow) (*pool.Pool, error) {
	if err := s.checkOpen(params.ID); err != nil {
		return nil, err
	}
	if escrow == nil {
		return nil, fmt.Errorf("%w: escrow", payout.ErrNilParam)
	}
	if params.Owner == (pool.Identity{}) && s.wallet != nil {
		owner, err := s.ownerIdentity()
		if err != nil {
			return nil, err
		}
		params.Owner = owner
	}
	escrow, err := s.escrowKey(params.ID, escrow)
	if err != nil {
		return nil, err
	}
	if err := s.checkFunding(escrow, params.Funding, params.ShareCount); err != nil {
		return nil, err
	}
	payer, err := payout.NewTxPayer(ctx, s.chain, escrow, s.cfg.FeeRate, s.logger)
	if err != nil {
		return nil, err
	}

	p, err := pool.Create(s.store, params, s.poolOptions(payer)...)
	if err != nil {
		return nil, err
	}
	return s.register(p)
}

// OpenPool reopens a stored pool. escrow is the current escrow output, which
// must cover what the pool still owes.
func (s *Service) OpenPool(ctx context.Context, id pool.PoolID, escrow *payout.Escrow) (*pool.Pool, error) {
	if err := s.checkOpen(id); err != nil {
		return nil, err
	}

	state, _, err := s.store.LoadPool(id)
	if err != nil {
		return nil, err
	}
	var payer pool.Payer
	if state.RemainingTotal == 0 {
		// Drained or zero-payout tail: nothing left to release on chain.
		payer = pool.PayerFunc(func(context.Context, pool.PoolID, pool.Identity, uint64) error { return nil })
	} else {
		if escrow == nil {
			return nil, fmt.Errorf("%w: escrow", payout.ErrNilParam)
		}
		escrow, err = s.escrowKey(id, escrow)
		if err != nil {
			return nil, err
		}
		if err := s.checkFunding(escrow, state.RemainingTotal, state.SharesRemaining); err != nil {
			return nil, err
		}
		payer, err = payout.NewTxPayer(ctx, s.chain, escrow, s.cfg.FeeRate, s.logger)
		if err != nil {
			return nil, err
		}
	}

	p, err := pool.Open(s.store, id, s.poolOptions(payer)...)
	if err != nil {
		return nil, err
	}
	return s.register(p)
}

// ResolvePending settles or drops the pending claim of claimant on pool id
// once the operator has checked whether its payout reached the chain. The
// pool is dropped from the service; reopen it with OpenPool.
func (s *Service) ResolvePending(id pool.PoolID, claimant pool.Identity, paid bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.pools, id)
	s.mu.Unlock()

	if err := pool.ResolvePending(s.store, id, claimant, paid); err != nil {
		return err
	}
	s.logger.Info("pending claim resolved", "pool", id.String(), "claimant", claimant.String(), "paid", paid)
	return nil
}

// EscrowAddress returns the address to fund for pool id.
func (s *Service) EscrowAddress(id pool.PoolID) (string, error) {
	if s.wallet == nil {
		return "", ErrNoWallet
	}
	return s.wallet.EscrowAddress(id)
}

// Pool returns an open pool.
func (s *Service) Pool(id pool.PoolID) (*pool.Pool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	return p, ok
}

// Events subscribes to claim-completed events of every pool on the service.
func (s *Service) Events(buffer int) (<-chan pool.ClaimEvent, func()) {
	return s.bus.Subscribe(buffer)
}

// DroppedEvents returns how many events subscribers missed.
func (s *Service) DroppedEvents() uint64 { return s.bus.Dropped() }

// Close closes the event bus, the ledger and the log file.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.bus.Close()
	err := s.store.Close()
	if s.logCloser != nil {
		err = errors.Join(err, s.logCloser.Close())
	}
	return err
}

func (s *Service) poolOptions(payer pool.Payer) []pool.Option {
	return []pool.Option{
		pool.WithPayer(payer),
		pool.WithEntropy(s.entropy),
		pool.WithNotifier(notify.Multi{s.bus, notify.LogNotifier{Logger: s.logger}}),
		pool.WithLogger(s.logger),
	}
}

// escrowKey returns escrow with its key filled in from the wallet when the
// caller supplied only the outpoint.
func (s *Service) escrowKey(id pool.PoolID, escrow *payout.Escrow) (*payout.Escrow, error) {
	if escrow.PrivateKey != nil {
		return escrow, nil
	}
	if s.wallet == nil {
		return nil, fmt.Errorf("%w: escrow private key", payout.ErrNilParam)
	}
	kp, err := s.wallet.EscrowKey(id)
	if err != nil {
		return nil, err
	}
	e := *escrow
	e.PrivateKey = kp.PrivateKey
	return &e, nil
}

func (s *Service) ownerIdentity() (pool.Identity, error) {
	kp, err := s.wallet.OwnerKey()
	if err != nil {
		return pool.Identity{}, err
	}
	return kp.Identity()
}

func (s *Service) checkFunding(escrow *payout.Escrow, owed, shares uint64) error {
	need := owed + payout.FeeHeadroom(shares, s.cfg.FeeRate)
	if escrow.Amount < need {
		return fmt.Errorf("%w: escrow %s holds %d sat, need %d",
			ErrUnderfunded, escrow.Outpoint(), escrow.Amount, need)
	}
	return nil
}

func (s *Service) checkOpen(id pool.PoolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.pools[id]; ok {
		return fmt.Errorf("%w: %s", ErrPoolOpen, id)
	}
	return nil
}

func (s *Service) register(p *pool.Pool) (*pool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.pools[p.ID()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolOpen, p.ID())
	}
	s.pools[p.ID()] = p
	return p, nil
}

func (s *Service) closeLog() {
	if s.logCloser != nil {
		_ = s.logCloser.Close()
	}
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "SHAREPOOL_") {
			env[k] = v
		}
	}
	return env
}
