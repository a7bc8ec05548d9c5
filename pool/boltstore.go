package pool

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketPools  = []byte("pools")
	bucketClaims = []byte("claims")
	keyState     = []byte("state")
)

// BoltStore persists pool ledgers in bbolt. Each pool is a nested bucket
// under "pools" holding the serialized state and a "claims" bucket keyed by
// claimant identity.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("pool: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("pool: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPools)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pool: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// poolBucket returns the nested bucket of a pool, or nil if absent.
func poolBucket(tx *bbolt.Tx, id PoolID) *bbolt.Bucket {
	return tx.Bucket(bucketPools).Bucket(id[:])
}

// CreatePool stores the initial state of a new pool. The state and the empty
// claimed set are written in one transaction.
func (s *BoltStore) CreatePool(state *State) error {
	if state == nil {
		return fmt.Errorf("%w: state", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		pools := tx.Bucket(bucketPools)
		if pools.Bucket(state.ID[:]) != nil {
			return fmt.Errorf("%w: %s", ErrPoolExists, state.ID)
		}
		pb, err := pools.CreateBucket(state.ID[:])
		if err != nil {
			return fmt.Errorf("boltstore: create pool bucket: %w", err)
		}
		if _, err := pb.CreateBucket(bucketClaims); err != nil {
			return fmt.Errorf("boltstore: create claims bucket: %w", err)
		}
		if err := pb.Put(keyState, SerializeState(state)); err != nil {
			return fmt.Errorf("boltstore: put state: %w", err)
		}
		return nil
	})
}

// LoadPool returns the pool state and its claim records ordered by Seq.
func (s *BoltStore) LoadPool(id PoolID) (*State, []ClaimRecord, error) {
	var (
		state  *State
		claims []ClaimRecord
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		pb := poolBucket(tx, id)
		if pb == nil {
			return fmt.Errorf("%w: %s", ErrPoolNotFound, id)
		}
		var err error
		state, err = DeserializeState(pb.Get(keyState))
		if err != nil {
			return fmt.Errorf("boltstore: decode state: %w", err)
		}
		return pb.Bucket(bucketClaims).ForEach(func(k, v []byte) error {
			rec, err := DeserializeClaim(v)
			if err != nil {
				return fmt.Errorf("boltstore: decode claim %x: %w", k, err)
			}
			claims = append(claims, *rec)
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	sortClaims(claims)
	return state, claims, nil
}

// MarkClaimed inserts a pending claim record. The write is fsynced before
// MarkClaimed returns.
func (s *BoltStore) MarkClaimed(id PoolID, rec *ClaimRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: claim record", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		pb := poolBucket(tx, id)
		if pb == nil {
			return fmt.Errorf("%w: %s", ErrPoolNotFound, id)
		}
		cb := pb.Bucket(bucketClaims)
		if cb.Get(rec.Claimant[:]) != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyClaimed, rec.Claimant)
		}
		if err := cb.Put(rec.Claimant[:], SerializeClaim(rec)); err != nil {
			return fmt.Errorf("boltstore: put claim: %w", err)
		}
		return nil
	})
}

// RevertClaim removes a pending claim record.
func (s *BoltStore) RevertClaim(id PoolID, claimant Identity) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		pb := poolBucket(tx, id)
		if pb == nil {
			return fmt.Errorf("%w: %s", ErrPoolNotFound, id)
		}
		cb := pb.Bucket(bucketClaims)
		data := cb.Get(claimant[:])
		if data == nil {
			return fmt.Errorf("%w: %s", ErrClaimNotFound, claimant)
		}
		rec, err := DeserializeClaim(data)
		if err != nil {
			return fmt.Errorf("boltstore: decode claim: %w", err)
		}
		if rec.Status != ClaimPending {
			return fmt.Errorf("%w: cannot revert %s claim of %s", ErrInvalidClaimData, rec.Status, claimant)
		}
		if err := cb.Delete(claimant[:]); err != nil {
			return fmt.Errorf("boltstore: delete claim: %w", err)
		}
		return nil
	})
}

// SettleClaim overwrites the claim record and the pool state in one transaction.
func (s *BoltStore) SettleClaim(id PoolID, rec *ClaimRecord, state *State) error {
	if rec == nil || state == nil {
		return fmt.Errorf("%w: claim record and state", ErrNilParam)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		pb := poolBucket(tx, id)
		if pb == nil {
			return fmt.Errorf("%w: %s", ErrPoolNotFound, id)
		}
		cb := pb.Bucket(bucketClaims)
		if cb.Get(rec.Claimant[:]) == nil {
			return fmt.Errorf("%w: %s", ErrClaimNotFound, rec.Claimant)
		}
		if err := cb.Put(rec.Claimant[:], SerializeClaim(rec)); err != nil {
			return fmt.Errorf("boltstore: put claim: %w", err)
		}
		if err := pb.Put(keyState, SerializeState(state)); err != nil {
			return fmt.Errorf("boltstore: put state: %w", err)
		}
		return nil
	})
}
