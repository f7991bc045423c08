package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketBlobs     = []byte("blobs")
	bucketDocuments = []byte("documents")
)

// BoltDB wraps a single bbolt file holding both node namespaces.
type BoltDB struct {
	db *bbolt.DB
}

// OpenBoltDB opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltDB(dbPath string) (*BoltDB, error) {
	if dbPath == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrIOFailure, err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %w", ErrIOFailure, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBlobs, bucketDocuments} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	return &BoltDB{db: db}, nil
}

// Close closes the underlying database.
func (b *BoltDB) Close() error { return b.db.Close() }

// Blobs returns a Store over the content-addressed blob bucket.
func (b *BoltDB) Blobs() *BoltStore { return &BoltStore{db: b.db, bucket: bucketBlobs} }

// Documents returns a Store over the mutable document bucket.
func (b *BoltDB) Documents() *BoltStore { return &BoltStore{db: b.db, bucket: bucketDocuments} }

// BoltStore implements Store on one bbolt bucket.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
}

var _ Store = (*BoltStore)(nil)

// Put stores data under addr.
func (s *BoltStore) Put(ctx context.Context, addr Address, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyContent
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put(addr[:], data)
	})
	if err != nil {
		return fmt.Errorf("%w: boltstore: put: %w", ErrIOFailure, err)
	}
	return nil
}

// Get retrieves data by addr. The returned slice is a copy, valid
// after the transaction closes.
func (s *BoltStore) Get(ctx context.Context, addr Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get(addr[:])
		if v == nil {
			return ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("%w: boltstore: get: %w", ErrIOFailure, err)
	}
	return out, nil
}

// Has checks if data exists for addr.
func (s *BoltStore) Has(ctx context.Context, addr Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(s.bucket).Get(addr[:]) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: boltstore: has: %w", ErrIOFailure, err)
	}
	return found, nil
}

// Delete removes data by addr.
func (s *BoltStore) Delete(ctx context.Context, addr Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b.Get(addr[:]) == nil {
			return ErrNotFound
		}
		return b.Delete(addr[:])
	})
	if err != nil {
		if err == ErrNotFound {
			return err
		}
		return fmt.Errorf("%w: boltstore: delete: %w", ErrIOFailure, err)
	}
	return nil
}

// Size returns the size in bytes of the data stored under addr.
func (s *BoltStore) Size(ctx context.Context, addr Address) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var size int64 = -1
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(s.bucket).Get(addr[:]); v != nil {
			size = int64(len(v))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: boltstore: size: %w", ErrIOFailure, err)
	}
	if size < 0 {
		return 0, ErrNotFound
	}
	return size, nil
}

// List returns every address in the bucket in key order.
func (s *BoltStore) List(ctx context.Context) ([]Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Address
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, _ []byte) error {
			if len(k) == AddressSize {
				out = append(out, Address(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: boltstore: list: %w", ErrIOFailure, err)
	}
	return out, nil
}
