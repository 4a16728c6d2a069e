// Package bbolt provides a BoltDB-backed cache partition store. Each
// partition maps to one bucket; entries are JSON-encoded responses keyed
// by request key.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/veldtmaps/edge/internal/services/edge/domain"
)

// Store provides a BoltDB-backed partition manager.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenPartition opens the named partition, creating its bucket on first
// use. Opening an existing name returns a handle onto the same bucket.
func (s *Store) OpenPartition(ctx context.Context, name string) (domain.Partition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("partition name is required")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return fmt.Errorf("create partition bucket %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &partition{db: s.db, name: name}, nil
}

// DeletePartition removes the named partition and everything in it. It
// reports whether the partition existed; deleting an absent partition is a
// no-op success.
func (s *Store) DeletePartition(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.db == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("partition name is required")
	}

	existed := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(name)) == nil {
			return nil
		}
		existed = true
		if err := tx.DeleteBucket([]byte(name)); err != nil {
			return fmt.Errorf("delete partition bucket %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

// ListPartitionNames enumerates every partition in the store.
func (s *Store) ListPartitionNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	return names, nil
}

// partition is a handle onto one partition bucket.
type partition struct {
	db   *bbolt.DB
	name string
}

// Name returns the partition name.
func (p *partition) Name() string {
	return p.name
}

// Get fetches one stored response by key.
func (p *partition) Get(ctx context.Context, key domain.Key) (domain.StoredResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredResponse{}, err
	}

	var resp domain.StoredResponse
	err := p.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(p.name))
		if bucket == nil {
			return domain.ErrEntryNotFound
		}
		payload := bucket.Get(entryKey(key))
		if payload == nil {
			return domain.ErrEntryNotFound
		}
		if err := json.Unmarshal(payload, &resp); err != nil {
			return fmt.Errorf("unmarshal entry %s: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return domain.StoredResponse{}, err
	}
	return resp, nil
}

// Put persists one stored response, overwriting any previous entry under
// the same key.
func (p *partition) Put(ctx context.Context, key domain.Key, resp domain.StoredResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal entry %s: %w", key, err)
	}

	return p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(p.name))
		if bucket == nil {
			return fmt.Errorf("partition bucket %s is missing", p.name)
		}
		return bucket.Put(entryKey(key), payload)
	})
}

// Keys enumerates every key in the partition.
func (p *partition) Keys(ctx context.Context) ([]domain.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []domain.Key
	err := p.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(p.name))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(raw, _ []byte) error {
			key, err := parseEntryKey(string(raw))
			if err != nil {
				return err
			}
			keys = append(keys, key)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list keys in %s: %w", p.name, err)
	}
	return keys, nil
}

// entryKey flattens a request key into its bucket key form.
func entryKey(key domain.Key) []byte {
	return []byte(key.String())
}

func parseEntryKey(raw string) (domain.Key, error) {
	method, url, ok := strings.Cut(raw, " ")
	if !ok {
		return domain.Key{}, fmt.Errorf("malformed entry key %q", raw)
	}
	return domain.Key{Method: method, URL: url}, nil
}

var _ domain.Partitions = (*Store)(nil)
