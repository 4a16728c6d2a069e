package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the two fixed partition kinds.
type Kind string

const (
	// KindShell holds the fixed, enumerable application-shell resources
	// needed for offline bootstrap.
	KindShell Kind = "shell"
	// KindDynamic holds opportunistically cached responses. Its membership
	// is unbounded within a version; eviction happens only at version
	// granularity when activate deletes the superseded partition.
	KindDynamic Kind = "dynamic"
)

// PartitionName embeds the release version into the partition identity, so
// a version bump produces disjoint names and no data migration. Old and new
// partitions coexist until activate deletes the stale set.
func PartitionName(kind Kind, version string) string {
	return fmt.Sprintf("%s-%s", kind, strings.TrimSpace(version))
}

// ExpectedNames returns the exact partition set a version owns.
func ExpectedNames(version string) []string {
	return []string{
		PartitionName(KindShell, version),
		PartitionName(KindDynamic, version),
	}
}

// Partition is a handle onto one named, versioned logical cache. Entries
// are independently keyed; writes are whole-entry overwrites and the last
// successful write wins.
type Partition interface {
	Name() string
	Get(ctx context.Context, key Key) (StoredResponse, error)
	Put(ctx context.Context, key Key, resp StoredResponse) error
	Keys(ctx context.Context) ([]Key, error)
}

// Partitions is the partition/version manager boundary. Opening is lazy and
// idempotent: opening an existing name returns the same logical store.
// Deleting an absent partition is a no-op success.
type Partitions interface {
	OpenPartition(ctx context.Context, name string) (Partition, error)
	DeletePartition(ctx context.Context, name string) (bool, error)
	ListPartitionNames(ctx context.Context) ([]string, error)
}

// CacheView is the read/write surface the strategies share: lookups scan
// the current version's partitions in order, opportunistic writes land in
// the dynamic partition.
type CacheView struct {
	parts   Partitions
	version string
}

// NewCacheView builds the strategy-facing view for one release version.
func NewCacheView(parts Partitions, version string) (*CacheView, error) {
	if parts == nil {
		return nil, ErrPartitionsNotConfigured
	}
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("version is required")
	}
	return &CacheView{parts: parts, version: strings.TrimSpace(version)}, nil
}

// Version returns the release version the view serves.
func (v *CacheView) Version() string {
	return v.version
}

// Lookup scans the current version's partitions for the key, shell first.
func (v *CacheView) Lookup(ctx context.Context, key Key) (StoredResponse, bool, error) {
	for _, name := range ExpectedNames(v.version) {
		part, err := v.parts.OpenPartition(ctx, name)
		if err != nil {
			return StoredResponse{}, false, fmt.Errorf("open partition %s: %w", name, err)
		}
		resp, err := part.Get(ctx, key)
		if err == nil {
			return resp, true, nil
		}
		if !errors.Is(err, ErrEntryNotFound) {
			return StoredResponse{}, false, fmt.Errorf("read partition %s: %w", name, err)
		}
	}
	return StoredResponse{}, false, nil
}

// StoreDynamic writes a cacheable response into the dynamic partition.
// Non-cacheable responses are skipped silently.
func (v *CacheView) StoreDynamic(ctx context.Context, key Key, resp StoredResponse) error {
	if !resp.Cacheable() {
		return nil
	}
	name := PartitionName(KindDynamic, v.version)
	part, err := v.parts.OpenPartition(ctx, name)
	if err != nil {
		return fmt.Errorf("open partition %s: %w", name, err)
	}
	if err := part.Put(ctx, key, resp); err != nil {
		return fmt.Errorf("store entry in %s: %w", name, err)
	}
	return nil
}
