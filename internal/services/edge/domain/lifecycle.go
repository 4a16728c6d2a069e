package domain

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"golang.org/x/sync/errgroup"

	platformerrors "github.com/veldtmaps/edge/internal/platform/errors"
)

// installConcurrency bounds parallel manifest fetches during install.
const installConcurrency = 8

// Lifecycle drives the install/activate transitions. Install provisions the
// current version's partitions all-or-nothing; activate deletes every
// partition outside the current version's expected set. Between transitions
// the engine idles and only the strategies run.
type Lifecycle struct {
	parts    Partitions
	fetch    Fetcher
	manifest Manifest
	origin   *url.URL
	events   Recorder
	logf     func(string, ...any)
}

// NewLifecycle builds the lifecycle controller for one manifest release.
// origin resolves the manifest's root-relative shell paths.
func NewLifecycle(parts Partitions, fetch Fetcher, manifest Manifest, origin *url.URL, events Recorder, logf func(string, ...any)) (*Lifecycle, error) {
	if parts == nil {
		return nil, ErrPartitionsNotConfigured
	}
	if fetch == nil {
		return nil, ErrFetcherNotConfigured
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if origin == nil || !origin.IsAbs() {
		return nil, fmt.Errorf("absolute origin url is required")
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Lifecycle{
		parts:    parts,
		fetch:    fetch,
		manifest: manifest,
		origin:   origin,
		events:   events,
		logf:     logf,
	}, nil
}

// Version returns the manifest release version.
func (l *Lifecycle) Version() string {
	return l.manifest.Version
}

// Install provisions the shell partition from the shell manifest and
// pre-populates the dynamic partition from the external-resource manifest.
// Any fetch failure fails the whole attempt and removes the partially
// provisioned partitions, so no partial shell is left addressable; the host
// retries per its own policy. Re-running install with identical manifests
// is idempotent: writes are keyed, so membership does not duplicate.
func (l *Lifecycle) Install(ctx context.Context) error {
	version := l.manifest.Version

	shellURLs := make([]string, 0, len(l.manifest.Shell))
	for _, path := range l.manifest.Shell {
		shellURLs = append(shellURLs, l.origin.ResolveReference(&url.URL{Path: path}).String())
	}

	if err := l.provision(ctx, PartitionName(KindShell, version), shellURLs); err != nil {
		l.unwind(version)
		return platformerrors.Wrap(platformerrors.CodeProvisionFailed, "provision shell partition", err)
	}
	if err := l.provision(ctx, PartitionName(KindDynamic, version), l.manifest.External); err != nil {
		l.unwind(version)
		return platformerrors.Wrap(platformerrors.CodeProvisionFailed, "provision dynamic partition", err)
	}

	record(ctx, l.events, Event{Outcome: OutcomeInstalled, Detail: version})
	l.logf("installed version %s: %d shell entries, %d external entries",
		version, len(l.manifest.Shell), len(l.manifest.External))
	return nil
}

// Activate enumerates partitions and deletes every one whose name is not in
// the current version's expected set, then the engine takes over
// interception immediately. Deleting an absent partition is a no-op.
func (l *Lifecycle) Activate(ctx context.Context) error {
	expected := make(map[string]struct{})
	for _, name := range ExpectedNames(l.manifest.Version) {
		expected[name] = struct{}{}
	}

	names, err := l.parts.ListPartitionNames(ctx)
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}
	for _, name := range names {
		if _, ok := expected[name]; ok {
			continue
		}
		if _, err := l.parts.DeletePartition(ctx, name); err != nil {
			return fmt.Errorf("delete stale partition %s: %w", name, err)
		}
		l.logf("activate: deleted stale partition %s", name)
	}

	record(ctx, l.events, Event{Outcome: OutcomeActivated, Detail: l.manifest.Version})
	return nil
}

// provision fetches every URL and stores it into the named partition,
// all-or-nothing.
func (l *Lifecycle) provision(ctx context.Context, name string, urls []string) error {
	part, err := l.parts.OpenPartition(ctx, name)
	if err != nil {
		return fmt.Errorf("open partition %s: %w", name, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(installConcurrency)
	for _, raw := range urls {
		group.Go(func() error {
			u, err := url.Parse(raw)
			if err != nil {
				return fmt.Errorf("parse manifest entry %q: %w", raw, err)
			}
			key, err := NewKey("GET", u)
			if err != nil {
				return err
			}
			resp, err := l.fetch.Fetch(groupCtx, key)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", raw, err)
			}
			if !resp.Cacheable() {
				return fmt.Errorf("fetch %s: status %d", raw, resp.Status)
			}
			if err := part.Put(groupCtx, key, resp); err != nil {
				return fmt.Errorf("store %s: %w", raw, err)
			}
			return nil
		})
	}
	return group.Wait()
}

// unwind removes this version's partitions after a failed install attempt.
func (l *Lifecycle) unwind(version string) {
	ctx := context.Background()
	for _, name := range ExpectedNames(version) {
		if _, err := l.parts.DeletePartition(ctx, name); err != nil {
			l.logf("unwind partition %s: %v", name, err)
		}
	}
}
