package domain

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"testing"

	platformerrors "github.com/veldtmaps/edge/internal/platform/errors"
)

func testOrigin(t *testing.T) *url.URL {
	t.Helper()
	origin, err := url.Parse("https://app.veldt.example")
	if err != nil {
		t.Fatalf("parse origin: %v", err)
	}
	return origin
}

func seedFetcherForManifest(t *testing.T, fetch *countingFetcher, m Manifest, origin *url.URL) {
	t.Helper()
	for _, path := range m.Shell {
		fetch.serve(origin.ResolveReference(&url.URL{Path: path}).String(), "shell:"+path)
	}
	for _, raw := range m.External {
		fetch.serve(raw, "external:"+raw)
	}
}

func TestLifecycleInstallProvisionsBothPartitions(t *testing.T) {
	parts := newMemPartitions()
	fetch := newCountingFetcher()
	manifest := testManifest()
	origin := testOrigin(t)
	seedFetcherForManifest(t, fetch, manifest, origin)

	lc, err := NewLifecycle(parts, fetch, manifest, origin, nil, func(string, ...any) {})
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}
	if err := lc.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}

	if got := parts.entryCount(PartitionName(KindShell, manifest.Version)); got != len(manifest.Shell) {
		t.Fatalf("shell entries = %d, want %d", got, len(manifest.Shell))
	}
	if got := parts.entryCount(PartitionName(KindDynamic, manifest.Version)); got != len(manifest.External) {
		t.Fatalf("dynamic entries = %d, want %d", got, len(manifest.External))
	}
}

func TestLifecycleInstallIsAllOrNothing(t *testing.T) {
	parts := newMemPartitions()
	fetch := newCountingFetcher()
	manifest := testManifest()
	origin := testOrigin(t)
	seedFetcherForManifest(t, fetch, manifest, origin)

	// One shell asset fails; nothing from this version may survive.
	broken := origin.ResolveReference(&url.URL{Path: manifest.Shell[len(manifest.Shell)-1]}).String()
	fetch.fail(broken, errors.New("origin 500"))

	lc, err := NewLifecycle(parts, fetch, manifest, origin, nil, func(string, ...any) {})
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}
	err = lc.Install(context.Background())
	if err == nil {
		t.Fatal("install succeeded with a failing shell asset")
	}
	var perr *platformerrors.Error
	if !errors.As(err, &perr) || perr.Code != platformerrors.CodeProvisionFailed {
		t.Fatalf("install error = %v, want code %s", err, platformerrors.CodeProvisionFailed)
	}

	names, listErr := parts.ListPartitionNames(context.Background())
	if listErr != nil {
		t.Fatalf("list partitions: %v", listErr)
	}
	if len(names) != 0 {
		t.Fatalf("partitions after failed install = %v, want none", names)
	}
}

func TestLifecycleInstallIsIdempotent(t *testing.T) {
	parts := newMemPartitions()
	fetch := newCountingFetcher()
	manifest := testManifest()
	origin := testOrigin(t)
	seedFetcherForManifest(t, fetch, manifest, origin)

	lc, err := NewLifecycle(parts, fetch, manifest, origin, nil, func(string, ...any) {})
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}
	if err := lc.Install(context.Background()); err != nil {
		t.Fatalf("first install: %v", err)
	}
	if err := lc.Install(context.Background()); err != nil {
		t.Fatalf("second install: %v", err)
	}

	if got := parts.entryCount(PartitionName(KindShell, manifest.Version)); got != len(manifest.Shell) {
		t.Fatalf("shell entries after reinstall = %d, want %d", got, len(manifest.Shell))
	}
}

func TestLifecycleActivateDeletesStalePartitions(t *testing.T) {
	parts := newMemPartitions()
	fetch := newCountingFetcher()
	manifest := testManifest()
	origin := testOrigin(t)
	seedFetcherForManifest(t, fetch, manifest, origin)

	// Partitions left over from a previous version, plus the current set.
	staleKey := mustKey(t, "https://app.veldt.example/old.js")
	seedPartition(t, parts, PartitionName(KindShell, "v1"), staleKey, "old shell")
	seedPartition(t, parts, PartitionName(KindDynamic, "v1"), staleKey, "old dynamic")

	lc, err := NewLifecycle(parts, fetch, manifest, origin, nil, func(string, ...any) {})
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}
	if err := lc.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := lc.Activate(context.Background()); err != nil {
		t.Fatalf("activate: %v", err)
	}

	names, err := parts.ListPartitionNames(context.Background())
	if err != nil {
		t.Fatalf("list partitions: %v", err)
	}
	sort.Strings(names)
	want := ExpectedNames(manifest.Version)
	sort.Strings(want)
	if len(names) != len(want) {
		t.Fatalf("partitions after activate = %v, want %v", names, want)
	}
	for i := range names {
		if names[i] != want[i] {
			t.Fatalf("partitions after activate = %v, want %v", names, want)
		}
	}
}

func TestLifecycleRejectsInvalidManifest(t *testing.T) {
	manifest := testManifest()
	manifest.Version = ""
	_, err := NewLifecycle(newMemPartitions(), newCountingFetcher(), manifest, testOrigin(t), nil, nil)
	if err == nil {
		t.Fatal("lifecycle accepted a manifest without a version")
	}
}

func TestLifecycleRejectsRelativeOrigin(t *testing.T) {
	origin := &url.URL{Path: "/app"}
	_, err := NewLifecycle(newMemPartitions(), newCountingFetcher(), testManifest(), origin, nil, nil)
	if err == nil {
		t.Fatal("lifecycle accepted a relative origin")
	}
}

func TestLifecycleInstallRejectsNonCacheableAsset(t *testing.T) {
	parts := newMemPartitions()
	fetch := newCountingFetcher()
	manifest := testManifest()
	origin := testOrigin(t)
	seedFetcherForManifest(t, fetch, manifest, origin)

	missing := origin.ResolveReference(&url.URL{Path: manifest.Shell[0]}).String()
	fetch.serveStatus(missing, 404, "not found")

	lc, err := NewLifecycle(parts, fetch, manifest, origin, nil, func(string, ...any) {})
	if err != nil {
		t.Fatalf("new lifecycle: %v", err)
	}
	if err := lc.Install(context.Background()); err == nil {
		t.Fatal("install accepted a 404 shell asset")
	}
}
