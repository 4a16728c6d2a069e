package domain

import (
	"context"
	"fmt"
	"log"

	platformerrors "github.com/veldtmaps/edge/internal/platform/errors"
)

// Fetcher performs one origin fetch for a cache key.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (StoredResponse, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key Key) (StoredResponse, error)

// Fetch implements Fetcher for FetcherFunc.
func (fn FetcherFunc) Fetch(ctx context.Context, key Key) (StoredResponse, error) {
	return fn(ctx, key)
}

// Extender schedules work that outlives the calling request. The runtime
// guarantees accepted work settles before teardown.
type Extender interface {
	Extend(name string, fn func(ctx context.Context) error) error
}

// Strategy serves one intercepted request. Implementations never propagate
// transport errors: the caller always receives a response, with the
// synthetic unavailable response as the floor.
type Strategy interface {
	Serve(ctx context.Context, class RequestClass, key Key) (StoredResponse, error)
}

// CacheFirst serves shell and vendored assets. Those are immutable per
// version, so a stored entry is returned verbatim with no freshness check;
// correctness rests on version bumps creating new partitions.
type CacheFirst struct {
	view   *CacheView
	fetch  Fetcher
	events Recorder
}

// NewCacheFirst builds the cache-first strategy.
func NewCacheFirst(view *CacheView, fetch Fetcher, events Recorder) (*CacheFirst, error) {
	if view == nil {
		return nil, ErrPartitionsNotConfigured
	}
	if fetch == nil {
		return nil, ErrFetcherNotConfigured
	}
	return &CacheFirst{view: view, fetch: fetch, events: events}, nil
}

// Serve implements Strategy.
func (s *CacheFirst) Serve(ctx context.Context, class RequestClass, key Key) (StoredResponse, error) {
	cached, ok, err := s.view.Lookup(ctx, key)
	if err != nil {
		return StoredResponse{}, err
	}
	if ok {
		record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeHit})
		return cached, nil
	}

	fetched, err := s.fetch.Fetch(ctx, key)
	if err != nil {
		record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeUnavailable, Detail: err.Error()})
		return Unavailable(), nil
	}
	if err := s.view.StoreDynamic(ctx, key, fetched); err != nil {
		return StoredResponse{}, fmt.Errorf("write through: %w", err)
	}
	record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeMiss})
	return fetched, nil
}

// NetworkFirst serves API and uncategorized content: live state whenever
// connectivity exists, cache purely as a degradation path.
type NetworkFirst struct {
	view   *CacheView
	fetch  Fetcher
	events Recorder
}

// NewNetworkFirst builds the network-first strategy.
func NewNetworkFirst(view *CacheView, fetch Fetcher, events Recorder) (*NetworkFirst, error) {
	if view == nil {
		return nil, ErrPartitionsNotConfigured
	}
	if fetch == nil {
		return nil, ErrFetcherNotConfigured
	}
	return &NetworkFirst{view: view, fetch: fetch, events: events}, nil
}

// Serve implements Strategy.
func (s *NetworkFirst) Serve(ctx context.Context, class RequestClass, key Key) (StoredResponse, error) {
	fetched, err := s.fetch.Fetch(ctx, key)
	if err == nil {
		if err := s.view.StoreDynamic(ctx, key, fetched); err != nil {
			return StoredResponse{}, fmt.Errorf("write through: %w", err)
		}
		record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeMiss})
		return fetched, nil
	}

	cached, ok, lookupErr := s.view.Lookup(ctx, key)
	if lookupErr != nil {
		return StoredResponse{}, lookupErr
	}
	if ok {
		record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeFallback, Detail: err.Error()})
		return cached, nil
	}
	record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeUnavailable, Detail: err.Error()})
	return Unavailable(), nil
}

// StaleWhileRevalidate serves tile-like assets: cached data immediately,
// refreshed in the background. The refresh is handed to the keep-alive
// extender so it settles even though the caller never awaits it; refresh
// failures are logged and dropped by policy.
type StaleWhileRevalidate struct {
	view   *CacheView
	fetch  Fetcher
	tasks  Extender
	events Recorder
	logf   func(string, ...any)
}

// NewStaleWhileRevalidate builds the stale-while-revalidate strategy.
func NewStaleWhileRevalidate(view *CacheView, fetch Fetcher, tasks Extender, events Recorder, logf func(string, ...any)) (*StaleWhileRevalidate, error) {
	if view == nil {
		return nil, ErrPartitionsNotConfigured
	}
	if fetch == nil {
		return nil, ErrFetcherNotConfigured
	}
	if tasks == nil {
		return nil, fmt.Errorf("task extender is required")
	}
	if logf == nil {
		logf = log.Printf
	}
	return &StaleWhileRevalidate{view: view, fetch: fetch, tasks: tasks, events: events, logf: logf}, nil
}

// Serve implements Strategy.
func (s *StaleWhileRevalidate) Serve(ctx context.Context, class RequestClass, key Key) (StoredResponse, error) {
	cached, ok, err := s.view.Lookup(ctx, key)
	if err != nil {
		return StoredResponse{}, err
	}
	if ok {
		s.scheduleRefresh(class, key)
		record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeHit})
		return cached, nil
	}

	fetched, err := s.fetch.Fetch(ctx, key)
	if err != nil {
		record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeUnavailable, Detail: err.Error()})
		return Unavailable(), nil
	}
	if err := s.view.StoreDynamic(ctx, key, fetched); err != nil {
		return StoredResponse{}, fmt.Errorf("write through: %w", err)
	}
	record(ctx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeMiss})
	return fetched, nil
}

// scheduleRefresh hands a revalidation fetch to the extender. The task
// context is detached from the request; a rejected handoff (runtime
// draining) is itself a dropped refresh.
func (s *StaleWhileRevalidate) scheduleRefresh(class RequestClass, key Key) {
	err := s.tasks.Extend("revalidate "+key.String(), func(taskCtx context.Context) error {
		fetched, err := s.fetch.Fetch(taskCtx, key)
		if err != nil {
			record(taskCtx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeRefreshFail, Detail: err.Error()})
			return platformerrors.Wrap(platformerrors.CodeFetchFailed, fmt.Sprintf("revalidate %s", key), err)
		}
		if !fetched.Cacheable() {
			return nil
		}
		if err := s.view.StoreDynamic(taskCtx, key, fetched); err != nil {
			return err
		}
		record(taskCtx, s.events, Event{Class: class, Key: key.String(), Outcome: OutcomeRefresh})
		return nil
	})
	if err != nil {
		drop := platformerrors.Wrap(platformerrors.CodeRefreshDropped, fmt.Sprintf("drop revalidation for %s", key), err)
		s.logf("%s: %v: %v", drop.Code, drop, err)
	}
}
