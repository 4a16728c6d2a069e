package domain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"
)

// memPartitions is an in-memory Partitions fake with the same lazy-open and
// delete-absent semantics the bbolt store provides.
type memPartitions struct {
	mu    sync.Mutex
	parts map[string]*memPartition
}

func newMemPartitions() *memPartitions {
	return &memPartitions{parts: make(map[string]*memPartition)}
}

func (m *memPartitions) OpenPartition(_ context.Context, name string) (Partition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	part, ok := m.parts[name]
	if !ok {
		part = &memPartition{name: name, entries: make(map[Key]StoredResponse)}
		m.parts[name] = part
	}
	return part, nil
}

func (m *memPartitions) DeletePartition(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.parts[name]
	delete(m.parts, name)
	return ok, nil
}

func (m *memPartitions) ListPartitionNames(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.parts))
	for name := range m.parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memPartitions) entryCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	part, ok := m.parts[name]
	if !ok {
		return 0
	}
	part.mu.Lock()
	defer part.mu.Unlock()
	return len(part.entries)
}

type memPartition struct {
	name    string
	mu      sync.Mutex
	entries map[Key]StoredResponse
}

func (p *memPartition) Name() string { return p.name }

func (p *memPartition) Get(_ context.Context, key Key) (StoredResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	resp, ok := p.entries[key]
	if !ok {
		return StoredResponse{}, ErrEntryNotFound
	}
	return resp, nil
}

func (p *memPartition) Put(_ context.Context, key Key, resp StoredResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = resp
	return nil
}

func (p *memPartition) Keys(_ context.Context) ([]Key, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]Key, 0, len(p.entries))
	for key := range p.entries {
		keys = append(keys, key)
	}
	return keys, nil
}

// countingFetcher serves canned responses per URL and counts calls.
type countingFetcher struct {
	mu        sync.Mutex
	responses map[string]StoredResponse
	failing   map[string]error
	calls     map[string]int
}

func newCountingFetcher() *countingFetcher {
	return &countingFetcher{
		responses: make(map[string]StoredResponse),
		failing:   make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *countingFetcher) serve(url string, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = okResponse(body)
	delete(f.failing, url)
}

func (f *countingFetcher) serveStatus(url string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp := okResponse(body)
	resp.Status = status
	f.responses[url] = resp
	delete(f.failing, url)
}

func (f *countingFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[url] = err
	delete(f.responses, url)
}

func (f *countingFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *countingFetcher) Fetch(_ context.Context, key Key) (StoredResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key.URL]++
	if err, ok := f.failing[key.URL]; ok {
		return StoredResponse{}, err
	}
	if resp, ok := f.responses[key.URL]; ok {
		return resp, nil
	}
	return StoredResponse{}, fmt.Errorf("no canned response for %s", key.URL)
}

// manualExtender captures scheduled tasks so tests control when background
// work runs.
type manualExtender struct {
	mu    sync.Mutex
	tasks []func(ctx context.Context) error
	deny  error
}

func (e *manualExtender) Extend(_ string, fn func(ctx context.Context) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deny != nil {
		return e.deny
	}
	e.tasks = append(e.tasks, fn)
	return nil
}

func (e *manualExtender) runAll(ctx context.Context) {
	e.mu.Lock()
	tasks := e.tasks
	e.tasks = nil
	e.mu.Unlock()
	for _, fn := range tasks {
		_ = fn(ctx)
	}
}

func (e *manualExtender) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// recorderStub collects emitted events.
type recorderStub struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorderStub) RecordEvent(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorderStub) outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Outcome)
	}
	return out
}

func okResponse(body string) StoredResponse {
	return StoredResponse{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"text/plain"}},
		Body:     []byte(body),
		StoredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func mustKey(t interface{ Fatalf(string, ...any) }, rawURL string) Key {
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse url %s: %v", rawURL, err)
	}
	key, err := NewKey("GET", u)
	if err != nil {
		t.Fatalf("new key %s: %v", rawURL, err)
	}
	return key
}
