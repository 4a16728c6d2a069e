// Package domain implements the request-interception and cache-lifecycle
// engine: partition naming and versioning, request classification, the
// three retrieval strategies, the install/activate lifecycle, and the
// deferred-work coordinator.
package domain

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxEntryBody caps how many response bytes one cache entry may hold.
const maxEntryBody = 32 << 20

// Key is the canonical identity of an interceptable request: method plus
// absolute URL. Only read-only methods are eligible.
type Key struct {
	Method string
	URL    string
}

// NewKey derives the canonical cache key for a request. Side-effecting
// methods are rejected with ErrMethodIneligible.
func NewKey(method string, u *url.URL) (Key, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if !EligibleMethod(method) {
		return Key{}, ErrMethodIneligible
	}
	if u == nil {
		return Key{}, fmt.Errorf("request url is required")
	}
	return Key{Method: method, URL: u.String()}, nil
}

// EligibleMethod reports whether a method may be intercepted. Everything
// else passes through to the network untouched.
func EligibleMethod(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet, http.MethodHead:
		return true
	default:
		return false
	}
}

// String renders the key in its stored "METHOD url" form.
func (k Key) String() string {
	return k.Method + " " + k.URL
}

// StoredResponse is a cached response snapshot. Entries are replaced
// wholesale; there is no per-entry TTL and no partial update.
type StoredResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// Cacheable reports whether the response should be written to a partition.
// Only 2xx responses are stored.
func (r StoredResponse) Cacheable() bool {
	return r.Status >= 200 && r.Status < 300
}

// Snapshot drains an http.Response into a StoredResponse. The response body
// is closed.
func Snapshot(resp *http.Response, now time.Time) (StoredResponse, error) {
	if resp == nil {
		return StoredResponse{}, fmt.Errorf("response is required")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEntryBody+1))
	if err != nil {
		return StoredResponse{}, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxEntryBody {
		return StoredResponse{}, fmt.Errorf("response body exceeds %d bytes", maxEntryBody)
	}
	return StoredResponse{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: now.UTC(),
	}, nil
}

// Unavailable is the synthetic response returned when neither the cache nor
// the network can satisfy a request. Callers always receive a response
// object; the status communicates unavailability instead of a transport
// error.
func Unavailable() StoredResponse {
	return StoredResponse{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{
			"Content-Type": []string{"text/plain; charset=utf-8"},
		},
		Body: []byte("offline: content unavailable\n"),
	}
}

// Write copies the stored response onto an HTTP response writer.
func (r StoredResponse) Write(w http.ResponseWriter) error {
	for name, values := range r.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, err := w.Write(r.Body)
	return err
}
