package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"github.com/veldtmaps/edge/internal/services/edge/domain"
	edgestorage "github.com/veldtmaps/edge/internal/services/edge/storage"
)

// maxPushPayload caps accepted push payload bodies.
const maxPushPayload = 64 << 10

// defaultEventListLimit bounds the debug event listing.
const defaultEventListLimit = 50

// maxEventListLimit caps a caller-supplied listing size.
const maxEventListLimit = 500

// Handler is the gateway's HTTP surface: eligible requests go through the
// strategy router, side-effecting methods pass through to the origin
// untouched, and a small debug surface exposes partitions, events, and the
// coordinator triggers.
type Handler struct {
	origin   *url.URL
	router   *domain.Router
	parts    domain.Partitions
	events   edgestorage.EventStore
	coord    *domain.Coordinator
	notifier domain.Notifier
	proxy    *httputil.ReverseProxy
	version  string
	logf     func(string, ...any)
}

// NewHandler wires the gateway HTTP surface.
func NewHandler(origin *url.URL, router *domain.Router, parts domain.Partitions, events edgestorage.EventStore, coord *domain.Coordinator, notifier domain.Notifier, version string, logf func(string, ...any)) *Handler {
	if logf == nil {
		logf = log.Printf
	}
	return &Handler{
		origin:   origin,
		router:   router,
		parts:    parts,
		events:   events,
		coord:    coord,
		notifier: notifier,
		proxy:    httputil.NewSingleHostReverseProxy(origin),
		version:  version,
		logf:     logf,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/healthz":
		h.handleHealthz(w, r)
		return
	case "/-/partitions":
		h.handlePartitions(w, r)
		return
	case "/-/events":
		h.handleEvents(w, r)
		return
	case "/-/sync":
		h.handleSync(w, r)
		return
	case "/-/push":
		h.handlePush(w, r)
		return
	}

	if !domain.EligibleMethod(r.Method) {
		h.proxy.ServeHTTP(w, r)
		return
	}

	resp, err := h.router.Route(r.Context(), r.Method, h.canonicalURL(r))
	if err != nil {
		h.logf("route %s %s: %v", r.Method, r.URL, err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	if err := resp.Write(w); err != nil {
		h.logf("write response %s %s: %v", r.Method, r.URL, err)
	}
}

// canonicalURL resolves the request URL into the absolute form cache keys
// use. Proxy-form requests already carry an absolute URL; origin-form
// requests resolve against the configured origin.
func (h *Handler) canonicalURL(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		return r.URL
	}
	return h.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

func (h *Handler) handlePartitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	names, err := h.parts.ListPartitionNames(r.Context())
	if err != nil {
		h.logf("list partitions: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logf, struct {
		Version    string   `json:"version"`
		Partitions []string `json:"partitions"`
	}{Version: h.version, Partitions: names})
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.events == nil {
		http.Error(w, "event store is not configured", http.StatusNotFound)
		return
	}
	limit := defaultEventListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxEventListLimit {
			http.Error(w, "limit must be between 1 and "+strconv.Itoa(maxEventListLimit), http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	events, err := h.events.ListEvents(r.Context(), limit)
	if err != nil {
		h.logf("list events: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	type eventEntry struct {
		Class     string `json:"class,omitempty"`
		Key       string `json:"key,omitempty"`
		Outcome   string `json:"outcome"`
		Detail    string `json:"detail,omitempty"`
		CreatedAt string `json:"created_at"`
	}
	entries := make([]eventEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, eventEntry{
			Class:     event.Class,
			Key:       event.Key,
			Outcome:   event.Outcome,
			Detail:    event.Detail,
			CreatedAt: event.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	writeJSON(w, h.logf, struct {
		Events []eventEntry `json:"events"`
	}{Events: entries})
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		http.Error(w, "tag query parameter is required", http.StatusBadRequest)
		return
	}
	// The trigger surface never observes handler failures.
	h.coord.OnTrigger(r.Context(), tag)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPushPayload))
	if err != nil {
		http.Error(w, "read payload", http.StatusBadRequest)
		return
	}
	h.coord.OnPush(r.Context(), raw, h.notifier)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, logf func(string, ...any), payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logf("encode response: %v", err)
	}
}

var _ http.Handler = (*Handler)(nil)
