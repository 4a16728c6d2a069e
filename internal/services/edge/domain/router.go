package domain

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/veldtmaps/edge/internal/services/edge/domain"

// Router classifies intercepted requests and dispatches them to the
// strategy table: shell and external assets to cache-first, tiles to
// stale-while-revalidate, API calls and everything else to network-first.
type Router struct {
	classifier   *Classifier
	cacheFirst   Strategy
	networkFirst Strategy
	revalidating Strategy
	tracer       trace.Tracer
}

// NewRouter wires the dispatch table.
func NewRouter(classifier *Classifier, cacheFirst, networkFirst, revalidating Strategy) (*Router, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if cacheFirst == nil || networkFirst == nil || revalidating == nil {
		return nil, fmt.Errorf("all three strategies are required")
	}
	return &Router{
		classifier:   classifier,
		cacheFirst:   cacheFirst,
		networkFirst: networkFirst,
		revalidating: revalidating,
		tracer:       otel.Tracer(tracerName),
	}, nil
}

// Classify exposes the classification result for one request URL.
func (r *Router) Classify(u *url.URL) RequestClass {
	return r.classifier.Classify(u)
}

// Route serves one intercepted request through its strategy. Side-effecting
// methods are rejected with ErrMethodIneligible; the caller is expected to
// pass those through to the network untouched.
func (r *Router) Route(ctx context.Context, method string, u *url.URL) (StoredResponse, error) {
	key, err := NewKey(method, u)
	if err != nil {
		return StoredResponse{}, err
	}
	class := r.classifier.Classify(u)

	ctx, span := r.tracer.Start(ctx, "edge.route",
		trace.WithAttributes(
			attribute.String("edge.request_class", string(class)),
			attribute.String("edge.key", key.String()),
		),
	)
	defer span.End()

	resp, err := r.strategyFor(class).Serve(ctx, class, key)
	if err != nil {
		span.RecordError(err)
		return StoredResponse{}, err
	}
	span.SetAttributes(attribute.Int("edge.status", resp.Status))
	return resp, nil
}

func (r *Router) strategyFor(class RequestClass) Strategy {
	switch class {
	case ClassShell, ClassExternal:
		return r.cacheFirst
	case ClassTile:
		return r.revalidating
	default:
		return r.networkFirst
	}
}
