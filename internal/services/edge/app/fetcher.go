package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	platformerrors "github.com/veldtmaps/edge/internal/platform/errors"
	"github.com/veldtmaps/edge/internal/platform/timeouts"
	"github.com/veldtmaps/edge/internal/services/edge/domain"
)

// originFetcher performs real network fetches for the strategies and the
// installer. Keys carry absolute URLs, so the fetcher needs no base; the
// per-fetch deadline keeps a dead origin from pinning an intercept.
type originFetcher struct {
	client  *http.Client
	timeout time.Duration
}

func newOriginFetcher(client *http.Client) *originFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &originFetcher{client: client, timeout: timeouts.Fetch}
}

// Fetch implements domain.Fetcher.
func (f *originFetcher) Fetch(ctx context.Context, key domain.Key) (domain.StoredResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, key.Method, key.URL, nil)
	if err != nil {
		return domain.StoredResponse{}, fmt.Errorf("build request %s: %w", key, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.StoredResponse{}, platformerrors.WrapWithMetadata(
			platformerrors.CodeFetchFailed,
			fmt.Sprintf("fetch %s", key),
			map[string]string{"key": key.String()},
			err,
		)
	}
	defer resp.Body.Close()

	stored, err := domain.Snapshot(resp, time.Now().UTC())
	if err != nil {
		return domain.StoredResponse{}, fmt.Errorf("snapshot %s: %w", key, err)
	}
	return stored, nil
}

var _ domain.Fetcher = (*originFetcher)(nil)
