package app

import (
	"context"
	"fmt"
	"net/url"

	"github.com/veldtmaps/edge/internal/services/edge/domain"
)

// warmShellTag names the built-in deferred task that walks the shell
// manifest back through the strategy router.
const warmShellTag = "warm-shell"

// registerDefaultTasks binds the gateway's built-in deferred work. A
// warm-shell trigger re-requests every shell entry through the router, so
// once connectivity returns the cache repopulates anything a degraded
// install or a partition wipe left missing.
func registerDefaultTasks(coord *domain.Coordinator, router *domain.Router, origin *url.URL, manifest domain.Manifest) error {
	warm := func(ctx context.Context) error {
		for _, path := range manifest.Shell {
			target := origin.ResolveReference(&url.URL{Path: path})
			if _, err := router.Route(ctx, "GET", target); err != nil {
				return fmt.Errorf("warm %s: %w", target, err)
			}
		}
		return nil
	}
	return coord.Register(warmShellTag, warm)
}
