// Package timeouts defines shared timeout constants used across the edge
// runtime. Centralizing these values prevents drift between the intercept
// path, the provisioning path, and the health surface, and makes the
// durations discoverable.
package timeouts

import "time"

// Fetch caps a single synchronous origin fetch on the intercept path.
const Fetch = 10 * time.Second

// Refresh caps one background revalidation fetch. Refreshes are detached
// from the caller, so they get their own budget instead of inheriting a
// request deadline.
const Refresh = 30 * time.Second

// Provision caps the whole install pass: every manifest entry fetched and
// stored. It budgets the full manifest, not a single entry, so it sits well
// above Fetch.
const Provision = 2 * time.Minute

// GRPCDial caps the wait time when dialing the health surface.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the runtime waits for in-flight requests and
// detached refreshes during graceful shutdown.
const Shutdown = 5 * time.Second
