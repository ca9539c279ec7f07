// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - POST /fetch runs one screener acquisition and returns the parsed rows.
//   - GET /status reports session counters and cache freshness.
//   - POST /restart tears down and relaunches the browser session.
//   - POST /refresh_config forces a configuration reload from the store.
//   - GET /config lists the active screener descriptors.
//   - GET /health and GET /metrics for probes and Prometheus scraping.
//
// The operational routes can be gated behind an API key; health and metrics
// stay open so supervisors and scrapers never need credentials.
package api
