// Package main hosts the screener service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes fetch, status, restart, config,
//     health, and metrics endpoints. Fetch requests name a screener strategy
//     and an optional index filter; responses carry the parsed rows together
//     with filter and timing metadata.
//   - Browser session: internal/browser.Manager owns a single headless Chrome
//     launched via chromedp, with a scratch download directory and optional
//     cookie sign-in. All page work serializes behind the session gate; one
//     browser does one thing at a time.
//   - Acquisition pipeline: internal/screener.Pipeline resolves the screener
//     against cached configuration, navigates or refreshes the page, applies
//     index filters through the dropdown protocol, and prefers the site's CSV
//     export, scraping the rendered table only when the export fails.
//   - Configuration: screener definitions live in a Postgres controls table
//     read through pgxpool and cached with a TTL. When the store is missing
//     or down the cache falls back to the last good read, then to built-in
//     defaults, so fetches keep working through database outages.
//   - Supervision: internal/monitor probes browser liveness on an interval
//     and restarts dead sessions. Lifecycle events flow through the events
//     hub into the log and Prometheus sinks.
//   - Plumbing: Viper populates config from env/files; zap provides
//     structured logging; Prometheus metrics are exported via the metrics
//     middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: fetches serialize on the session gate; liveness
//     probes and status reads bypass it so health checks never queue behind
//     a running fetch. Shutdown is coordinated via context cancellation.
//   - Observability: zap logs carry request IDs and screener keys at key
//     transitions; Prometheus counters/histograms track HTTP activity,
//     session restarts, and fetch outcomes.
//   - The process reacts to SIGINT/SIGTERM for graceful drain: the HTTP
//     server stops accepting work, the event hub flushes, and the browser
//     session and its download directory are torn down.
//
// Quick checklist:
//   - Configure env vars with the SCREENERD_ prefix: SCREENERD_SERVER_PORT,
//     SCREENERD_DATABASE_DSN, SCREENERD_BROWSER_COOKIE_FILE,
//     SCREENERD_CACHE_TTL, and SCREENERD_MONITOR_INTERVAL cover the common
//     deployments; anything in the config file can be overridden the same way.
//   - Run locally: go run ./cmd/screenerd -config config.yaml (or rely
//     solely on env overrides). Without a database DSN the service serves
//     the built-in screener defaults.
package main
