package screener

import "errors"

// Sentinel errors for the acquisition pipeline and its collaborators. Wrap
// them with fmt.Errorf("...: %w", err) so callers can classify with
// errors.Is while logs keep the full cause.
var (
	// ErrStoreUnavailable classifies configuration store failures. The cache
	// absorbs it through the fallback chain; it never reaches fetch callers.
	ErrStoreUnavailable = errors.New("config store unavailable")

	// ErrUnknownScreener means the requested key resolved to no descriptor.
	ErrUnknownScreener = errors.New("unknown screener")

	// ErrFilterNotApplied means no index selection from a filter request
	// landed. Non-fatal: the pipeline proceeds with unfiltered results.
	ErrFilterNotApplied = errors.New("index filter not applied")

	// ErrDownloadTimeout means the export download never stabilized within
	// its bound. Non-fatal: the pipeline falls back to scraping.
	ErrDownloadTimeout = errors.New("export download timed out")

	// ErrScrapeFailed means both retrieval paths produced zero rows.
	ErrScrapeFailed = errors.New("scrape produced no rows")

	// ErrSessionUnresponsive means the liveness probe failed.
	ErrSessionUnresponsive = errors.New("browser session unresponsive")

	// ErrNotInitialized means a browser operation ran before Initialize or
	// after Cleanup.
	ErrNotInitialized = errors.New("browser session not initialized")

	// ErrInitFailed means the browser automation handle could not be created.
	ErrInitFailed = errors.New("browser initialization failed")
)
