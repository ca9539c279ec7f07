package screener

import (
	"context"
	"fmt"
	"time"
)

// ConfigStore reads enabled screener rows from the backing store.
type ConfigStore interface {
	FetchEnabled(ctx context.Context) ([]ControlRow, error)
}

// Session is the browser automation surface the pipeline drives: navigation,
// a handful of DOM primitives, and the scratch download directory. Selector
// strings starting with "//" or "(" are treated as XPath, everything else as
// CSS. All methods must be called with the session gate held.
type Session interface {
	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// Reload refreshes the current page.
	Reload(ctx context.Context) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// ClickNth clicks the n-th (zero-based) element matching selector.
	ClickNth(ctx context.Context, selector string, n int) error
	// SendKeys focuses selector and types text into it.
	SendKeys(ctx context.Context, selector, text string) error
	// ClearInput empties the input element matching selector.
	ClearInput(ctx context.Context, selector string) error
	// PressEscape sends the Escape key to the page.
	PressEscape(ctx context.Context) error
	// ClickAt clicks absolute viewport coordinates.
	ClickAt(ctx context.Context, x, y float64) error
	// Texts returns the visible text of every element matching selector, in
	// document order. No matches yields an empty slice, not an error.
	Texts(ctx context.Context, selector string) ([]string, error)
	// HTML returns the full rendered document markup.
	HTML(ctx context.Context) (string, error)
	// DownloadDir returns the session's scratch download directory, or ""
	// before initialization.
	DownloadDir() string
}

// SessionControl extends Session with the serializing gate and the lifecycle
// operations the pipeline, monitor, and API need. The gate must be held
// around every group of Session calls; IsAlive and Status are safe without
// it so health checks never queue behind a running fetch.
type SessionControl interface {
	Session
	// Lock acquires the session gate.
	Lock()
	// Unlock releases the session gate.
	Unlock()
	// IsAlive probes whether the browser still answers.
	IsAlive(ctx context.Context) bool
	// Restart tears the session down and brings up a fresh one. It acquires
	// the gate itself.
	Restart(ctx context.Context) error
	// RecordRequest notes one fetch attempt for status reporting.
	RecordRequest(t time.Time)
	// Status snapshots the session counters without touching the browser.
	Status() SessionStatus
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Identifier produces request and event IDs.
type Identifier interface {
	NewID() (string, error)
}

// NopStore is a ConfigStore for deployments without a backing store; every
// query reports unavailability so the cache serves its fallback chain.
type NopStore struct{}

// FetchEnabled always fails with ErrStoreUnavailable.
func (NopStore) FetchEnabled(context.Context) ([]ControlRow, error) {
	return nil, fmt.Errorf("%w: no store configured", ErrStoreUnavailable)
}
