package screener

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// Descriptor is one screener's resolved configuration entry. Key is the
// canonical lookup key produced by Normalize; OriginalName preserves the raw
// store label so operators can trace an entry back to its row.
type Descriptor struct {
	Key            string `json:"key"`
	OriginalName   string `json:"original_name"`
	URL            string `json:"url"`
	Description    string `json:"description"`
	HoldingPeriod  string `json:"holding_period"`
	TradeType      string `json:"trade_type"`
	InstrumentType string `json:"instrument_type"`
	MaxPositions   *int   `json:"max_positions,omitempty"`
	Enabled        bool   `json:"enabled"`
}

// ControlRow is one raw row from the configuration store, before
// normalization and default filling. Pointer-free string fields carry empty
// values for NULL columns.
type ControlRow struct {
	Strategy       string
	URL            string
	Description    string
	HoldingPeriod  string
	TradeType      string
	InstrumentType string
	MaxPositions   *int
}

// Cell is a single column/value pair within a result row.
type Cell struct {
	Column string
	Value  string
}

// Row is one screener result row. Column sets differ per screener and per
// retrieval path, so Row keeps the order the source presented instead of
// imposing a schema.
type Row []Cell

// Get returns the value for the named column.
func (r Row) Get(column string) (string, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return "", false
}

// MarshalJSON encodes the row as a JSON object preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ErrorKind classifies a fetch failure for API clients.
type ErrorKind string

const (
	KindUnknownScreener    ErrorKind = "unknown_screener"
	KindScrapeFailed       ErrorKind = "scrape_failed"
	KindSessionUnavailable ErrorKind = "session_unavailable"
	KindBadRequest         ErrorKind = "bad_request"
	KindInternal           ErrorKind = "internal"
)

// FetchError is the structured failure carried by a FetchResult.
type FetchError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// FetchMetadata describes one fetch attempt, successful or not.
type FetchMetadata struct {
	ScreenerKey    string    `json:"screener_type"`
	IndexFilter    string    `json:"index_filter,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Timestamp      time.Time `json:"timestamp"`
	RequestCount   int64     `json:"request_count"`
}

// FetchResult is the outcome of one acquisition call. Exactly one of Rows
// and Err is populated; Meta is always present.
type FetchResult struct {
	Rows   []Row         `json:"rows,omitempty"`
	Err    *FetchError   `json:"error,omitempty"`
	Filter *FilterReport `json:"filter,omitempty"`
	Meta   FetchMetadata `json:"metadata"`
}

// OK reports whether the fetch produced rows.
func (r FetchResult) OK() bool { return r.Err == nil }

// FilterReport records which requested index codes were actually applied to
// the result set and which selections failed.
type FilterReport struct {
	Applied []string `json:"applied"`
	Failed  []string `json:"failed"`
}

// Success reports whether at least one index selection applied. Partial
// application counts as success; callers see the detail either way.
func (r FilterReport) Success() bool { return len(r.Applied) > 0 }

// SessionStatus is a point-in-time snapshot of the browser session counters.
// LastRequestAt is the zero time until the first fetch attempt.
type SessionStatus struct {
	Running       bool
	StartedAt     time.Time
	RequestCount  int64
	LastRequestAt time.Time
}

// CacheStatus is a point-in-time snapshot of configuration cache freshness.
type CacheStatus struct {
	Cached           bool       `json:"cached"`
	AgeSeconds       float64    `json:"age_seconds"`
	ExpiresInSeconds float64    `json:"expires_in_seconds"`
	EntryCount       int        `json:"entry_count"`
	FetchedAt        *time.Time `json:"fetched_at,omitempty"`
}

// DescriptorKeys returns the sorted keys of a descriptor map.
func DescriptorKeys(entries map[string]Descriptor) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
