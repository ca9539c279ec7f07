package events

import (
	"errors"
	"fmt"
	"time"
)

// Stage identifies the milestone an Event represents.
type Stage string

const (
	StageFetchStart     Stage = "FETCH_START"
	StageNavigate       Stage = "NAVIGATE"
	StageFilterApplied  Stage = "FILTER_APPLIED"
	StageExportParsed   Stage = "EXPORT_PARSED"
	StageScrapeFallback Stage = "SCRAPE_FALLBACK"
	StageFetchDone      Stage = "FETCH_DONE"
	StageFetchFailed    Stage = "FETCH_FAILED"
	StageConfigRefresh  Stage = "CONFIG_REFRESH"
	StageSessionRestart Stage = "SESSION_RESTART"
)

// Event captures a single acquisition milestone.
type Event struct {
	// ID ties the event to one fetch attempt or monitor tick.
	ID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is the milestone kind.
	Stage Stage
	// Screener is the resolved screener key, when one is in play.
	Screener string
	// Rows carries the result row count for parse and completion stages.
	Rows int
	// Dur is the elapsed time for completed stages.
	Dur time.Duration
	// Note carries low-volume context: applied filter codes, failure reason.
	Note string
}

// Validate rejects events a sink could not attribute.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageFetchStart, StageNavigate, StageFilterApplied, StageExportParsed,
		StageScrapeFallback, StageFetchDone, StageFetchFailed:
		if e.Screener == "" {
			return fmt.Errorf("stage %s requires a screener", e.Stage)
		}
	case StageConfigRefresh, StageSessionRestart:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Rows < 0 {
		return errors.New("rows must be >= 0")
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
