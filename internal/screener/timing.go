package screener

import "time"

// Timings collects every pause, poll interval, and per-step bound used by
// the pipeline, the filter protocol, and the download detector. All waits
// built on these values are cooperative: they return early when the caller's
// context is canceled.
type Timings struct {
	// NavigateSettle is how long a freshly navigated screener page gets to
	// render its result table.
	NavigateSettle time.Duration `mapstructure:"navigate_settle"`
	// ReloadSettle is the shorter settle after refreshing an already loaded
	// screener.
	ReloadSettle time.Duration `mapstructure:"reload_settle"`
	// FilterOpenTimeout bounds the whole open-the-filter-dialog probe loop.
	FilterOpenTimeout time.Duration `mapstructure:"filter_open_timeout"`
	// ProbeRetry is the pause between rounds of the open-dialog probe chain.
	ProbeRetry time.Duration `mapstructure:"probe_retry"`
	// PostOpenPause lets the dialog render after it opens.
	PostOpenPause time.Duration `mapstructure:"post_open_pause"`
	// OptionRenderWait lets the option list settle after typing a search.
	OptionRenderWait time.Duration `mapstructure:"option_render_wait"`
	// ClearPause follows clearing the dialog search box.
	ClearPause time.Duration `mapstructure:"clear_pause"`
	// DownloadPoll is the detector's directory polling interval.
	DownloadPoll time.Duration `mapstructure:"download_poll"`
	// DownloadTimeout bounds the wait for an export file to stabilize.
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	// RestartPause separates browser teardown from relaunch.
	RestartPause time.Duration `mapstructure:"restart_pause"`
}

// DefaultTimings returns the cadence tuned against the production screener
// UI.
func DefaultTimings() Timings {
	return Timings{
		NavigateSettle:    3 * time.Second,
		ReloadSettle:      2 * time.Second,
		FilterOpenTimeout: 15 * time.Second,
		ProbeRetry:        500 * time.Millisecond,
		PostOpenPause:     time.Second,
		OptionRenderWait:  2 * time.Second,
		ClearPause:        500 * time.Millisecond,
		DownloadPoll:      500 * time.Millisecond,
		DownloadTimeout:   10 * time.Second,
		RestartPause:      time.Second,
	}
}

// withDefaults fills zero fields from DefaultTimings.
func (t Timings) withDefaults() Timings {
	def := DefaultTimings()
	if t.NavigateSettle <= 0 {
		t.NavigateSettle = def.NavigateSettle
	}
	if t.ReloadSettle <= 0 {
		t.ReloadSettle = def.ReloadSettle
	}
	if t.FilterOpenTimeout <= 0 {
		t.FilterOpenTimeout = def.FilterOpenTimeout
	}
	if t.ProbeRetry <= 0 {
		t.ProbeRetry = def.ProbeRetry
	}
	if t.PostOpenPause <= 0 {
		t.PostOpenPause = def.PostOpenPause
	}
	if t.OptionRenderWait <= 0 {
		t.OptionRenderWait = def.OptionRenderWait
	}
	if t.ClearPause <= 0 {
		t.ClearPause = def.ClearPause
	}
	if t.DownloadPoll <= 0 {
		t.DownloadPoll = def.DownloadPoll
	}
	if t.DownloadTimeout <= 0 {
		t.DownloadTimeout = def.DownloadTimeout
	}
	if t.RestartPause <= 0 {
		t.RestartPause = def.RestartPause
	}
	return t
}
