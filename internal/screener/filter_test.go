package screener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSession scripts the browser surface for filter, scrape, and pipeline
// tests. The embedded mutex doubles as the session gate.
type fakeSession struct {
	sync.Mutex

	mu          sync.Mutex
	location    string
	locationErr error
	html        string
	htmlErr     error
	downloadDir string

	clickable map[string]bool
	texts     map[string][]string
	inputs    map[string]bool
	escapeErr error
	navErr    error
	reloadErr error
	onClick   func(selector string)

	clicks      []string
	nthClicks   []string
	typed       []string
	cleared     []string
	navigations []string
	reloads     int
	escapes     int
	outsideTaps int

	alive        bool
	running      bool
	startedAt    time.Time
	restartErr   error
	restarts     int
	requestCount int64
	lastRequest  time.Time
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		clickable: map[string]bool{},
		texts:     map[string][]string{},
		inputs:    map[string]bool{},
		alive:     true,
		running:   true,
		startedAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeSession) Location(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.location, f.locationErr
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.navErr != nil {
		return f.navErr
	}
	f.navigations = append(f.navigations, url)
	f.location = url
	return nil
}

func (f *fakeSession) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reloadErr != nil {
		return f.reloadErr
	}
	f.reloads++
	return nil
}

func (f *fakeSession) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	ok := f.clickable[selector]
	hook := f.onClick
	if ok {
		f.clicks = append(f.clicks, selector)
	}
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no element matches %q", selector)
	}
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (f *fakeSession) ClickNth(_ context.Context, selector string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	opts, ok := f.texts[selector]
	if !ok || n < 0 || n >= len(opts) {
		return fmt.Errorf("selector %q has no index %d", selector, n)
	}
	f.nthClicks = append(f.nthClicks, fmt.Sprintf("%s#%d", selector, n))
	return nil
}

func (f *fakeSession) SendKeys(_ context.Context, selector, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inputs[selector] {
		return fmt.Errorf("no input matches %q", selector)
	}
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakeSession) ClearInput(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.inputs[selector] {
		return fmt.Errorf("no input matches %q", selector)
	}
	f.cleared = append(f.cleared, selector)
	return nil
}

func (f *fakeSession) PressEscape(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.escapeErr != nil {
		return f.escapeErr
	}
	f.escapes++
	return nil
}

func (f *fakeSession) ClickAt(context.Context, float64, float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outsideTaps++
	return nil
}

func (f *fakeSession) Texts(_ context.Context, selector string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[selector], nil
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html, f.htmlErr
}

func (f *fakeSession) DownloadDir() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadDir
}

func (f *fakeSession) IsAlive(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakeSession) Restart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restartErr != nil {
		return f.restartErr
	}
	f.restarts++
	f.alive = true
	return nil
}

func (f *fakeSession) RecordRequest(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestCount++
	f.lastRequest = t
}

func (f *fakeSession) Status() SessionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return SessionStatus{
		Running:       f.running,
		StartedAt:     f.startedAt,
		RequestCount:  f.requestCount,
		LastRequestAt: f.lastRequest,
	}
}

// testTimings keeps every wait in the low milliseconds so protocol failures
// do not stall the suite.
func testTimings() Timings {
	return Timings{
		NavigateSettle:    time.Millisecond,
		ReloadSettle:      time.Millisecond,
		FilterOpenTimeout: 30 * time.Millisecond,
		ProbeRetry:        time.Millisecond,
		PostOpenPause:     time.Millisecond,
		OptionRenderWait:  time.Millisecond,
		ClearPause:        time.Millisecond,
		DownloadPoll:      time.Millisecond,
		DownloadTimeout:   100 * time.Millisecond,
		RestartPause:      time.Millisecond,
	}
}

// wireFilterDialog makes the first probe of each chain respond: the dialog
// opens, the search box exists, and options carries the option list.
func wireFilterDialog(f *fakeSession, options ...string) {
	f.clickable[filterOpenProbes[0].selector] = true
	f.inputs[filterSearchProbes[0]] = true
	f.texts[filterOptionProbes[0]] = options
}

func TestFilterApplySingleExactMatch(t *testing.T) {
	sess := newFakeSession()
	wireFilterDialog(sess, "Nifty 50", "Nifty Bank")
	proto := NewFilterProtocol(sess, testTimings(), zap.NewNop())

	report := proto.Apply(context.Background(), "NIFTY50")
	require.Equal(t, []string{"NIFTY"}, report.Applied)
	require.Empty(t, report.Failed)
	require.True(t, report.Success())
	require.Equal(t, []string{filterOptionProbes[0] + "#0"}, sess.nthClicks)
	require.Equal(t, []string{"Nifty 50"}, sess.typed)
}

func TestFilterApplySingleContainsFallback(t *testing.T) {
	sess := newFakeSession()
	wireFilterDialog(sess, "NSE index: Nifty Bank weekly")
	proto := NewFilterProtocol(sess, testTimings(), zap.NewNop())

	report := proto.Apply(context.Background(), "BANKNIFTY")
	require.Equal(t, []string{"CNXBANK"}, report.Applied)
}

func TestFilterApplyMultiPartialSuccess(t *testing.T) {
	sess := newFakeSession()
	// The multi dialog labels Nifty plainly; Bank Nifty is absent so that
	// selection must fail while the first still lands.
	wireFilterDialog(sess, "Nifty", "Nifty IT")
	proto := NewFilterProtocol(sess, testTimings(), zap.NewNop())

	report := proto.Apply(context.Background(), "NIFTY50,BANKNIFTY")
	require.Equal(t, []string{"NIFTY"}, report.Applied)
	require.Equal(t, []string{"CNXBANK"}, report.Failed)
	require.True(t, report.Success(), "partial application still counts as success")
	require.Equal(t, 1, sess.escapes, "multi protocol closes the dialog")
	require.GreaterOrEqual(t, len(sess.cleared), 1, "search box cleared after the successful pick")
}

func TestFilterApplyDialogNeverOpens(t *testing.T) {
	sess := newFakeSession()
	proto := NewFilterProtocol(sess, testTimings(), zap.NewNop())

	report := proto.Apply(context.Background(), "NIFTY50,NIFTYIT")
	require.Empty(t, report.Applied)
	require.Equal(t, []string{"NIFTY", "CNXIT"}, report.Failed)
	require.False(t, report.Success())
}

func TestFilterApplyEmptyExpression(t *testing.T) {
	sess := newFakeSession()
	proto := NewFilterProtocol(sess, testTimings(), zap.NewNop())

	report := proto.Apply(context.Background(), "  ,  ")
	require.Empty(t, report.Applied)
	require.Empty(t, report.Failed)
	require.Empty(t, sess.clicks, "nothing to select means no browser work")
}

func TestFilterOpenDialogRetriesUntilTimeout(t *testing.T) {
	sess := newFakeSession()
	proto := NewFilterProtocol(sess, testTimings(), zap.NewNop())

	start := time.Now()
	report := proto.Apply(context.Background(), "NIFTY50")
	require.False(t, report.Success())
	require.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond,
		"open probes should retry until the open timeout")
}

func TestFilterCloseDialogFallsBackToOutsideClick(t *testing.T) {
	sess := newFakeSession()
	wireFilterDialog(sess, "Nifty", "Bank Nifty")
	sess.escapeErr = errors.New("escape swallowed")
	proto := NewFilterProtocol(sess, testTimings(), zap.NewNop())

	proto.Apply(context.Background(), "NIFTY50,BANKNIFTY")
	require.Equal(t, 1, sess.outsideTaps)
}
