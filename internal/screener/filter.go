package screener

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// clickProbe is one named selector in a fallback chain. Chains are ordered
// from the current upstream markup to older layouts.
type clickProbe struct {
	name     string
	selector string
}

// filterOpenProbes locate the control that opens the index filter dialog.
var filterOpenProbes = []clickProbe{
	{name: "filter-sets-button", selector: `button[data-name="screener-filter-sets"]`},
	{name: "index-filter-field", selector: `//div[@data-field-key='index']//button`},
	{name: "toolbar-filter-button", selector: `//button[contains(@class,'filter') and contains(.,'Index')]`},
	{name: "legacy-filter-toggle", selector: `//div[contains(@class,'tv-screener-toolbar__button--filters')]`},
}

// filterSearchProbes locate the dialog's search input.
var filterSearchProbes = []string{
	`div[data-name="indexes-dialog"] input[type="text"]`,
	`//div[@role='dialog']//input[@placeholder='Search']`,
	`//div[contains(@class,'filter-dialog')]//input`,
}

// filterOptionProbes locate the candidate option items after a search.
var filterOptionProbes = []string{
	`div[data-name="indexes-dialog"] [role='option']`,
	`//div[@role='dialog']//div[@role='option']`,
	`//div[contains(@class,'dropdown')]//div[contains(@class,'item')]`,
}

// filterClearProbes locate a dedicated clear control for the search box.
var filterClearProbes = []clickProbe{
	{name: "search-clear-icon", selector: `div[data-name="indexes-dialog"] [data-name='clear-icon']`},
	{name: "search-clear-button", selector: `//div[@role='dialog']//button[@aria-label='Clear']`},
}

// Viewport corner far from the dialog bounds, for dismiss-by-click.
const (
	outsideClickX = 50.0
	outsideClickY = 50.0
)

// FilterProtocol drives the screener's index filter dialog through Session
// primitives. Every step reports failure through its return value; a failed
// selection never aborts the surrounding fetch.
type FilterProtocol struct {
	session Session
	timings Timings
	pause   pauser
	logger  *zap.Logger
}

// NewFilterProtocol builds a protocol over session. Zero timing fields are
// filled from DefaultTimings.
func NewFilterProtocol(session Session, timings Timings, logger *zap.Logger) *FilterProtocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilterProtocol{
		session: session,
		timings: timings.withDefaults(),
		pause:   timerPauser{},
		logger:  logger,
	}
}

// Apply maps the comma-separated filter expression to exchange codes and
// runs the single- or multi-select protocol. The report records per-code
// outcomes either way; an empty expression yields an empty report.
func (f *FilterProtocol) Apply(ctx context.Context, filter string) FilterReport {
	codes := MapIndexCodes(filter)
	if len(codes) == 0 {
		return FilterReport{}
	}
	if len(codes) == 1 {
		return f.applySingle(ctx, codes[0])
	}
	return f.applyMulti(ctx, codes)
}

// applySingle opens the dialog and picks one index; the dialog closes itself
// on selection.
func (f *FilterProtocol) applySingle(ctx context.Context, code string) FilterReport {
	var report FilterReport
	if !f.openDialog(ctx) {
		report.Failed = append(report.Failed, code)
		return report
	}
	if f.selectOption(ctx, DisplayName(code, false)) {
		report.Applied = append(report.Applied, code)
	} else {
		report.Failed = append(report.Failed, code)
	}
	return report
}

// applyMulti keeps the dialog open across codes, clearing the search box
// after each successful selection, and dismisses the dialog at the end.
func (f *FilterProtocol) applyMulti(ctx context.Context, codes []string) FilterReport {
	var report FilterReport
	if !f.openDialog(ctx) {
		report.Failed = append(report.Failed, codes...)
		return report
	}
	for _, code := range codes {
		if f.selectOption(ctx, DisplayName(code, true)) {
			report.Applied = append(report.Applied, code)
			f.clearSearch(ctx)
		} else {
			report.Failed = append(report.Failed, code)
			f.logger.Warn("index selection failed", zap.String("code", code))
		}
	}
	f.closeDialog(ctx)
	return report
}

// openDialog clicks through the open-control probes until one lands,
// bounded by FilterOpenTimeout, then grants the dialog a render pause.
func (f *FilterProtocol) openDialog(ctx context.Context) bool {
	deadline := time.Now().Add(f.timings.FilterOpenTimeout)
	for {
		if name, ok := f.clickFirst(ctx, filterOpenProbes); ok {
			f.logger.Debug("filter dialog opened", zap.String("probe", name))
			f.pause.Pause(ctx, f.timings.PostOpenPause)
			return true
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			f.logger.Warn("filter dialog did not open",
				zap.Duration("timeout", f.timings.FilterOpenTimeout))
			return false
		}
		f.pause.Pause(ctx, f.timings.ProbeRetry)
	}
}

// selectOption types the display name into the search box, waits for the
// option list to settle, and clicks the best match: exact text first, then
// the first candidate containing it.
func (f *FilterProtocol) selectOption(ctx context.Context, display string) bool {
	inputSel, ok := f.locateSearchInput(ctx)
	if !ok {
		f.logger.Debug("filter search input not found")
		return false
	}
	if err := f.session.SendKeys(ctx, inputSel, display); err != nil {
		f.logger.Debug("filter search input rejected keys", zap.Error(err))
		return false
	}
	f.pause.Pause(ctx, f.timings.OptionRenderWait)
	for _, optSel := range filterOptionProbes {
		texts, err := f.session.Texts(ctx, optSel)
		if err != nil || len(texts) == 0 {
			continue
		}
		idx := matchOption(texts, display)
		if idx < 0 {
			continue
		}
		if err := f.session.ClickNth(ctx, optSel, idx); err != nil {
			f.logger.Debug("filter option click failed",
				zap.String("selector", optSel), zap.Error(err))
			continue
		}
		return true
	}
	return false
}

// locateSearchInput probes for the dialog search box. Clearing doubles as
// the existence check and leaves the box empty for the caller's SendKeys.
func (f *FilterProtocol) locateSearchInput(ctx context.Context) (string, bool) {
	for _, sel := range filterSearchProbes {
		if err := f.session.ClearInput(ctx, sel); err == nil {
			return sel, true
		}
	}
	return "", false
}

// clearSearch resets the dialog search box: a dedicated clear control first,
// then clearing the input directly.
func (f *FilterProtocol) clearSearch(ctx context.Context) {
	if _, ok := f.clickFirst(ctx, filterClearProbes); ok {
		f.pause.Pause(ctx, f.timings.ClearPause)
		return
	}
	for _, sel := range filterSearchProbes {
		if err := f.session.ClearInput(ctx, sel); err == nil {
			f.pause.Pause(ctx, f.timings.ClearPause)
			return
		}
	}
	f.logger.Debug("filter search box could not be cleared")
}

// closeDialog dismisses the multi-select dialog: Escape, then a click
// outside its bounds.
func (f *FilterProtocol) closeDialog(ctx context.Context) {
	if err := f.session.PressEscape(ctx); err == nil {
		return
	}
	if err := f.session.ClickAt(ctx, outsideClickX, outsideClickY); err != nil {
		f.logger.Debug("filter dialog close failed", zap.Error(err))
	}
}

// clickFirst tries each probe once, in order, and reports the first that
// clicked.
func (f *FilterProtocol) clickFirst(ctx context.Context, probes []clickProbe) (string, bool) {
	for _, probe := range probes {
		if err := f.session.Click(ctx, probe.selector); err == nil {
			return probe.name, true
		}
	}
	return "", false
}

// matchOption prefers the exact display text, then the first candidate whose
// text contains it.
func matchOption(texts []string, display string) int {
	for i, t := range texts {
		if strings.TrimSpace(t) == display {
			return i
		}
	}
	for i, t := range texts {
		if strings.Contains(t, display) {
			return i
		}
	}
	return -1
}
