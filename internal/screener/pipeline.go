package screener

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradecrawl/screenerd/internal/events"
)

// Pipeline orchestrates one acquisition end to end: resolve the screener
// descriptor, bring the page in position, apply the index filter, try the
// export download, fall back to scraping, and assemble the result.
//
// Fetch holds the session gate for its whole duration, so concurrent callers
// serialize; there is exactly one browser and it can do one thing at a time.
type Pipeline struct {
	cache         *Cache
	session       SessionControl
	filter        *FilterProtocol
	detector      *DownloadDetector
	hub           *events.Hub
	clock         Clock
	ids           Identifier
	timings       Timings
	pause         pauser
	maxScrapeRows int
	logger        *zap.Logger
}

// NewPipeline wires the acquisition pipeline. A nil hub disables event
// emission; non-positive maxScrapeRows falls back to DefaultMaxScrapeRows.
func NewPipeline(
	cache *Cache,
	session SessionControl,
	filter *FilterProtocol,
	detector *DownloadDetector,
	hub *events.Hub,
	clock Clock,
	ids Identifier,
	timings Timings,
	maxScrapeRows int,
	logger *zap.Logger,
) *Pipeline {
	if maxScrapeRows <= 0 {
		maxScrapeRows = DefaultMaxScrapeRows
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cache:         cache,
		session:       session,
		filter:        filter,
		detector:      detector,
		hub:           hub,
		clock:         clock,
		ids:           ids,
		timings:       timings.withDefaults(),
		pause:         timerPauser{},
		maxScrapeRows: maxScrapeRows,
		logger:        logger,
	}
}

// Fetch runs one acquisition attempt. Every attempt is counted, including
// ones that fail before touching the browser, so the status endpoint's
// request counter reflects demand rather than success.
func (p *Pipeline) Fetch(ctx context.Context, screenerKey, indexFilter string) FetchResult {
	start := p.clock.Now()
	p.session.Lock()
	defer p.session.Unlock()

	p.session.RecordRequest(start)
	meta := FetchMetadata{
		ScreenerKey:  screenerKey,
		IndexFilter:  indexFilter,
		Timestamp:    start,
		RequestCount: p.session.Status().RequestCount,
	}
	requestID := p.newRequestID()
	p.hub.Emit(events.Event{
		ID: requestID, TS: start, Stage: events.StageFetchStart,
		Screener: screenerKey, Note: indexFilter,
	})

	p.cache.FetchActive(ctx, false)
	desc, ok := p.cache.GetByKey(screenerKey)
	if !ok {
		return p.fail(requestID, meta, start, KindUnknownScreener,
			fmt.Sprintf("%v: %q", ErrUnknownScreener, screenerKey))
	}
	meta.ScreenerKey = desc.Key

	if err := p.ensureLocation(ctx, requestID, desc); err != nil {
		return p.fail(requestID, meta, start, KindSessionUnavailable, err.Error())
	}

	var filterReport *FilterReport
	if indexFilter != "" {
		report := p.filter.Apply(ctx, indexFilter)
		filterReport = &report
		FilterFailures.Add(float64(len(report.Failed)))
		if report.Success() {
			p.hub.Emit(events.Event{
				ID: requestID, TS: p.clock.Now(), Stage: events.StageFilterApplied,
				Screener: desc.Key, Note: strings.Join(report.Applied, ","),
			})
		} else {
			p.logger.Warn("proceeding with unfiltered results",
				zap.String("screener", desc.Key),
				zap.Strings("failed", report.Failed),
				zap.Error(ErrFilterNotApplied))
		}
	}

	path := "export"
	rows := p.exportRows(ctx, requestID, desc.Key)
	if len(rows) == 0 {
		path = "scrape"
		ScrapeFallbacks.Inc()
		p.hub.Emit(events.Event{
			ID: requestID, TS: p.clock.Now(), Stage: events.StageScrapeFallback,
			Screener: desc.Key,
		})
		scraped, err := p.scrapeTable(ctx)
		if err != nil {
			p.logger.Warn("scrape fallback failed",
				zap.String("screener", desc.Key), zap.Error(err))
		}
		rows = scraped
	}

	elapsed := p.clock.Now().Sub(start)
	meta.ElapsedSeconds = round2(elapsed.Seconds())
	if len(rows) == 0 {
		result := p.fail(requestID, meta, start, KindScrapeFailed,
			fmt.Sprintf("%v for %q", ErrScrapeFailed, desc.Key))
		result.Filter = filterReport
		return result
	}

	FetchesTotal.WithLabelValues(desc.Key, "success").Inc()
	FetchDuration.WithLabelValues(path).Observe(elapsed.Seconds())
	p.hub.Emit(events.Event{
		ID: requestID, TS: p.clock.Now(), Stage: events.StageFetchDone,
		Screener: desc.Key, Rows: len(rows), Dur: elapsed,
	})
	p.logger.Info("fetch complete",
		zap.String("screener", desc.Key),
		zap.String("path", path),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", elapsed))
	return FetchResult{Rows: rows, Filter: filterReport, Meta: meta}
}

// ensureLocation brings the page in position for desc: a reload if the
// screener is already loaded, a navigation otherwise, each with its own
// settle time.
func (p *Pipeline) ensureLocation(ctx context.Context, requestID string, desc Descriptor) error {
	current, err := p.session.Location(ctx)
	if err != nil {
		return fmt.Errorf("read location: %w", err)
	}
	if strings.Contains(current, desc.URL) {
		if err := p.session.Reload(ctx); err != nil {
			return fmt.Errorf("reload screener: %w", err)
		}
		p.hub.Emit(events.Event{
			ID: requestID, TS: p.clock.Now(), Stage: events.StageNavigate,
			Screener: desc.Key, Note: "reload",
		})
		p.pause.Pause(ctx, p.timings.ReloadSettle)
		return nil
	}
	if err := p.session.Navigate(ctx, desc.URL); err != nil {
		return fmt.Errorf("navigate to screener: %w", err)
	}
	p.hub.Emit(events.Event{
		ID: requestID, TS: p.clock.Now(), Stage: events.StageNavigate,
		Screener: desc.Key, Note: "navigate",
	})
	p.pause.Pause(ctx, p.timings.NavigateSettle)
	return nil
}

// exportRows drives the export path: snapshot the download directory,
// trigger the export, wait for a finished file, parse it, and remove it.
// Any miss returns nil so the caller falls back to scraping.
func (p *Pipeline) exportRows(ctx context.Context, requestID, screenerKey string) []Row {
	dir := p.session.DownloadDir()
	if dir == "" {
		return nil
	}
	before := p.detector.Snapshot(dir)
	if err := p.triggerExport(ctx); err != nil {
		p.logger.Warn("export trigger failed",
			zap.String("screener", screenerKey), zap.Error(err))
		return nil
	}
	path, ok := p.detector.WaitForFile(ctx, dir, before, p.timings.DownloadTimeout)
	if !ok {
		DownloadTimeouts.Inc()
		p.logger.Warn("export download timed out",
			zap.String("screener", screenerKey),
			zap.Duration("timeout", p.timings.DownloadTimeout),
			zap.Error(ErrDownloadTimeout))
		return nil
	}
	rows, err := parseExportFile(path)
	if removeErr := os.Remove(path); removeErr != nil {
		p.logger.Debug("export file cleanup failed",
			zap.String("path", path), zap.Error(removeErr))
	}
	if err != nil {
		p.logger.Warn("export parse failed",
			zap.String("screener", screenerKey), zap.Error(err))
		return nil
	}
	p.hub.Emit(events.Event{
		ID: requestID, TS: p.clock.Now(), Stage: events.StageExportParsed,
		Screener: screenerKey, Rows: len(rows),
	})
	return rows
}

func (p *Pipeline) fail(requestID string, meta FetchMetadata, start time.Time, kind ErrorKind, msg string) FetchResult {
	elapsed := p.clock.Now().Sub(start)
	meta.ElapsedSeconds = round2(elapsed.Seconds())
	FetchesTotal.WithLabelValues(meta.ScreenerKey, string(kind)).Inc()
	p.hub.Emit(events.Event{
		ID: requestID, TS: p.clock.Now(), Stage: events.StageFetchFailed,
		Screener: meta.ScreenerKey, Dur: elapsed, Note: msg,
	})
	p.logger.Warn("fetch failed",
		zap.String("screener", meta.ScreenerKey),
		zap.String("kind", string(kind)),
		zap.String("reason", msg))
	return FetchResult{Err: &FetchError{Kind: kind, Message: msg}, Meta: meta}
}

func (p *Pipeline) newRequestID() string {
	id, err := p.ids.NewID()
	if err != nil {
		p.logger.Warn("request id generation failed", zap.Error(err))
		return "unidentified"
	}
	return id
}
