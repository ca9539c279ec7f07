package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	cdbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/tradecrawl/screenerd/internal/screener"
)

const (
	defaultWindowWidth       = 1920
	defaultWindowHeight      = 1080
	defaultActionTimeout     = 30 * time.Second
	defaultRestartPause      = time.Second
	defaultDownloadDirPrefix = "tv_screener_"

	aliveProbeTimeout = 3 * time.Second
)

// Config controls the Chrome session the Manager launches.
type Config struct {
	// Headless runs Chrome without a display (the "new" headless mode).
	Headless bool
	// WindowWidth and WindowHeight size the browser viewport.
	WindowWidth  int
	WindowHeight int
	// InitialURL is navigated to right after launch, best effort.
	InitialURL string
	// CookieFile optionally points at a JSON cookie export to sign the
	// session in with.
	CookieFile string
	// DownloadDirPrefix names the per-session scratch download directory.
	DownloadDirPrefix string
	// ExecPath overrides the Chrome binary location.
	ExecPath string
	// UserAgent overrides the browser's user agent string.
	UserAgent string
	// ActionTimeout bounds every individual browser action.
	ActionTimeout time.Duration
	// RestartPause separates teardown from relaunch during Restart.
	RestartPause time.Duration
}

func (c *Config) defaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = defaultWindowWidth
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = defaultWindowHeight
	}
	if c.DownloadDirPrefix == "" {
		c.DownloadDirPrefix = defaultDownloadDirPrefix
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = defaultActionTimeout
	}
	if c.RestartPause <= 0 {
		c.RestartPause = defaultRestartPause
	}
}

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateInitializing
	stateReady
	stateRestarting
	stateStopped
)

// Manager owns one Chrome session and implements screener.SessionControl.
// Page interactions serialize behind the gate; IsAlive and Status read
// through the state lock only.
type Manager struct {
	cfg    Config
	logger *zap.Logger

	gate sync.Mutex

	mu            sync.RWMutex
	state         sessionState
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	downloadDir   string
	startedAt     time.Time
	requestCount  int64
	lastRequest   time.Time
}

var _ screener.SessionControl = (*Manager)(nil)

// NewManager builds a Manager; call Initialize before using it.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, logger: logger}
}

// Initialize launches Chrome, wires the download directory, and performs
// best-effort initial navigation and cookie sign-in. It must not run
// concurrently with page interactions: call it during exclusive startup or
// with the gate held (Restart does the latter).
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state == stateReady {
		m.mu.Unlock()
		return nil
	}
	m.state = stateInitializing
	m.mu.Unlock()

	dir, err := os.MkdirTemp("", m.cfg.DownloadDirPrefix)
	if err != nil {
		m.setState(stateUninitialized)
		return fmt.Errorf("%w: create download dir: %v", screener.ErrInitFailed, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(m.cfg.WindowWidth, m.cfg.WindowHeight),
	)
	if m.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}
	if m.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Forcing the download behavior doubles as the launch probe.
	warmCtx, warmCancel := context.WithTimeout(browserCtx, m.cfg.ActionTimeout)
	stop := context.AfterFunc(ctx, warmCancel)
	err = chromedp.Run(warmCtx,
		cdbrowser.SetDownloadBehavior(cdbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir).
			WithEventsEnabled(true),
	)
	stop()
	warmCancel()
	if err != nil {
		browserCancel()
		allocCancel()
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			m.logger.Warn("remove download dir", zap.String("dir", dir), zap.Error(rmErr))
		}
		m.setState(stateUninitialized)
		return fmt.Errorf("%w: launch chrome: %v", screener.ErrInitFailed, err)
	}

	if m.cfg.InitialURL != "" {
		navCtx, navCancel := context.WithTimeout(browserCtx, m.cfg.ActionTimeout)
		if err := chromedp.Run(navCtx,
			chromedp.Navigate(m.cfg.InitialURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		); err != nil {
			m.logger.Warn("initial navigation failed",
				zap.String("url", m.cfg.InitialURL), zap.Error(err))
		}
		navCancel()
	}
	if m.cfg.CookieFile != "" {
		if err := m.injectCookies(browserCtx); err != nil {
			m.logger.Warn("cookie injection failed",
				zap.String("file", m.cfg.CookieFile), zap.Error(err))
		} else if m.cfg.InitialURL != "" {
			reloadCtx, reloadCancel := context.WithTimeout(browserCtx, m.cfg.ActionTimeout)
			if err := chromedp.Run(reloadCtx, chromedp.Reload()); err != nil {
				m.logger.Warn("post-cookie reload failed", zap.Error(err))
			}
			reloadCancel()
		}
	}

	m.mu.Lock()
	m.allocCtx, m.allocCancel = allocCtx, allocCancel
	m.browserCtx, m.browserCancel = browserCtx, browserCancel
	m.downloadDir = dir
	m.state = stateReady
	m.startedAt = time.Now()
	m.requestCount = 0
	m.lastRequest = time.Time{}
	m.mu.Unlock()

	m.logger.Info("browser session ready",
		zap.String("download_dir", dir),
		zap.Bool("headless", m.cfg.Headless))
	return nil
}

// Cleanup tears the session down: the browser contexts are canceled and the
// scratch download directory is removed. Safe to call repeatedly.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	browserCancel, allocCancel := m.browserCancel, m.allocCancel
	dir := m.downloadDir
	m.browserCtx, m.browserCancel = nil, nil
	m.allocCtx, m.allocCancel = nil, nil
	m.downloadDir = ""
	m.state = stateStopped
	m.mu.Unlock()

	if browserCancel != nil {
		browserCancel()
	}
	if allocCancel != nil {
		allocCancel()
	}
	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			m.logger.Warn("remove download dir", zap.String("dir", dir), zap.Error(err))
		}
	}
}

// Restart acquires the gate, tears the session down, waits out the restart
// pause, and initializes a fresh one.
func (m *Manager) Restart(ctx context.Context) error {
	m.gate.Lock()
	defer m.gate.Unlock()

	m.setState(stateRestarting)
	m.logger.Info("restarting browser session")
	m.Cleanup()

	timer := time.NewTimer(m.cfg.RestartPause)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return fmt.Errorf("restart interrupted: %w", ctx.Err())
	}

	if err := m.Initialize(ctx); err != nil {
		return err
	}
	m.logger.Info("browser session restarted")
	return nil
}

// Lock acquires the session gate.
func (m *Manager) Lock() { m.gate.Lock() }

// Unlock releases the session gate.
func (m *Manager) Unlock() { m.gate.Unlock() }

// IsAlive probes the page's readyState without taking the gate, so health
// checks never queue behind a running fetch.
func (m *Manager) IsAlive(ctx context.Context) bool {
	m.mu.RLock()
	browserCtx := m.browserCtx
	running := m.state == stateReady
	m.mu.RUnlock()
	if !running || browserCtx == nil {
		return false
	}

	probeCtx, cancel := context.WithTimeout(browserCtx, aliveProbeTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var readyState string
	if err := chromedp.Run(probeCtx, chromedp.Evaluate("document.readyState", &readyState)); err != nil {
		return false
	}
	return readyState != ""
}

// RecordRequest notes one fetch attempt for status reporting.
func (m *Manager) RecordRequest(t time.Time) {
	m.mu.Lock()
	m.requestCount++
	m.lastRequest = t
	m.mu.Unlock()
}

// Status snapshots the session counters without touching the browser.
func (m *Manager) Status() screener.SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return screener.SessionStatus{
		Running:       m.state == stateReady,
		StartedAt:     m.startedAt,
		RequestCount:  m.requestCount,
		LastRequestAt: m.lastRequest,
	}
}

// DownloadDir returns the session's scratch download directory, or "" before
// initialization.
func (m *Manager) DownloadDir() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.downloadDir
}

func (m *Manager) setState(s sessionState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// run executes chromedp actions against the session, bounded by the action
// timeout and the caller's context.
func (m *Manager) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	browserCtx := m.browserCtx
	timeout := m.cfg.ActionTimeout
	m.mu.RUnlock()
	if browserCtx == nil {
		return screener.ErrNotInitialized
	}

	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("browser action: %w", err)
	}
	return nil
}
