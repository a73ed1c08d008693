// Package rodfetcher renders pages with go-rod and the stealth evasions, one
// browser launch per fetch.
package rodfetcher

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/monitor"
)

// Engine is the name reported in monitor.Page.Engine.
const Engine = "rod"

// Config controls the rod fetcher.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	WindowWidth       int
	WindowHeight      int
	// Bin overrides the browser binary; empty lets launcher find or download one.
	Bin string
}

// Fetcher implements monitor.Fetcher with go-rod.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

// New validates cfg and returns a Fetcher.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if cfg.SettleDelay < 0 {
		return nil, fmt.Errorf("settle delay must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1920, 1080
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger}, nil
}

// Fetch launches a browser, renders url in a stealth page and closes everything before returning.
func (f *Fetcher) Fetch(ctx context.Context, url string) (monitor.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.NavigationTimeout)
	defer cancel()

	l := f.launcher().Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		// Launch may fail before a process exists, so Cleanup would block.
		_ = os.RemoveAll(l.Get(flags.UserDataDir))
		return monitor.Page{}, fmt.Errorf("%w: launch browser: %v", monitor.ErrFetch, err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return monitor.Page{}, fmt.Errorf("%w: connect browser: %v", monitor.ErrFetch, err)
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			f.logger.Debug("browser close failed", zap.Error(cerr))
		}
		l.Kill()
		l.Cleanup()
	}()

	start := time.Now()
	html, finalURL, err := f.render(ctx, browser, url)
	if err != nil {
		return monitor.Page{}, fmt.Errorf("%w: %v", monitor.ErrFetch, err)
	}
	return monitor.Page{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: 200,
		HTML:       []byte(html),
		Duration:   time.Since(start),
		Engine:     Engine,
	}, nil
}

func (f *Fetcher) launcher() *launcher.Launcher {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-notifications").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("window-size", strconv.Itoa(f.cfg.WindowWidth)+","+strconv.Itoa(f.cfg.WindowHeight))
	if f.cfg.Bin != "" {
		l = l.Bin(f.cfg.Bin)
	}
	return l
}

func (f *Fetcher) render(ctx context.Context, browser *rod.Browser, url string) (string, string, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return "", "", fmt.Errorf("create stealth page: %w", err)
	}
	page = page.Context(ctx)
	defer func() {
		_ = page.Close()
	}()

	if f.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.cfg.UserAgent}); err != nil {
			return "", "", fmt.Errorf("set user-agent: %w", err)
		}
	}
	if err := page.Navigate(url); err != nil {
		return "", "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", "", fmt.Errorf("wait load: %w", err)
	}
	if err := sleepCtx(ctx, f.cfg.SettleDelay); err != nil {
		return "", "", err
	}
	html, err := page.HTML()
	if err != nil {
		return "", "", fmt.Errorf("read html: %w", err)
	}
	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}
	return html, finalURL, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("settle wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
