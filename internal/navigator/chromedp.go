package navigator

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

const defaultNavigationTimeout = 60 * time.Second

// CaptureRequest describes one page visit: where to go, what to wait for,
// and which element's outer HTML to return.
type CaptureRequest struct {
	URL             string
	WaitSelector    string
	CaptureSelector string
}

// Page is the DOM snapshot returned by a Browser.
type Page struct {
	URL  string
	HTML string
}

// Browser captures rendered markup from a live page.
type Browser interface {
	Capture(ctx context.Context, req CaptureRequest) (Page, error)
}

// ChromeConfig controls the behavior of the headless Chrome browser.
type ChromeConfig struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	ExecPath          string
	NoSandbox         bool
}

// ChromeBrowser implements Browser with chromedp. Every Capture launches its
// own browser process so no cookies, cache, or tabs leak between calls.
type ChromeBrowser struct {
	cfg     ChromeConfig
	limiter chan struct{}
}

// NewChromeBrowser validates cfg and returns a ChromeBrowser.
func NewChromeBrowser(cfg ChromeConfig) (*ChromeBrowser, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}
	return &ChromeBrowser{cfg: cfg, limiter: limiter}, nil
}

// Capture opens an isolated browser session, navigates, waits for the
// requested selector and returns the outer HTML of the capture selector.
func (b *ChromeBrowser) Capture(ctx context.Context, req CaptureRequest) (Page, error) {
	if err := b.acquire(ctx); err != nil {
		return Page{}, err
	}
	defer b.release()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, b.navTimeout())
	defer cancel()

	var (
		html     string
		finalURL string
	)
	actions := []chromedp.Action{
		b.userAgentAction(),
		chromedp.Navigate(req.URL),
		chromedp.WaitReady(req.WaitSelector, chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML(captureSelector(req), &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return Page{}, fmt.Errorf("chromedp run %s: %w", req.URL, err)
	}
	if finalURL == "" {
		finalURL = req.URL
	}
	return Page{URL: finalURL, HTML: html}, nil
}

func (b *ChromeBrowser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}
	return opts
}

func (b *ChromeBrowser) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (b *ChromeBrowser) acquire(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	select {
	case b.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (b *ChromeBrowser) release() {
	if b.limiter == nil {
		return
	}
	select {
	case <-b.limiter:
	default:
	}
}

func (b *ChromeBrowser) navTimeout() time.Duration {
	if b.cfg.NavigationTimeout > 0 {
		return b.cfg.NavigationTimeout
	}
	return defaultNavigationTimeout
}

func captureSelector(req CaptureRequest) string {
	if req.CaptureSelector != "" {
		return req.CaptureSelector
	}
	return "html"
}
