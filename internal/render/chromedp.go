package render

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const scrollScript = `window.scrollBy(0, window.innerHeight)`

// Config controls the chromedp renderer.
type Config struct {
	// UserAgent supplies the identity for each navigation. Called once per
	// fetch so a rotating policy takes effect between entities.
	UserAgent func() string
	// NavTimeout bounds the whole navigation including scroll passes.
	NavTimeout time.Duration
	// ScrollPause is the settle time between scroll passes.
	ScrollPause time.Duration
}

// ChromedpRenderer renders pages with headless Chrome via chromedp. One
// browser context is shared across the run; each fetch opens its own tab.
type ChromedpRenderer struct {
	cfg             Config
	logger          *zap.Logger
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
}

// NewChromedp starts the browser and warms it up. A warmup failure is fatal
// for the whole run: there is no degraded mode without a rendering backend.
func NewChromedp(cfg Config, logger *zap.Logger) (*ChromedpRenderer, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 60 * time.Second
	}
	if cfg.ScrollPause <= 0 {
		cfg.ScrollPause = time.Second
	}
	if cfg.UserAgent == nil {
		cfg.UserAgent = func() string { return "" }
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &ChromedpRenderer{
		cfg:             cfg,
		logger:          logger,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (r *ChromedpRenderer) Close(_ context.Context) error {
	if r == nil {
		return nil
	}
	r.browserCancel()
	r.allocatorCancel()
	return nil
}

// Fetch navigates to url in a fresh tab and returns the rendered DOM. A
// selector-wait timeout or mid-navigation failure returns whatever markup the
// tab holds with a non-200 status instead of an error.
func (r *ChromedpRenderer) Fetch(ctx context.Context, url string, opts FetchOptions) (Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.NavTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	if err := chromedp.Run(taskCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(r.cfg.UserAgent()),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return r.salvage(tabCtx, url, meta, fmt.Errorf("navigate: %w", err))
	}

	degraded := false
	if opts.WaitSelector != "" {
		if err := r.waitSelector(taskCtx, opts.WaitSelector, opts.WaitTimeout); err != nil {
			r.logger.Warn("selector wait timed out, using available markup",
				zap.String("url", url),
				zap.String("selector", opts.WaitSelector),
				zap.Error(err),
			)
			degraded = true
		}
	}

	for i := 0; i < opts.ScrollPasses; i++ {
		if err := chromedp.Run(taskCtx,
			chromedp.Evaluate(scrollScript, nil),
			chromedp.Sleep(r.cfg.ScrollPause),
		); err != nil {
			r.logger.Warn("scroll pass failed", zap.String("url", url), zap.Error(err))
			break
		}
	}

	var html, finalURL string
	if err := chromedp.Run(taskCtx,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return r.salvage(tabCtx, url, meta, fmt.Errorf("extract markup: %w", err))
	}

	status := meta.status(http.StatusOK)
	if degraded && status == http.StatusOK {
		status = http.StatusPartialContent
	}
	if finalURL == "" {
		finalURL = url
	}
	return Page{URL: url, FinalURL: finalURL, StatusCode: status, Body: []byte(html)}, nil
}

// waitSelector waits for the selector under its own deadline so a slow
// listing page does not consume the whole navigation budget.
func (r *ChromedpRenderer) waitSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait %q: %w", selector, err)
	}
	return nil
}

// salvage grabs whatever markup the tab currently holds after a failure. Only
// when even that fails does Fetch surface an error.
func (r *ChromedpRenderer) salvage(tabCtx context.Context, url string, meta *responseMeta, cause error) (Page, error) {
	salvageCtx, cancel := context.WithTimeout(tabCtx, 5*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(salvageCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return Page{}, fmt.Errorf("render %s: %w", url, cause)
	}

	r.logger.Warn("render degraded to partial markup", zap.String("url", url), zap.Error(cause))
	return Page{
		URL:        url,
		FinalURL:   meta.finalURL(url),
		StatusCode: meta.status(http.StatusInternalServerError),
		Body:       []byte(html),
	}, nil
}

type responseMeta struct {
	mu         sync.Mutex
	statusCode int
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev interface{}) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusCode == 0 {
		m.statusCode = int(resp.Response.Status)
		m.url = resp.Response.URL
	}
}

func (m *responseMeta) status(fallback int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusCode == 0 {
		return fallback
	}
	return m.statusCode
}

func (m *responseMeta) finalURL(fallback string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.url == "" {
		return fallback
	}
	return m.url
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
