// Package frontier owns entity URL discovery: listing-page pagination,
// dedup of already-enqueued URLs and crawl termination.
package frontier

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/healthdex/provider-harvest/internal/extract"
	"github.com/healthdex/provider-harvest/internal/metrics"
	"github.com/healthdex/provider-harvest/internal/provider"
	"github.com/healthdex/provider-harvest/internal/render"
)

// Candidate is one discovered entity: its profile URL plus the summary
// fragment parsed from the listing card.
type Candidate struct {
	URL     string
	Summary provider.Fragment
}

// Config controls discovery.
type Config struct {
	// ListingURL is the first listing page; later pages add PageParam.
	ListingURL string
	// PageParam is the query parameter carrying the page number.
	PageParam string
	// Quota is the target number of entities; discovery stops once reached
	// and the final list is truncated to it.
	Quota int
	// MaxPages is the hard pagination ceiling, a safety bound against
	// endless listings. Hitting it is a warning, not an error.
	MaxPages int
	// WaitTimeout bounds the card-selector wait per listing page.
	WaitTimeout time.Duration
	// ScrollPasses triggers lazy-loaded results on each listing page.
	ScrollPasses int
	Cards        extract.CardSelectors
}

// Controller paginates the directory and accumulates candidate URLs in
// discovery order.
type Controller struct {
	cfg      Config
	renderer render.Renderer
	logger   *zap.Logger
}

// New creates a Controller.
func New(cfg Config, renderer render.Renderer, logger *zap.Logger) *Controller {
	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	return &Controller{cfg: cfg, renderer: renderer, logger: logger}
}

// Discover paginates until the quota is met, a page yields zero new URLs
// (end of results), or the page ceiling is hit. A fetch failure on one page
// counts as zero URLs and therefore ends pagination; it is never retried and
// never aborts the crawl.
func (c *Controller) Discover(ctx context.Context) ([]Candidate, error) {
	base, err := url.Parse(c.cfg.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	seen := make(map[string]struct{})
	var candidates []Candidate

	for page := 1; ; page++ {
		if page > c.cfg.MaxPages {
			c.logger.Warn("pagination ceiling reached",
				zap.Int("max_pages", c.cfg.MaxPages),
				zap.Int("discovered", len(candidates)),
			)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discover canceled: %w", err)
		}

		pageURL := c.pageURL(base, page)
		added := c.discoverPage(ctx, pageURL, base, seen, &candidates)
		c.logger.Info("listing page processed",
			zap.Int("page", page),
			zap.Int("new_urls", added),
			zap.Int("total", len(candidates)),
		)

		if added == 0 {
			c.logger.Info("no new entity urls, ending pagination", zap.Int("page", page))
			break
		}
		if c.cfg.Quota > 0 && len(candidates) >= c.cfg.Quota {
			break
		}
	}

	if c.cfg.Quota > 0 && len(candidates) > c.cfg.Quota {
		candidates = candidates[:c.cfg.Quota]
	}
	return candidates, nil
}

func (c *Controller) pageURL(base *url.URL, page int) string {
	if page == 1 {
		return base.String()
	}
	u := *base
	q := u.Query()
	q.Set(c.cfg.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// discoverPage fetches one listing page and appends every new candidate.
// Any failure is logged and treated as "zero URLs from this page".
func (c *Controller) discoverPage(
	ctx context.Context,
	pageURL string,
	base *url.URL,
	seen map[string]struct{},
	candidates *[]Candidate,
) int {
	page, err := c.renderer.Fetch(ctx, pageURL, render.FetchOptions{
		WaitSelector: c.cfg.Cards.Card,
		WaitTimeout:  c.cfg.WaitTimeout,
		ScrollPasses: c.cfg.ScrollPasses,
	})
	if err != nil {
		c.logger.Warn("listing fetch failed", zap.String("url", pageURL), zap.Error(err))
		metrics.ObservePage("listing", "error")
		return 0
	}
	metrics.ObservePage("listing", strconv.Itoa(page.StatusCode))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		c.logger.Warn("listing parse failed", zap.String("url", pageURL), zap.Error(err))
		return 0
	}

	added := 0
	doc.Find(c.cfg.Cards.Card).Each(func(_ int, card *goquery.Selection) {
		summary, link := extract.ParseCard(card, c.cfg.Cards)
		if link == "" {
			return
		}
		resolved := resolveLink(base, link)
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		*candidates = append(*candidates, Candidate{URL: resolved, Summary: summary})
		added++
	})
	return added
}

func resolveLink(base *url.URL, link string) string {
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
