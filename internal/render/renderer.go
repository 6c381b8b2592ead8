// Package render abstracts the rendering backend: given a URL it returns the
// page markup after client-side scripts have run. The harvester consumes only
// this capability and has no opinion on how rendering is achieved.
package render

import (
	"context"
	"time"
)

// Page is a rendered DOM snapshot.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// ContentLength returns the size of the rendered body.
func (p Page) ContentLength() int {
	return len(p.Body)
}

// FetchOptions tunes one fetch. A zero WaitSelector skips the readiness wait;
// ScrollPasses simulates user scrolling to trigger lazy-loaded results.
type FetchOptions struct {
	WaitSelector string
	WaitTimeout  time.Duration
	ScrollPasses int
}

// Renderer fetches a URL and returns the rendered markup. Implementations
// degrade to best-effort: a selector timeout or scripting failure yields the
// markup available at that point with a non-2xx status, not an error. An
// error return means no markup could be produced at all.
type Renderer interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (Page, error)
	Close(ctx context.Context) error
}
