// Package browser is the page-loading boundary of the crawler: navigate to a
// URL, let client-side rendering settle, and hand back the resulting DOM.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// RendererChrome drives headless Chrome and sees client-rendered markup.
	RendererChrome = "chrome"
	// RendererHTTP issues plain GET requests; cheaper, but static HTML only.
	RendererHTTP = "http"
)

var (
	// ErrUnknownRenderer is returned for a renderer name NewLauncher does not know.
	ErrUnknownRenderer = errors.New("unknown renderer")
	// ErrEmptyPage is returned when a page loads without a body.
	ErrEmptyPage = errors.New("empty page")
)

// Options configure every session a launcher opens.
type Options struct {
	Renderer     string
	UserAgent    string
	Locale       string
	WindowWidth  int
	WindowHeight int
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// DefaultOpenTimeout bounds a navigation whose OpenOptions.Timeout is unset.
const DefaultOpenTimeout = 30 * time.Second

// OpenOptions bound a single navigation.
type OpenOptions struct {
	// Timeout caps the navigation itself.
	Timeout time.Duration
	// Settle is waited after load so that scripts can render results.
	Settle time.Duration
}

func (o OpenOptions) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultOpenTimeout
}

// Session is one browsing session. Calls are sequential; a session is not
// safe for concurrent use.
type Session interface {
	Open(ctx context.Context, rawURL string, opts OpenOptions) (*goquery.Document, error)
	Close() error
}

// Launcher starts sessions; the crawler launches one per cycle.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// NewLauncher picks the launcher for opts.Renderer.
func NewLauncher(opts Options) (Launcher, error) {
	if opts.Locale == "" {
		opts.Locale = "ko-KR"
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1920, 1080
	}

	switch opts.Renderer {
	case RendererChrome, "":
		return &ChromeLauncher{opts: opts}, nil
	case RendererHTTP:
		return &HTTPLauncher{opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, opts.Renderer)
	}
}

// Wait pauses for d unless ctx ends first.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
