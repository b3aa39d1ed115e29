package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeLauncher starts a headless Chrome per session.
type ChromeLauncher struct {
	opts Options
}

// Launch starts the browser and opens a single tab that is reused for every
// navigation of the session.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(l.opts.UserAgent),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
		chromedp.Flag("lang", l.opts.Locale),
	)
	if l.opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &chromeSession{
		tab:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		navigate:    navigateDOMReady,
		snapshot:    outerHTML,
	}, nil
}

type chromeSession struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	navigate func(ctx context.Context, rawURL string) error
	snapshot func(ctx context.Context) (string, error)
}

// Open bounds navigation, settle and snapshot by one deadline of
// Timeout+Settle so that no page can hold the session.
func (s *chromeSession) Open(ctx context.Context, rawURL string, opts OpenOptions) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stepCtx, cancel := context.WithTimeout(s.tab, opts.timeout()+opts.Settle)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := s.navigate(stepCtx, rawURL); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	if err := Wait(stepCtx, opts.Settle); err != nil {
		return nil, fmt.Errorf("settle %s: %w", rawURL, err)
	}

	html, err := s.snapshot(stepCtx)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", rawURL, err)
	}
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptyPage
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.tab)
	s.cancelTab()
	s.cancelAlloc()
	if err != nil {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

// navigateDOMReady returns once the main frame fires DOMContentLoaded
// instead of waiting for every subresource like chromedp.Navigate does.
func navigateDOMReady(ctx context.Context, rawURL string) error {
	ready := make(chan struct{}, 1)
	chromedp.ListenTarget(ctx, func(ev any) {
		if _, ok := ev.(*page.EventDomContentEventFired); ok {
			select {
			case ready <- struct{}{}:
			default:
			}
		}
	})

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var res page.NavigateReturns
		if err := cdp.Execute(ctx, page.CommandNavigate, page.Navigate(rawURL), &res); err != nil {
			return err
		}
		if res.ErrorText != "" {
			return fmt.Errorf("page load error %s", res.ErrorText)
		}
		return nil
	}))
	if err != nil {
		return err
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// outerHTML reads the document markup without waiting for any node, so
// documents without an <html> root (XML viewer, plain text) still return.
func outerHTML(ctx context.Context) (string, error) {
	var html string
	err := chromedp.Run(ctx, chromedp.Evaluate(
		`document.documentElement ? document.documentElement.outerHTML : ""`, &html))
	return html, err
}
