package source

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Renderer returns the HTML of a page after scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// ChromeRenderer starts a headless Chrome per call.
type ChromeRenderer struct {
	userAgent string
}

func NewChromeRenderer(userAgent string) *ChromeRenderer {
	return &ChromeRenderer{userAgent: userAgent}
}

func (r *ChromeRenderer) Render(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(r.userAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	return []byte(html), nil
}
