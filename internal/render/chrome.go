package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// A4 in inches.
const (
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
)

// Chrome prints documents with a local headless Chrome. Every call starts
// and tears down its own browser.
type Chrome struct {
	logger   *logrus.Logger
	execPath string
	timeout  time.Duration
}

func NewChrome(logger *logrus.Logger, execPath string, timeout time.Duration) *Chrome {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Chrome{logger: logger, execPath: execPath, timeout: timeout}
}

func (c *Chrome) Render(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	start := time.Now()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(a4WidthIn).
				WithPaperHeight(a4HeightIn).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome print to pdf: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"bytes":    len(pdf),
		"duration": time.Since(start).String(),
	}).Debug("rendered pdf with chrome")

	return pdf, nil
}
