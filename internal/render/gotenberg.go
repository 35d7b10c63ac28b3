package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const gotenbergHTMLRoute = "/forms/chromium/convert/html"

// Gotenberg prints documents through a Gotenberg server's chromium route.
type Gotenberg struct {
	logger     *logrus.Logger
	httpClient *resty.Client
}

func NewGotenberg(logger *logrus.Logger, baseURL string, timeout time.Duration) *Gotenberg {
	if timeout <= 0 {
		timeout = time.Minute
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/pdf")

	return &Gotenberg{logger: logger, httpClient: client}
}

func (g *Gotenberg) Render(ctx context.Context, html string) ([]byte, error) {
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetFileReader("files", "index.html", strings.NewReader(html)).
		SetFormData(map[string]string{
			"printBackground":   "true",
			"preferCssPageSize": "true",
			"paperWidth":        fmt.Sprintf("%.2f", a4WidthIn),
			"paperHeight":       fmt.Sprintf("%.2f", a4HeightIn),
		}).
		Post(gotenbergHTMLRoute)
	if err != nil {
		return nil, fmt.Errorf("failed to call gotenberg: %w", err)
	}

	if resp.IsError() {
		body := string(resp.Body())
		if len(body) > 200 {
			body = body[:200]
		}
		return nil, fmt.Errorf("gotenberg returned %d: %s", resp.StatusCode(), body)
	}

	g.logger.WithFields(logrus.Fields{
		"bytes":    len(resp.Body()),
		"duration": resp.Time().String(),
		"trace":    resp.Header().Get("Gotenberg-Trace"),
	}).Debug("rendered pdf with gotenberg")

	return resp.Body(), nil
}
