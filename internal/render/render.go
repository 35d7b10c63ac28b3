// Package render converts assembled HTML documents into PDF.
package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"defectlog/pkg/types"

	"github.com/sirupsen/logrus"
)

type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// New returns the renderer selected by config.Renderer.
func New(config *types.Config, logger *logrus.Logger) (Renderer, error) {
	timeout := time.Duration(config.RenderTimeoutSec) * time.Second

	switch strings.ToLower(strings.TrimSpace(config.Renderer)) {
	case "", types.RendererChrome:
		return NewChrome(logger, config.ChromePath, timeout), nil
	case types.RendererGotenberg:
		if config.GotenbergURL == "" {
			return nil, fmt.Errorf("set GOTENBERG_URL to use the gotenberg renderer")
		}
		return NewGotenberg(logger, config.GotenbergURL, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported renderer %q", config.Renderer)
	}
}
