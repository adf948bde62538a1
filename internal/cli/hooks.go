package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zaurpkg/zaur/pkg/observability"
)

// RegisterDebugHooks routes observability events into the CLI logger at
// debug level. Intended for --verbose runs; without it the hooks stay no-op.
func (c *CLI) RegisterDebugHooks() {
	observability.SetHTTPHooks(&logHTTPHooks{logger: c.Logger})
	observability.SetCacheHooks(&logCacheHooks{logger: c.Logger})
	observability.SetBuildHooks(&logBuildHooks{logger: c.Logger})
}

type logHTTPHooks struct {
	observability.NoopHTTPHooks
	logger *log.Logger
}

func (h *logHTTPHooks) OnResponse(ctx context.Context, method, url string, statusCode int, duration time.Duration) {
	h.logger.Debug("http", "method", method, "url", url, "status", statusCode, "duration", duration.Round(time.Millisecond))
}

func (h *logHTTPHooks) OnError(ctx context.Context, method, url string, err error) {
	h.logger.Debug("http error", "method", method, "url", url, "err", err)
}

type logCacheHooks struct {
	observability.NoopCacheHooks
	logger *log.Logger
}

func (h *logCacheHooks) OnCacheHit(ctx context.Context, key string) {
	h.logger.Debug("cache hit", "key", key)
}

type logBuildHooks struct {
	observability.NoopBuildHooks
	logger *log.Logger
}

func (h *logBuildHooks) OnFetchComplete(ctx context.Context, pkg string, duration time.Duration, err error) {
	h.logger.Debug("fetched", "package", pkg, "duration", duration.Round(time.Millisecond), "err", err)
}

func (h *logBuildHooks) OnBuildComplete(ctx context.Context, pkg string, duration time.Duration, err error) {
	h.logger.Debug("built", "package", pkg, "duration", duration.Round(time.Millisecond), "err", err)
}
