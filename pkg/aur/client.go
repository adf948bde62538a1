package aur

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/zaurpkg/zaur/pkg/errors"
	"github.com/zaurpkg/zaur/pkg/observability"
)

const (
	defaultRPCURL      = "https://aur.archlinux.org/rpc/v5"
	defaultSnapshotURL = "https://aur.archlinux.org/cgit/aur.git/snapshot"
	userAgent          = "zaur/1.0 (https://github.com/zaurpkg/zaur)"

	// The RPC info endpoint gets unreliable above this many names per
	// request, so batches are split.
	batchChunkSize = 50

	// How much of an unexpected response body is kept for diagnostics.
	bodyPreviewLimit = 512

	// Consecutive failures before the circuit opens.
	breakerThreshold = 5
)

// Client queries the AUR RPC API and downloads package snapshots.
// All methods are safe for concurrent use; a shared Limiter spaces out
// requests and a circuit breaker stops traffic to a dead AUR entirely.
type Client struct {
	http        *http.Client
	limiter     *Limiter
	retry       RetryPolicy
	breaker     *circuit.Breaker
	rpcURL      string
	snapshotURL string
}

// NewClient creates a Client with the given rate-limit parameters.
func NewClient(maxConcurrent int, minDelay time.Duration) *Client {
	return &Client{
		http:        newHTTPClient(),
		limiter:     NewLimiter(maxConcurrent, minDelay),
		retry:       DefaultRetryPolicy(),
		breaker:     newBreaker(),
		rpcURL:      defaultRPCURL,
		snapshotURL: defaultSnapshotURL,
	}
}

func newBreaker() *circuit.Breaker {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 30 * time.Second
	bo.MaxInterval = 5 * time.Minute
	bo.Multiplier = 2.0
	bo.Reset()
	return circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    bo,
		ShouldTrip: circuit.ThresholdTripFunc(breakerThreshold),
	})
}

// Search returns packages matching query. The query must be at least two
// characters; shorter queries fail with INVALID_INPUT before any request is
// made. An empty result list is not an error.
func (c *Client) Search(ctx context.Context, query string) ([]Package, error) {
	if len(query) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "search query must be at least 2 characters")
	}

	env, err := c.query(ctx, c.rpcURL+"/search/"+url.PathEscape(query))
	if err != nil {
		return nil, err
	}
	if env.isError() {
		return nil, errors.New(errors.ErrCodeRemote, "AUR search failed: %s", env.errorMessage())
	}
	return env.Results, nil
}

// Info returns the record for one exactly-named package, or NOT_FOUND when
// the AUR has no such package.
func (c *Client) Info(ctx context.Context, name string) (*Package, error) {
	env, err := c.query(ctx, c.rpcURL+"/info/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	if env.isError() {
		return nil, errors.New(errors.ErrCodeRemote, "AUR info query failed: %s", env.errorMessage())
	}
	if env.ResultCount == 0 || len(env.Results) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "package not found in AUR: %s", name)
	}
	return &env.Results[0], nil
}

// InfoBatch returns records for many packages, issuing one rate-limited
// request per chunk of at most 50 names. Any chunk failure aborts the whole
// batch. Names missing from the AUR are simply absent from the result.
func (c *Client) InfoBatch(ctx context.Context, names []string) ([]Package, error) {
	var all []Package
	for start := 0; start < len(names); start += batchChunkSize {
		end := min(start+batchChunkSize, len(names))

		chunk, err := c.infoChunk(ctx, names[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, chunk...)
	}
	return all, nil
}

func (c *Client) infoChunk(ctx context.Context, names []string) ([]Package, error) {
	params := url.Values{}
	for _, name := range names {
		params.Add("arg[]", name)
	}

	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := c.do(ctx, c.rpcURL+"/info?"+params.Encode())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, err, "AUR batch query failed after retries")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPreviewLimit))
		return nil, errors.New(errors.ErrCodeRemote,
			"AUR batch query returned HTTP %d: %s", resp.StatusCode, string(preview))
	}

	var env response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, err, "failed to parse AUR response")
	}
	if env.isError() {
		return nil, errors.New(errors.ErrCodeRemote, "AUR batch query failed: %s", env.errorMessage())
	}
	return env.Results, nil
}

// DownloadSnapshot fetches the gzip-compressed tar snapshot of a package's
// buildable tree.
func (c *Client) DownloadSnapshot(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.do(ctx, c.snapshotURL+"/"+url.PathEscape(name)+".tar.gz")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDownloadFailed, err,
			"failed to download %s after retries", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New(errors.ErrCodeDownloadFailed,
			"failed to download %s: HTTP %d", name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// query performs one rate-limited, retried RPC GET and decodes the envelope.
func (c *Client) query(ctx context.Context, reqURL string) (*response, error) {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := c.do(ctx, reqURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, err, "AUR query failed after retries")
	}
	defer resp.Body.Close()

	var env response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, err, "failed to parse AUR response")
	}
	return &env, nil
}

// do issues one retried request behind the circuit breaker. Call performs
// the readiness check itself; checking beforehand would consume the
// half-open trial allowance twice.
func (c *Client) do(ctx context.Context, reqURL string) (*http.Response, error) {
	observability.HTTP().OnRequest(ctx, http.MethodGet, reqURL)
	start := time.Now()

	var resp *http.Response
	err := c.breaker.Call(func() error {
		var doErr error
		resp, doErr = c.retry.Do(ctx, func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", userAgent)
			return c.http.Do(req)
		})
		return doErr
	}, 0)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, reqURL, err)
		if err == circuit.ErrBreakerOpen {
			return nil, fmt.Errorf("AUR temporarily unavailable (circuit open)")
		}
		return nil, err
	}
	observability.HTTP().OnResponse(ctx, http.MethodGet, reqURL, resp.StatusCode, time.Since(start))
	return resp, nil
}
