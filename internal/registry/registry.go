// Package registry implements the Registry Client external collaborator
// (spec.md §6): a crates.io-shaped HTTP client for listing versions,
// ranking reverse dependencies, and downloading ".crate" artifacts.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/metrics"
	"github.com/imazen/crusader/internal/retry"
)

// Client is the Registry Client. It holds a process-wide rate limiter
// (spec.md §5: "1s between calls" by default) and an HTTP client.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	limiter     *rate.Limiter
	recorder    metrics.Recorder
	retryPolicy retry.Policy
}

const defaultBaseURL = "https://crates.io/api/v1"

// Option configures a Client at construction.
type Option func(*Client)

func WithBaseURL(url string) Option { return func(c *Client) { c.baseURL = url } }
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}
func WithRecorder(r metrics.Recorder) Option { return func(c *Client) { c.recorder = r } }
func WithRateLimit(interval time.Duration) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(interval), 1) }
}
func WithRetryPolicy(p retry.Policy) Option { return func(c *Client) { c.retryPolicy = p } }

// New constructs a Client with sensible defaults: crates.io, a 10s HTTP
// timeout, one request per second, a NoopRecorder, and retry.DefaultPolicy.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		userAgent:   "crusader (ecosystem-impact tester)",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		recorder:    metrics.NoopRecorder{},
		retryPolicy: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends req, retrying transient network failures per c.retryPolicy
// (spec's Http error kind). A non-nil *http.Response is never retried —
// HTTP status handling is the caller's concern. Grounded on the
// teacher's internal/git.Client.withRetry.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryPolicy.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying registry request", slog.String("url", req.URL.String()), slog.Int("attempt", attempt))
		}
		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isTransientHTTPError(err) || attempt == c.retryPolicy.MaxRetries {
			break
		}
		time.Sleep(c.retryPolicy.Delay(attempt + 1))
	}
	return nil, lastErr
}

// isTransientHTTPError reports whether err is worth retrying: a timeout
// or other net.Error, but not a canceled/deadline-exceeded context (the
// caller gave up, retrying would not help).
func isTransientHTTPError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var nerr net.Error
	return errors.As(err, &nerr)
}

type crateVersionsResponse struct {
	Versions []struct {
		Num       string `json:"num"`
		Yanked    bool   `json:"yanked"`
		DLPath    string `json:"dl_path"`
		CrateName string `json:"crate"`
	} `json:"versions"`
}

// Versions returns every non-yanked published version string for
// crateName, newest-last as returned by the registry.
func (c *Client) Versions(ctx context.Context, crateName string) ([]string, *foundation.ClassifiedError) {
	var body crateVersionsResponse
	endpoint := fmt.Sprintf("%s/crates/%s", c.baseURL, crateName)
	if err := c.getJSON(ctx, "versions", endpoint, &body); err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(body.Versions))
	for _, v := range body.Versions {
		if v.Yanked {
			continue
		}
		versions = append(versions, v.Num)
	}
	if len(versions) == 0 {
		return nil, foundation.NoCrateVersionsError(crateName).Build()
	}
	return versions, nil
}

type reverseDependenciesResponse struct {
	Dependencies []struct {
		CrateID string `json:"crate_id"`
	} `json:"dependencies"`
}

// TopDependents returns up to n crate names that depend on crateName,
// ranked by the registry's own ordering (typically by download count).
func (c *Client) TopDependents(ctx context.Context, crateName string, n int) ([]string, *foundation.ClassifiedError) {
	var body reverseDependenciesResponse
	endpoint := fmt.Sprintf("%s/crates/%s/reverse_dependencies", c.baseURL, crateName)
	if err := c.getJSON(ctx, "reverse_dependencies", endpoint, &body); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(body.Dependencies))
	names := make([]string, 0, n)
	for _, dep := range body.Dependencies {
		if dep.CrateID == "" || seen[dep.CrateID] {
			continue
		}
		seen[dep.CrateID] = true
		names = append(names, dep.CrateID)
		if len(names) == n {
			break
		}
	}
	return names, nil
}

// Download fetches the .crate tarball for crateName at version.
func (c *Client) Download(ctx context.Context, crateName, version string) (io.ReadCloser, *foundation.ClassifiedError) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, foundation.HTTPError("rate limiter wait canceled").WithCause(err).Build()
	}
	endpoint := fmt.Sprintf("%s/crates/%s/%s/download", c.baseURL, crateName, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, foundation.HTTPError("failed to build download request").WithCause(err).Build()
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.do(req)
	if err != nil {
		c.recorder.IncRegistryRequest("download", false)
		return nil, foundation.HTTPError("download request failed for " + crateName + "@" + version).WithCause(err).Build()
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.recorder.IncRegistryRequest("download", false)
		return nil, foundation.RegistryAPIError(
			fmt.Sprintf("download of %s@%s returned status %d", crateName, version, resp.StatusCode)).Build()
	}
	c.recorder.IncRegistryRequest("download", true)
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, url string, out any) *foundation.ClassifiedError {
	if err := c.limiter.Wait(ctx); err != nil {
		return foundation.HTTPError("rate limiter wait canceled").WithCause(err).Build()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return foundation.HTTPError("failed to build request for " + url).WithCause(err).Build()
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		c.recorder.IncRegistryRequest(endpoint, false)
		return foundation.HTTPError("request failed for " + url).WithCause(err).Build()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recorder.IncRegistryRequest(endpoint, false)
		return foundation.RegistryAPIError(
			fmt.Sprintf("%s returned status %d", url, resp.StatusCode)).Build()
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		c.recorder.IncRegistryRequest(endpoint, false)
		return foundation.RegistryAPIError("failed to parse response from " + url).WithCause(err).Build()
	}
	c.recorder.IncRegistryRequest(endpoint, true)
	return nil
}

// ParseDependentSpec splits the CLI's "name:version" syntax (spec.md
// §6's --dependents flag), returning an empty version when unspecified.
func ParseDependentSpec(spec string) (name, version string) {
	if idx := strings.Index(spec, ":"); idx >= 0 {
		return spec[:idx], spec[idx+1:]
	}
	return spec, ""
}
