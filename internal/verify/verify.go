// Package verify probes extracted routes against a deployed base URL and
// classifies each route's reachability.
package verify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/deploywatch/deploywatch/internal/types"
)

// Config holds verifier settings.
type Config struct {
	// Timeout bounds each individual probe (default: 10s)
	Timeout time.Duration
	// MaxConcurrent bounds in-flight probes (default: 4)
	MaxConcurrent int
	// MinInterval is the minimum delay between probe starts, protecting
	// cold-starting targets (default: 100ms)
	MinInterval time.Duration
}

// DefaultConfig returns the default verifier configuration
func DefaultConfig() Config {
	return Config{
		Timeout:       10 * time.Second,
		MaxConcurrent: 4,
		MinInterval:   100 * time.Millisecond,
	}
}

// Verifier issues reachability probes for routes. Probes run concurrently
// up to the configured limit, but results always come back in input order.
type Verifier struct {
	client  *http.Client
	cfg     Config
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// New creates a Verifier. A nil httpClient uses a default client; the
// per-probe timeout comes from cfg, not the client.
func New(cfg Config, httpClient *http.Client) *Verifier {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = def.MinInterval
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Verifier{
		client:  httpClient,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Verify probes every route against baseURL. The returned slice preserves
// input order. On context cancellation, probes already completed are still
// returned; unstarted and in-flight ones are dropped, since an aborted
// probe says nothing about the route's health.
func (v *Verifier) Verify(ctx context.Context, routes []types.Route, baseURL string) ([]types.RouteCheckResult, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required for verification")
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	results := make([]*types.RouteCheckResult, len(routes))
	var wg sync.WaitGroup

	for i, route := range routes {
		// Rate-limit probe starts; a canceled context stops scheduling
		// further probes but leaves completed results intact.
		if err := v.limiter.Wait(ctx); err != nil {
			break
		}
		if err := v.sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(i int, route types.Route) {
			defer wg.Done()
			defer v.sem.Release(1)
			if r, ok := v.probe(ctx, route, base); ok {
				results[i] = &r
			}
		}(i, route)
	}

	wg.Wait()

	// Reassemble in input order, skipping probes that never ran
	out := make([]types.RouteCheckResult, 0, len(routes))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// probe issues one request and classifies the outcome. The second return
// is false when the probe was aborted by caller cancellation; such a
// result carries no health information and must not be reported.
func (v *Verifier) probe(ctx context.Context, route types.Route, base *url.URL) (types.RouteCheckResult, bool) {
	result := types.RouteCheckResult{
		Route:     route,
		CheckedAt: time.Now().UTC(),
	}

	probeCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	target := *base
	target.Path = joinPath(base.Path, FillParams(route.Path, route.Params))

	method := string(route.Method)
	if route.Method == types.MethodAny {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(probeCtx, method, target.String(), nil)
	if err != nil {
		result.Status = types.StatusUnreachable
		return result, true
	}
	req.Header.Set("User-Agent", "deploywatch-probe/1.0")

	start := time.Now()
	resp, err := v.client.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()

	if err != nil {
		// Caller cancellation, not a statement about the route
		if ctx.Err() == context.Canceled || errors.Is(err, context.Canceled) {
			return result, false
		}
		if errors.Is(err, context.DeadlineExceeded) || probeCtx.Err() == context.DeadlineExceeded {
			result.Status = types.StatusTimeout
		} else {
			result.Status = types.StatusUnreachable
		}
		return result, true
	}
	defer resp.Body.Close()

	result.HTTPStatus = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = types.StatusOK
	} else {
		result.Status = types.StatusErrorStatus
	}
	return result, true
}

// FillParams substitutes path parameters with the smallest valid synthetic
// value for the declared type, falling back to a fixed sentinel string.
// This makes probes best-effort reachability checks, not functional tests.
func FillParams(template string, params []types.Param) string {
	kinds := make(map[string]types.ParamKind, len(params))
	for _, p := range params {
		kinds[p.Name] = p.Kind
	}
	return braceRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		switch kinds[name] {
		case types.ParamInt:
			return "1"
		case types.ParamFloat:
			return "1.0"
		case types.ParamUUID:
			return "00000000-0000-0000-0000-000000000000"
		default:
			return "test"
		}
	})
}

var braceRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

func joinPath(base, p string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return base + p
}
