// Package fetch performs polite, rate-limited, retrying HTTP GETs against
// Wikipedia. When a URL's transient failures exhaust the retry budget, it
// probes general internet connectivity and, if that too is down, hands
// control to a human operator rather than silently giving up or hammering
// a dead network — grounded on demo_connectivity_handling.py /
// test_connectivity_handling.py's probe-then-prompt-then-retry loop, with
// a hard 3-cycle circuit breaker as the backstop.
package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

// ErrSkippedByOperator is returned when the operator chose "skip" at the
// connectivity prompt.
var ErrSkippedByOperator = errors.New("fetch: skipped by operator")

// ErrCircuitOpen is returned when the connectivity circuit breaker forces
// a skip after 3 completed "continue" cycles without success.
var ErrCircuitOpen = errors.New("fetch: circuit breaker forced skip after 3 retry cycles")

// Decision is the operator's reply to a connectivity prompt.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionSkip     Decision = "skip"
)

// Prompter asks an operator whether to continue retrying or skip a URL
// whose fetch has failed alongside a failed connectivity probe. Pluggable
// so tests can script a deterministic sequence of decisions instead of
// blocking on stdin.
type Prompter interface {
	Prompt(ctx context.Context, rawURL string, cycle int) (Decision, error)
}

// StdinPrompter is the default Prompter: it blocks on standard input,
// re-prompting on anything other than "continue" or "skip", and treats
// EOF or a read error as "skip". It ignores ctx: a prompt blocked on a read
// returns only when a line, EOF, or a read error arrives.
type StdinPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdinPrompter constructs a Prompter backed by os.Stdin/os.Stdout.
func NewStdinPrompter() *StdinPrompter {
	return &StdinPrompter{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (p *StdinPrompter) Prompt(_ context.Context, rawURL string, cycle int) (Decision, error) {
	for {
		fmt.Fprintf(p.out, "\nconnectivity check failed while fetching %s (cycle %d/3)\ntype \"continue\" to retry or \"skip\" to move on: ", rawURL, cycle)
		line, err := p.in.ReadString('\n')
		if err != nil {
			return DecisionSkip, nil
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "continue":
			return DecisionContinue, nil
		case "skip":
			return DecisionSkip, nil
		}
	}
}

// RetryPolicy controls the exponential-backoff retry schedule applied to
// transient failures, grounded on the teacher's retry.go, with the
// ±25%-random jitter generalized to a deterministic, URL-seeded ±10%
// jitter so circuit-breaker tests are reproducible.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy matches the spec's defaults: max_retries=3 (4 total
// attempts), 1s initial backoff doubling up to 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       4,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}

// backoffDuration computes attempt's wait time with jitter seeded from an
// FNV hash of rawURL rather than math/rand global state, so the same URL
// always produces the same backoff schedule.
func backoffDuration(policy RetryPolicy, attempt int, rawURL string) time.Duration {
	d := float64(policy.InitialBackoff) * pow(policy.BackoffMultiplier, float64(attempt))
	if d > float64(policy.MaxBackoff) {
		d = float64(policy.MaxBackoff)
	}

	h := fnv.New32a()
	h.Write([]byte(rawURL))
	frac := float64(h.Sum32()%2000)/1000.0 - 1.0 // deterministic value in [-1, 1)
	d += d * 0.10 * frac

	if d < 0 {
		d = float64(policy.InitialBackoff)
	}
	return time.Duration(d)
}

// failureClass is the permanent/client/transient/redirect taxonomy a
// fetch attempt's outcome is sorted into.
type failureClass int

const (
	classSuccess failureClass = iota
	classPermanent
	classClient
	classTransient
	classRedirectLoop
)

// classify sorts a fetch attempt's outcome per §4.F: 200 is success;
// 404/403/410/451 are permanent (no retry); other 4xx except 408/429 are
// client errors (no retry); 408/429/5xx/connection/timeout are transient
// (eligible for retry); too-many-redirects is not retried either.
func classify(statusCode int, err error) failureClass {
	if err != nil {
		if isRedirectLoopError(err) {
			return classRedirectLoop
		}
		return classTransient
	}
	switch {
	case statusCode == http.StatusOK:
		return classSuccess
	case statusCode == http.StatusNotFound, statusCode == http.StatusForbidden,
		statusCode == http.StatusGone, statusCode == 451:
		return classPermanent
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return classTransient
	case statusCode >= 400 && statusCode < 500:
		return classClient
	case statusCode >= 500:
		return classTransient
	default:
		return classSuccess
	}
}

func isRedirectLoopError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "stopped after")
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Metrics are the observables §4.F requires tracked across a Fetcher's
// lifetime.
type Metrics struct {
	RequestsAttempted         int
	Retries                   int
	PermanentErrors           int
	ClientErrors              int
	ConnectionErrors          int
	TimeoutErrors             int
	RedirectErrors            int
	OtherErrors               int
	ConnectivityTests         int
	ConnectivitySuccesses     int
	ConnectivityFailures      int
	UserDecisions             map[Decision]int
	UserRetries               int
	UserRetrySuccesses        int
	SkippedURLs               int
	CircuitBreakerActivations int
}

// Fetcher performs rate-limited, retrying HTTP GETs with a human-in-the-
// loop connectivity circuit breaker.
type Fetcher struct {
	client      *http.Client
	probeClient *http.Client
	retry       RetryPolicy
	logger      arbor.ILogger
	userAgent   string
	limiter     *rate.Limiter
	prompter    Prompter
	probeURL    string

	mu      sync.Mutex
	metrics Metrics
}

// Config configures a Fetcher.
type Config struct {
	RequestDelay   time.Duration
	RequestTimeout time.Duration
	UserAgent      string
	Retry          RetryPolicy
	Prompter       Prompter
	ProbeURL       string
	ProbeTimeout   time.Duration
}

// New constructs a Fetcher. A zero Config.Retry uses DefaultRetryPolicy; a
// nil Config.Prompter uses a stdin-backed prompter; a zero Config.ProbeURL
// probes https://www.google.com.
func New(cfg Config, logger arbor.ILogger) *Fetcher {
	retryPolicy := cfg.Retry
	if retryPolicy.MaxAttempts == 0 {
		retryPolicy = DefaultRetryPolicy()
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "wikicrawl/1.0 (+https://github.com/wikicrawl/wikicrawl)"
	}
	prompter := cfg.Prompter
	if prompter == nil {
		prompter = NewStdinPrompter()
	}
	probeURL := cfg.ProbeURL
	if probeURL == "" {
		probeURL = "https://www.google.com"
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	every := cfg.RequestDelay
	if every <= 0 {
		every = time.Millisecond
	}

	return &Fetcher{
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		probeClient: &http.Client{Timeout: probeTimeout},
		retry:       retryPolicy,
		logger:      logger,
		userAgent:   userAgent,
		limiter:     rate.NewLimiter(rate.Every(every), 1),
		prompter:    prompter,
		probeURL:    probeURL,
		metrics:     Metrics{UserDecisions: make(map[Decision]int)},
	}
}

// Metrics returns a copy of the fetcher's accumulated observables.
func (f *Fetcher) Metrics() Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	decisions := make(map[Decision]int, len(f.metrics.UserDecisions))
	for k, v := range f.metrics.UserDecisions {
		decisions[k] = v
	}
	m := f.metrics
	m.UserDecisions = decisions
	return m
}

// Fetch performs a polite GET of rawURL: up to Retry.MaxAttempts attempts
// with classification-aware backoff, falling into the connectivity
// circuit breaker if every attempt fails transiently.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (model.Page, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return model.Page{}, fmt.Errorf("fetch: invalid URL %q: %w", rawURL, err)
	}

	page, class, err := f.runSchedule(ctx, rawURL)
	if class == classSuccess {
		return page, nil
	}
	if class == classPermanent || class == classClient || class == classRedirectLoop {
		return model.Page{}, fmt.Errorf("fetch: %s: %w", rawURL, err)
	}

	return f.connectivityLoop(ctx, rawURL, err)
}

// runSchedule performs up to Retry.MaxAttempts attempts against rawURL,
// backing off between transient failures, and returns the final
// attempt's page, classification, and error.
func (f *Fetcher) runSchedule(ctx context.Context, rawURL string) (model.Page, failureClass, error) {
	var lastPage model.Page
	var lastErr error
	var lastClass failureClass

	for attempt := 0; attempt < f.retry.MaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return model.Page{}, classTransient, fmt.Errorf("fetch: rate limiter wait cancelled: %w", err)
		}

		f.recordAttempt()
		page, statusCode, reqErr := f.doRequest(ctx, rawURL)
		class := classify(statusCode, reqErr)
		f.recordClass(class, reqErr)

		lastPage, lastErr, lastClass = page, reqErr, class
		if class == classSuccess {
			return page, classSuccess, nil
		}
		if class != classTransient {
			return lastPage, lastClass, wrapFetchError(rawURL, lastPage, lastErr)
		}
		if attempt == f.retry.MaxAttempts-1 {
			break
		}

		f.recordRetry()
		wait := backoffDuration(f.retry, attempt, rawURL)
		if f.logger != nil {
			f.logger.Debug().Str("url", rawURL).Int("attempt", attempt+1).Dur("backoff", wait).Msg("retrying fetch")
		}
		select {
		case <-ctx.Done():
			return model.Page{}, classTransient, ctx.Err()
		case <-time.After(wait):
		}
	}

	return lastPage, lastClass, wrapFetchError(rawURL, lastPage, lastErr)
}

func wrapFetchError(rawURL string, page model.Page, err error) error {
	if err != nil {
		return fmt.Errorf("fetch: %s: %w", rawURL, err)
	}
	return fmt.Errorf("fetch: %s: status %d", rawURL, page.StatusCode)
}

// connectivityLoop is the operator-in-the-loop circuit breaker: up to 3
// cycles of probe-then-prompt-then-retry, forcing a skip if all 3
// complete without the target (or the network) recovering.
func (f *Fetcher) connectivityLoop(ctx context.Context, rawURL string, lastErr error) (model.Page, error) {
	for cycle := 1; cycle <= 3; cycle++ {
		f.recordConnectivityTest()
		if f.probe(ctx) {
			f.recordConnectivitySuccess()
			return model.Page{}, fmt.Errorf("fetch: %s: target unreachable though network connectivity is fine: %w", rawURL, lastErr)
		}
		f.recordConnectivityFailure()

		decision, err := f.prompter.Prompt(ctx, rawURL, cycle)
		if err != nil {
			decision = DecisionSkip
		}
		f.recordDecision(decision)

		if decision == DecisionSkip {
			f.recordSkip()
			return model.Page{}, fmt.Errorf("%w: %s", ErrSkippedByOperator, rawURL)
		}

		f.recordUserRetry()
		page, class, retryErr := f.runSchedule(ctx, rawURL)
		if class == classSuccess {
			f.recordUserRetrySuccess()
			return page, nil
		}
		lastErr = retryErr
		if class != classTransient {
			return model.Page{}, retryErr
		}
	}

	f.recordCircuitBreakerActivation()
	f.recordSkip()
	return model.Page{}, fmt.Errorf("%w: %s", ErrCircuitOpen, rawURL)
}

// probe performs a bounded-timeout GET against the configured probe URL,
// independent of the main rate limiter, to distinguish "this host is
// down" from "the whole network is down".
func (f *Fetcher) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.probeURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.probeClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 500
}

func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (model.Page, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.Page{}, 0, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return model.Page{}, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Page{}, resp.StatusCode, err
	}

	return model.Page{
		URL:        rawURL,
		Body:       string(body),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Length:     len(body),
	}, resp.StatusCode, nil
}

func (f *Fetcher) recordAttempt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.RequestsAttempted++
}

func (f *Fetcher) recordRetry() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.Retries++
}

func (f *Fetcher) recordClass(class failureClass, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch class {
	case classPermanent:
		f.metrics.PermanentErrors++
	case classClient:
		f.metrics.ClientErrors++
	case classRedirectLoop:
		f.metrics.RedirectErrors++
	case classTransient:
		switch {
		case isTimeoutError(err):
			f.metrics.TimeoutErrors++
		case isConnectionError(err):
			f.metrics.ConnectionErrors++
		default:
			f.metrics.OtherErrors++
		}
	}
}

func (f *Fetcher) recordConnectivityTest() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.ConnectivityTests++
}

func (f *Fetcher) recordConnectivitySuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.ConnectivitySuccesses++
}

func (f *Fetcher) recordConnectivityFailure() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.ConnectivityFailures++
}

func (f *Fetcher) recordDecision(d Decision) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.UserDecisions[d]++
}

func (f *Fetcher) recordUserRetry() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.UserRetries++
}

func (f *Fetcher) recordUserRetrySuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.UserRetrySuccesses++
}

func (f *Fetcher) recordSkip() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.SkippedURLs++
}

func (f *Fetcher) recordCircuitBreakerActivation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.CircuitBreakerActivations++
}
