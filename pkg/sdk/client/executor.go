package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conduit-lang/conduit-sdk/internal/cache"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/apierr"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/entity"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/query"
	"github.com/conduit-lang/conduit-sdk/pkg/sdk/wire"
)

// request is one logical call; every attempt is built from it afresh
type request struct {
	method    string
	url       string
	body      []byte
	requestID string
}

// Execute sends a request to path, relative to the service URL, with the
// encoded query q and materialises the primary data. The first record
// hydrates target; further list records are constructed through the
// registry. A nil target materialises every record through the registry.
//
// Failures go through the error policy: the returned error is non-nil only
// under the rethrow disposition.
func (s *Service) Execute(ctx context.Context, method, path string, q *query.Builder, target entity.Entity) ([]entity.Entity, error) {
	req, apiErr := s.build(method, path, q, target)
	if apiErr != nil {
		return nil, s.fail(apiErr)
	}

	results, apiErr := s.execute(ctx, req, target)
	if apiErr != nil {
		return nil, s.fail(apiErr)
	}
	return results, nil
}

// build resolves the URL and write payload of a request
func (s *Service) build(method, path string, q *query.Builder, target entity.Entity) (*request, *apierr.Error) {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, apierr.Newf(apierr.KindRuntime, "Runtime Error", "unsupported request method %s", method)
	}

	url := s.baseURL + "/" + strings.TrimLeft(path, "/")
	if q != nil {
		if encoded := q.Encode(); encoded != "" {
			url += "?" + encoded
		}
	}

	req := &request{method: method, url: url, requestID: uuid.NewString()}
	if hasPayload(method) && target != nil {
		body, err := json.Marshal(target.Payload())
		if err != nil {
			return nil, apierr.Wrap(apierr.KindRuntime, err, "Runtime Error",
				fmt.Sprintf("failed to encode %s payload, details - %s", target.Type(), err.Error()))
		}
		req.body = body
	}
	return req, nil
}

func hasPayload(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// execute runs the pipeline: cache lookup, send with retries, parse and materialise
func (s *Service) execute(ctx context.Context, req *request, target entity.Entity) ([]entity.Entity, *apierr.Error) {
	defer s.metrics.observe(req.method, time.Now())

	if ctx.Err() != nil {
		return nil, aborted(ctx)
	}

	body, hit := s.cached(ctx, req)
	if !hit {
		var apiErr *apierr.Error
		if body, apiErr = s.send(ctx, req); apiErr != nil {
			return nil, apiErr
		}
	}

	env, apiErr := parse(body)
	if apiErr != nil {
		return nil, apiErr
	}
	if !hit {
		s.store(ctx, req, body)
	}
	return s.materialize(env, target)
}

// send performs attempts until one succeeds, a terminal failure occurs or the
// budget is spent. The budget is never less than one attempt.
func (s *Service) send(ctx context.Context, req *request) ([]byte, *apierr.Error) {
	attempts := s.cfg.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last *apierr.Error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := s.backoff.Delay(attempt - 1)
			s.logger.Debug("retrying request",
				zap.String("method", req.method),
				zap.String("url", req.url),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.String("request_id", req.requestID),
			)
			if err := wait(ctx, delay); err != nil {
				return nil, aborted(ctx)
			}
		}

		body, apiErr := s.attempt(ctx, req, attempt)
		if apiErr == nil {
			return body, nil
		}
		if !apiErr.Kind.Retryable() {
			return nil, apiErr
		}
		last = apiErr
	}

	return nil, apierr.Wrap(apierr.KindNetwork, last, "Network Error",
		fmt.Sprintf("request failed after %d attempts, last error - %s", attempts, last.Text)).
		WithStatus(last.Status)
}

// attempt sends the request once and classifies the transport outcome
func (s *Service) attempt(ctx context.Context, req *request, n int) ([]byte, *apierr.Error) {
	if ctx.Err() != nil {
		return nil, aborted(ctx)
	}

	if s.cfg.DNS.Check && !s.resolver.Check(ctx, req.url, n > 1) {
		if ctx.Err() != nil {
			s.metrics.attempt(req.method, outcomeAborted)
			return nil, aborted(ctx)
		}
		s.metrics.attempt(req.method, outcomeTransport)
		return nil, apierr.Newf(apierr.KindTransport, "Network Error", "host of %s could not be resolved", req.url)
	}

	attemptCtx, cancel := s.attemptContext(ctx)
	defer cancel()

	var payload io.Reader
	if req.body != nil {
		payload = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, req.url, payload)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindRuntime, err, "Runtime Error",
			fmt.Sprintf("failed to create request, details - %s", err.Error()))
	}
	s.prepareHeaders(httpReq, req.requestID, req.body != nil)

	s.logger.Debug("sending request",
		zap.String("method", req.method),
		zap.String("url", req.url),
		zap.Int("attempt", n),
		zap.String("request_id", req.requestID),
	)

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, s.classifyFailure(ctx, req.method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.classifyFailure(ctx, req.method, err)
	}

	switch {
	case resp.StatusCode == http.StatusRequestTimeout:
		s.metrics.attempt(req.method, outcomeTimeout)
		return nil, apierr.New(apierr.KindTimeout, "Request Timeout", "request timed out").
			WithStatus(resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		s.metrics.attempt(req.method, outcomeStatus)
		return nil, statusError(resp.StatusCode, body)
	}

	s.metrics.attempt(req.method, outcomeOK)
	return body, nil
}

func (s *Service) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// classifyFailure maps a failed round trip to aborted, timeout or transport
func (s *Service) classifyFailure(ctx context.Context, method string, err error) *apierr.Error {
	if ctx.Err() != nil {
		s.metrics.attempt(method, outcomeAborted)
		return aborted(ctx)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		s.metrics.attempt(method, outcomeTimeout)
		return apierr.Wrap(apierr.KindTimeout, err, "Request Timeout", "request timed out")
	}

	s.metrics.attempt(method, outcomeTransport)
	return apierr.Wrap(apierr.KindTransport, err, "Network Error",
		fmt.Sprintf("there was an unexpected issue with the network, details - %s", err.Error()))
}

// statusError describes a non-2xx response, quoting the backend error when the body carries one
func statusError(status int, body []byte) *apierr.Error {
	text := fmt.Sprintf("there was an unexpected issue with the network, status %d", status)
	if env, err := wire.Decode(body); err == nil && env.Error != nil {
		text = fmt.Sprintf("%s, details - %s: %s", text, env.Error.Title, env.Error.Text)
	}
	return apierr.New(apierr.KindTransport, "Network Error", text).WithStatus(status)
}

// aborted describes a cancelled request, carrying the cancellation cause
func aborted(ctx context.Context) *apierr.Error {
	cause := context.Cause(ctx)
	text := "request was manually aborted"
	switch {
	case cause == nil:
		cause = context.Canceled
	case errors.Is(cause, context.DeadlineExceeded):
		text = "request deadline exceeded"
	case !errors.Is(cause, context.Canceled):
		text = fmt.Sprintf("%s, reason - %s", text, cause.Error())
	}
	return apierr.Wrap(apierr.KindAborted, cause, "Aborted", text)
}

// parse classifies a successful body: parse, then backend error, then missing data
func parse(body []byte) (*wire.Envelope, *apierr.Error) {
	env, err := wire.Decode(body)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindParse, err, "Runtime Error",
			fmt.Sprintf("something unexpected occurred during results parsing, details - %s", err.Error()))
	}

	if env.Error != nil {
		title := env.Error.Title
		if title == "" {
			title = "Backend Error"
		}
		return nil, apierr.New(apierr.KindBackend, title, env.Error.Text).WithStatus(env.Error.Status)
	}

	if !env.HasData() {
		return nil, apierr.New(apierr.KindMalformedPayload, "Runtime Error", "runtime tried to parse malformed json data")
	}
	return env, nil
}

// materialize hydrates target from the first primary record and builds the
// rest through the registry. Failures on records other than the target skip
// that record and are reported; a failure on the target is terminal.
func (s *Service) materialize(env *wire.Envelope, target entity.Entity) ([]entity.Entity, *apierr.Error) {
	records := env.Data.Records
	if len(records) == 0 {
		return []entity.Entity{}, nil
	}
	if !env.Data.Many && (records[0] == nil || records[0].ID == "" || records[0].Type == "") {
		return []entity.Entity{}, nil
	}

	graph := entity.NewGraph(s.registry, wire.NewIndex(env.Included, records)).OnSkip(s.report)
	results := make([]entity.Entity, 0, len(records))

	for i, rec := range records {
		if i == 0 && target != nil {
			if err := graph.Hydrate(target, rec); err != nil {
				return nil, apierr.From(err)
			}
			results = append(results, target)
			continue
		}

		if rec == nil {
			s.report(apierr.Newf(apierr.KindMalformedPayload, "Runtime Error", "empty record at index %d", i))
			continue
		}
		e, err := graph.Materialize(rec)
		if err != nil {
			s.report(apierr.From(err))
			continue
		}
		results = append(results, e)
	}
	return results, nil
}

// cached returns the stored body of a GET request
func (s *Service) cached(ctx context.Context, req *request) ([]byte, bool) {
	if s.cache == nil || req.method != http.MethodGet {
		return nil, false
	}

	body, err := s.cache.Get(ctx, cache.Key(req.method, req.url))
	if err != nil {
		if !cache.IsMiss(err) {
			s.logger.Debug("response cache lookup failed", zap.String("url", req.url), zap.Error(err))
		}
		return nil, false
	}

	s.metrics.attempt(req.method, outcomeCached)
	s.logger.Debug("response cache hit", zap.String("url", req.url), zap.String("request_id", req.requestID))
	return body, true
}

func (s *Service) store(ctx context.Context, req *request, body []byte) {
	if s.cache == nil || req.method != http.MethodGet {
		return
	}
	if err := s.cache.Set(ctx, cache.Key(req.method, req.url), body, s.cfg.Cache.TTL); err != nil {
		s.logger.Debug("response cache store failed", zap.String("url", req.url), zap.Error(err))
	}
}

// fail hands a terminal error to the policy
func (s *Service) fail(err *apierr.Error) error {
	s.metrics.failed(err.Kind.String())
	return s.policy.Handle(err)
}

// report hands a recoverable error to the policy
func (s *Service) report(err *apierr.Error) {
	s.metrics.failed(err.Kind.String())
	s.policy.Report(err)
}
