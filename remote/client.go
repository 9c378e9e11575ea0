// Package remote implements the identity and policy endpoints over HTTP.
//
// Both endpoints answer with a {success, message, data} envelope. HTTP
// statuses map onto the authclient error taxonomy: 401 and 403 are
// authentication errors, 404 not found, 409 conflict, 400 and 422
// validation, anything else (and transport failures) network errors.
// Requests are single attempt; retry policy belongs to the caller.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 10 * time.Second

const maxBodyBytes = 1 << 20

// Option configures a client.
type Option func(*transport)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *transport) {
		if client != nil {
			t.http = client
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(t *transport) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger authclient.Logger) Option {
	return func(t *transport) {
		t.loggerProvider, t.logger = authclient.ResolveLogger(t.name, t.loggerProvider, logger)
	}
}

// WithLoggerProvider resolves the client logger from provider.
func WithLoggerProvider(provider authclient.LoggerProvider) Option {
	return func(t *transport) {
		t.loggerProvider, t.logger = authclient.ResolveLogger(t.name, provider, t.logger)
	}
}

// WithTokenSource sets the source of bearer tokens for authenticated calls.
// Without one, the source stored in the request context is used.
func WithTokenSource(source authclient.TokenSource) Option {
	return func(t *transport) {
		t.tokens = source
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Option {
	return func(t *transport) {
		if agent != "" {
			t.userAgent = agent
		}
	}
}

type transport struct {
	name           string
	baseURL        *url.URL
	http           *http.Client
	timeout        time.Duration
	tokens         authclient.TokenSource
	userAgent      string
	rejected       *goerrors.Error
	logger         authclient.Logger
	loggerProvider authclient.LoggerProvider
}

func newTransport(name, baseURL string, rejected *goerrors.Error, opts ...Option) (*transport, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, goerrors.New("invalid endpoint base url", goerrors.CategoryBadInput).
			WithTextCode("INVALID_BASE_URL").
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"base_url": baseURL})
	}

	t := &transport{
		name:      name,
		baseURL:   parsed,
		http:      &http.Client{},
		timeout:   DefaultTimeout,
		userAgent: "go-auth-client",
		rejected:  rejected,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	if t.logger == nil {
		t.loggerProvider, t.logger = authclient.ResolveLogger(name, t.loggerProvider, nil)
	}
	return t, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	bearer string
	// authenticated requests pull the bearer from the token source
	authenticated bool
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends req and decodes the envelope data into out, when out is non nil.
// It returns the envelope message.
func (t *transport) do(ctx context.Context, req request, out any) (string, error) {
	if req.authenticated && req.bearer == "" {
		token, err := t.bearer(ctx)
		if err != nil {
			return "", err
		}
		req.bearer = token
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	endpoint := t.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		endpoint.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to encode request body").
				WithTextCode(authclient.TextCodeMalformedPayload)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint.String(), body)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to build request").
			WithTextCode(authclient.TextCodeMalformedPayload)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	started := time.Now()
	resp, err := t.http.Do(httpReq)
	if err != nil {
		t.logger.Debug("endpoint request failed", "method", req.method, "path", req.path, "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil && goerrors.Is(ctxErr, context.Canceled) {
			return "", ctxErr
		}
		return "", goerrors.Wrap(err, authclient.ErrNetwork.Category, authclient.ErrNetwork.Message).
			WithTextCode(authclient.TextCodeNetwork).
			WithCode(authclient.ErrNetwork.Code).
			WithMetadata(map[string]any{
				"method": req.method,
				"path":   req.path,
			})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", goerrors.Wrap(err, authclient.ErrNetwork.Category, "failed to read endpoint response").
			WithTextCode(authclient.TextCodeNetwork)
	}

	t.logger.Debug("endpoint request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"duration", time.Since(started),
	)

	env, decodeErr := decodeEnvelope(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, env, req)
	}

	if decodeErr != nil {
		return "", malformed(req, decodeErr)
	}

	if env.Success != nil && !*env.Success {
		return env.Message, t.reject(env, req, resp.StatusCode)
	}

	if out != nil {
		data := env.Data
		if env.Success == nil && len(data) == 0 {
			// not an envelope, the body is the payload
			data = raw
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return env.Message, malformed(req, io.ErrUnexpectedEOF)
		}
		if string(data) != "null" {
			if err := json.Unmarshal(data, out); err != nil {
				return env.Message, malformed(req, err)
			}
		}
	}

	return env.Message, nil
}

func (t *transport) bearer(ctx context.Context) (string, error) {
	source := t.tokens
	if source == nil {
		source, _ = authclient.TokenSourceFromContext(ctx)
	}
	if source == nil {
		return "", authclient.ErrNoSession.Clone()
	}

	res := source.EnsureAccessToken(ctx)
	if !res.OK() {
		return "", res.Err
	}
	return res.Value, nil
}

func (t *transport) reject(env envelope, req request, status int) error {
	base := t.rejected
	if base == nil {
		base = authclient.ErrValidation
	}
	err := base.Clone()
	if msg := envelopeMessage(env); msg != "" {
		err.Message = msg
	}
	return err.WithMetadata(map[string]any{
		"method": req.method,
		"path":   req.path,
		"status": status,
	})
}

func decodeEnvelope(raw []byte) (envelope, error) {
	env := envelope{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, err
	}
	return env, nil
}

func envelopeMessage(env envelope) string {
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}

func statusError(status int, env envelope, req request) error {
	var base *goerrors.Error
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		base = authclient.ErrAuthentication
	case http.StatusNotFound:
		base = authclient.ErrNotFound
	case http.StatusConflict:
		base = authclient.ErrConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		base = authclient.ErrValidation
	default:
		base = authclient.ErrNetwork
	}

	err := base.Clone()
	if msg := envelopeMessage(env); msg != "" {
		err.Message = msg
	}
	return err.WithCode(status).WithMetadata(map[string]any{
		"method": req.method,
		"path":   req.path,
		"status": status,
	})
}

func malformed(req request, cause error) error {
	return goerrors.Wrap(cause, authclient.ErrMalformedPayload.Category, authclient.ErrMalformedPayload.Message).
		WithTextCode(authclient.TextCodeMalformedPayload).
		WithCode(authclient.ErrMalformedPayload.Code).
		WithMetadata(map[string]any{
			"method": req.method,
			"path":   req.path,
		})
}
