package logger

import (
	"bytes"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// httpTransport logs every request and response at debug level. Error
// responses are logged at warn level with a bounded prefix of the body; the
// body stays fully readable for the caller.
type httpTransport struct {
	wrapped http.RoundTripper
	logger  *zap.Logger
}

// NewHTTPTransport wraps base with request and response logging. A nil base
// falls back to http.DefaultTransport.
func NewHTTPTransport(base http.RoundTripper, l *zap.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &httpTransport{wrapped: base, logger: l}
}

const errorBodyLimit = 1000

func (t *httpTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Bool("has_authorization", req.Header.Get("Authorization") != ""))

	resp, err := t.wrapped.RoundTrip(req)
	if err != nil {
		t.logger.Debug("HTTP request failed",
			zap.String("url", req.URL.String()),
			zap.Error(err))
		return resp, err
	}

	if resp.StatusCode >= 400 {
		t.logErrorResponse(req, resp)
	} else {
		t.logger.Debug("HTTP response",
			zap.String("url", req.URL.String()),
			zap.Int("status_code", resp.StatusCode))
	}

	return resp, nil
}

func (t *httpTransport) logErrorResponse(req *http.Request, resp *http.Response) {
	prefix, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err != nil {
		t.logger.Warn("HTTP error response",
			zap.String("url", req.URL.String()),
			zap.Int("status_code", resp.StatusCode),
			zap.Error(err))
		return
	}

	// Splice the consumed prefix back so the caller sees the whole body.
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(prefix), resp.Body), resp.Body}

	t.logger.Warn("HTTP error response",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status_code", resp.StatusCode),
		zap.String("response_body", string(prefix)))
}
