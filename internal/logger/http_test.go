package logger

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHTTPTransport_LogsRequestAndResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	client := &http.Client{Transport: NewHTTPTransport(nil, zap.New(core))}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if logs.FilterMessage("HTTP request").Len() != 1 {
		t.Error("expected one request log entry")
	}
	if logs.FilterMessage("HTTP response").Len() != 1 {
		t.Error("expected one response log entry")
	}
}

func TestHTTPTransport_ErrorResponseBodyStaysReadable(t *testing.T) {
	// The body exceeds the logged prefix so the splice path is exercised.
	body := strings.Repeat("x", 1500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, body)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	client := &http.Client{Transport: NewHTTPTransport(nil, zap.New(core))}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if string(got) != body {
		t.Errorf("body changed after logging: got %d bytes, want %d", len(got), len(body))
	}

	warns := logs.FilterMessage("HTTP error response").All()
	if len(warns) != 1 {
		t.Fatalf("expected one error response log entry, got %d", len(warns))
	}
	logged, _ := warns[0].ContextMap()["response_body"].(string)
	if len(logged) != errorBodyLimit {
		t.Errorf("logged body length = %d, want %d", len(logged), errorBodyLimit)
	}
}

type failingTripper struct{}

func (failingTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestHTTPTransport_TransportFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	client := &http.Client{Transport: NewHTTPTransport(failingTripper{}, zap.New(core))}

	_, err := client.Get("http://example.invalid")
	if err == nil {
		t.Fatal("expected an error")
	}
	if logs.FilterMessage("HTTP request failed").Len() != 1 {
		t.Error("expected one failure log entry")
	}
}
