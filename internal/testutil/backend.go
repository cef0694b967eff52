package testutil

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ErrBackendOffline is returned by an offline StubBackend for every request.
var ErrBackendOffline = errors.New("dial tcp: connection refused")

// StubBackend is an http.RoundTripper standing in for the user service.
//
// It never touches the network: an offline stub fails every request, an
// online stub answers with a canned status and body. Every request is
// counted and its body captured so tests can assert how many calls were
// made and what was sent.
//
// Thread-safety: StubBackend is safe for concurrent use via internal mutex.
type StubBackend struct {
	mu      sync.Mutex
	offline bool
	status  int
	body    string
	calls   int
	bodies  []string
}

// NewOfflineBackend returns a stub whose every request fails.
func NewOfflineBackend() *StubBackend {
	return &StubBackend{offline: true}
}

// NewRespondingBackend returns a stub answering status and body.
func NewRespondingBackend(status int, body string) *StubBackend {
	return &StubBackend{status: status, body: body}
}

// RoundTrip implements http.RoundTripper.
func (b *StubBackend) RoundTrip(req *http.Request) (*http.Response, error) {
	var sent string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		req.Body.Close()
		sent = string(data)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls++
	b.bodies = append(b.bodies, sent)

	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if b.offline {
		return nil, ErrBackendOffline
	}

	return &http.Response{
		StatusCode: b.status,
		Status:     http.StatusText(b.status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(b.body)),
		Request:    req,
	}, nil
}

// Client returns an *http.Client that uses the stub as its transport.
func (b *StubBackend) Client() *http.Client {
	return &http.Client{Transport: b}
}

// Calls returns how many requests the stub received.
func (b *StubBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Bodies returns the request bodies received, in order.
func (b *StubBackend) Bodies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.bodies))
	copy(out, b.bodies)
	return out
}
