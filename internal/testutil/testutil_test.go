package testutil

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManualClock_StartsAtEpoch(t *testing.T) {
	m := NewManualClock()
	assert.Equal(t, Epoch, m.Now())

	m.Advance(time.Second)
	assert.Equal(t, Epoch.Add(time.Second), m.Now())
}

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-2", g.Generate())

	g.Reset()
	assert.Equal(t, "run-1", g.Generate())

	local := NewSequentialIDs("local-")
	assert.Equal(t, "local-1", local.Generate())
}

func TestStubBackend_Offline(t *testing.T) {
	b := NewOfflineBackend()

	_, err := b.Client().Post("http://user-service/register", "application/json", strings.NewReader(`{"name":"a"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendOffline)
	assert.Equal(t, 1, b.Calls())
	assert.Equal(t, []string{`{"name":"a"}`}, b.Bodies())
}

func TestStubBackend_Responds(t *testing.T) {
	b := NewRespondingBackend(http.StatusCreated, `{"id":1}`)

	resp, err := b.Client().Post("http://user-service/register", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"id":1}`, string(body))
}

func TestStubBackend_CancelledRequest(t *testing.T) {
	b := NewRespondingBackend(http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://user-service/register", nil)
	require.NoError(t, err)

	_, err = b.RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
}
