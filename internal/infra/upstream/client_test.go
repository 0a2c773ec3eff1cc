package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`ok`))
	}))
	defer server.Close()

	c := New("test", time.Second, WithRetries(3, time.Millisecond))
	body, err := c.Get(context.Background(), "ping", server.URL, http.Header{"Authorization": {"Bearer t0k"}})

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}))
	defer server.Close()

	c := New("test", time.Second, WithRetries(3, time.Millisecond))
	_, err := c.Get(context.Background(), "ping", server.URL, nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Contains(t, se.Body, "Invalid API key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New("flaky", time.Second, WithRetries(0, time.Millisecond))
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "ping", server.URL, nil)
		require.Error(t, err)
	}

	_, err := c.Get(context.Background(), "ping", server.URL, nil)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
}

func TestClient_PostsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	c := New("test", time.Second)
	body, err := c.Do(context.Background(), "echo", http.MethodPost, server.URL, []byte(`{"city":"pune"}`), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"pune"}`, string(body))
}
