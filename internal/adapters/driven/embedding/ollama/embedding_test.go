package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama serves /api/embed, failing the first failFirst calls with status.
func fakeOllama(t *testing.T, failFirst int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= failFirst {
			http.Error(w, "busy", status)
			return
		}

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		resp := embedResponse{}
		for i := range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float64{float64(i), float64(len(req.Input[i]))})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestService(url string) *EmbeddingService {
	return NewEmbeddingService(Config{
		BaseURL:           url,
		Model:             "test-model",
		Dimensions:        2,
		RetryDelay:        time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             100,
	})
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, uint(DefaultAttempts), s.attempts)
	assert.Equal(t, DefaultTimeout, s.client.Timeout)
}

func TestEmbed(t *testing.T) {
	srv, calls := fakeOllama(t, 0, 0)
	s := newTestService(srv.URL)

	vec, err := s.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 3}, vec)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedBatch_SingleRequestInOrder(t *testing.T) {
	srv, calls := fakeOllama(t, 0, 0)
	s := newTestService(srv.URL)

	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 2}, {2, 3}}, vecs)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedBatch_Empty(t *testing.T) {
	srv, calls := fakeOllama(t, 0, 0)
	s := newTestService(srv.URL)

	vecs, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
	assert.Zero(t, calls.Load())
}

func TestEmbed_RetriesServerErrors(t *testing.T) {
	srv, calls := fakeOllama(t, 2, http.StatusServiceUnavailable)
	s := newTestService(srv.URL)

	vec, err := s.Embed(context.Background(), "ab")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 2}, vec)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbed_GivesUpAfterAttempts(t *testing.T) {
	srv, calls := fakeOllama(t, 10, http.StatusInternalServerError)
	s := newTestService(srv.URL)

	_, err := s.Embed(context.Background(), "ab")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.Equal(t, int32(DefaultAttempts), calls.Load())
}

func TestEmbed_ClientErrorNotRetried(t *testing.T) {
	srv, calls := fakeOllama(t, 10, http.StatusNotFound)
	s := newTestService(srv.URL)

	_, err := s.Embed(context.Background(), "ab")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "busy")
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbed_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer srv.Close()

	_, err := newTestService(srv.URL).Embed(context.Background(), "ab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 embeddings for 1 inputs")
}

func TestEmbed_Cancelled(t *testing.T) {
	srv, _ := fakeOllama(t, 0, 0)
	s := newTestService(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Embed(ctx, "ab")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	srv, _ := fakeOllama(t, 0, 0)
	assert.NoError(t, newTestService(srv.URL).Ping(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	err := newTestService(down.URL).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClose(t *testing.T) {
	assert.NoError(t, NewEmbeddingService(Config{}).Close())
}
