package genimage

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

func newNanoTest(t *testing.T, h http.HandlerFunc) *NanoBanana {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	n, err := NewNanoBanana("test-key", srv.URL)
	require.NoError(t, err)
	return n
}

func TestNanoBananaSubmit(t *testing.T) {
	n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/nanobanana/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(1), req["numImages"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{"taskId": "task-1"},
		})
	})

	h, err := n.Submit(context.Background(), Input{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, JobHandle("task-1"), h)
}

func TestNanoBananaSubmitErrors(t *testing.T) {
	t.Run("remote-reported failure", func(t *testing.T) {
		n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 402, "msg": "credits exhausted"})
		})
		_, err := n.Submit(context.Background(), Input{})
		var remoteErr *RemoteError
		require.ErrorAs(t, err, &remoteErr)
		assert.Equal(t, "402", remoteErr.Code)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		})
		_, err := n.Submit(context.Background(), Input{})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	})

	t.Run("missing task id", func(t *testing.T) {
		n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 200, "data": map[string]any{}})
		})
		_, err := n.Submit(context.Background(), Input{})
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestNanoBananaPoll(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "task-1", r.URL.Query().Get("taskId"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"successFlag": 0},
			})
		})
		res, err := n.Poll(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, res.Status)
	})

	t.Run("succeeded", func(t *testing.T) {
		n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{
					"successFlag": 1,
					"response":    map[string]any{"resultImageUrl": "http://x/y.jpg"},
				},
			})
		})
		res, err := n.Poll(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, res.Status)
		assert.Equal(t, "http://x/y.jpg", res.Artifact.URL)
	})

	t.Run("success envelope without image url maps to failed", func(t *testing.T) {
		n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"successFlag": 1},
			})
		})
		res, err := n.Poll(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, res.Status)
		assert.ErrorIs(t, res.Err, ErrMalformedResponse)
	})

	t.Run("remote failure", func(t *testing.T) {
		n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{
					"successFlag":  2,
					"errorCode":    "GEN_FAILED",
					"errorMessage": "content rejected",
				},
			})
		})
		res, err := n.Poll(context.Background(), "task-1")
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, res.Status)
		var remoteErr *RemoteError
		require.ErrorAs(t, res.Err, &remoteErr)
		assert.Equal(t, "GEN_FAILED", remoteErr.Code)
	})
}

func TestPolledGenerate(t *testing.T) {
	var polls int32
	n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/nanobanana/generate" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"taskId": "task-1"},
			})
			return
		}
		if atomic.AddInt32(&polls, 1) < 3 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"successFlag": 0},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{
				"successFlag": 1,
				"response":    map[string]any{"resultImageUrl": "http://x/y.jpg"},
			},
		})
	})

	p := &Polled{Async: n, Interval: 10 * time.Millisecond}
	art, err := p.Generate(context.Background(), Input{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "http://x/y.jpg", art.URL)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(3))
}

func TestPolledGenerateHonorsContext(t *testing.T) {
	n := newNanoTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/nanobanana/generate" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"code": 200,
				"data": map[string]any{"taskId": "task-1"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{"successFlag": 0},
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := &Polled{Async: n, Interval: 10 * time.Millisecond}
	_, err := p.Generate(ctx, Input{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
