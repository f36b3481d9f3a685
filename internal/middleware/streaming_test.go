package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamingTimeoutCancelsStalledTransfer(t *testing.T) {
	var ctxErr error
	handler := StreamingTimeout(time.Minute, 50*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			ctxErr = r.Context().Err()
		case <-time.After(2 * time.Second):
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bulk/download", nil))
	assert.ErrorIs(t, ctxErr, context.Canceled)
}

func TestStreamingTimeoutBodyReadsKeepTransferAlive(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		for i := 0; i < 8; i++ {
			time.Sleep(40 * time.Millisecond)
			_, _ = pw.Write([]byte("chunk"))
		}
		_ = pw.Close()
	}()

	var received int
	var ctxErr error
	handler := StreamingTimeout(time.Minute, 200*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		received = len(data)
		ctxErr = r.Context().Err()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/files/upload", pr))
	assert.Equal(t, 40, received)
	assert.NoError(t, ctxErr)
}
