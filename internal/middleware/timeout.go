package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"s3-explorer/internal/model"
)

// Timeout buffers the response and replies 503 with a JSON envelope when the
// handler overruns. Streaming routes use StreamingTimeout instead.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: "REQUEST_TIMEOUT", Message: "request timed out"},
	})

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, string(message))
	}
}
