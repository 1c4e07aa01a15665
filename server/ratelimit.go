package server

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/scribehq/scribe"
	"github.com/scribehq/scribe/metrics"
)

// rateLimit caps generate requests per credential (remote IP when the
// request carries none) using a sliding window. The 429 body follows the
// wire error shape with a retry countdown.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(credentialKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.Rejected("rate_limit")
			reject(w, http.StatusTooManyRequests, &scribe.SessionError{
				Kind:      scribe.KindRateLimit,
				Message:   "too many generation requests",
				Details:   map[string]any{"time_remaining": int(window.Seconds())},
				Timestamp: time.Now(),
			})
		}),
	)
}

func credentialKey(r *http.Request) (string, error) {
	if cred := credentialFrom(r); cred != "" {
		return cred, nil
	}
	return httprate.KeyByIP(r)
}
