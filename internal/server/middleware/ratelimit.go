package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/rolecraft/rolecraft/internal/service"
)

// RateLimit returns an HTTP middleware that allows at most attempts requests
// per client IP within window. Once the budget is spent the client gets a 429
// envelope until the window slides past its earlier attempts.
//
// Each call creates an independent counter, so mounting RateLimit on several
// routes gives each route its own budget.
func RateLimit(attempts int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		attempts,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusTooManyRequests, service.ErrTooManyAttempts.Message)
		}),
	)
}
