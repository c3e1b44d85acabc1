package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/rs/cors"

	"github.com/dorandoran/user/internal/apperr"
)

// corsHandler allows cross-origin calls from the configured origins. "*"
// allows any origin; the request origin is echoed so credentials keep working.
func corsHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimSpace(origin)] = true
	}
	allowAll := len(allowed) == 0 || allowed["*"]

	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return allowAll || allowed[origin]
		},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodDelete, http.MethodPatch, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           3600,
	})
	return c.Handler
}

// rateLimit limits requests per client IP over a one minute sliding window.
func rateLimit(perMinute int) func(http.Handler) http.Handler {
	window := time.Minute
	return httprate.Limit(
		perMinute,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			respondCode(w, apperr.TooManyRequests, "too many requests, please try again later")
		}),
	)
}
