package middlewares

import (
	"net/http"
)

// RequestSizeLimitMiddleware rejects requests whose declared length exceeds
// maxRequestSize bytes and caps chunked bodies at the same limit while they
// stream. Media uploads are large, so the limit arrives from configuration
// rather than being a package constant.
func RequestSizeLimitMiddleware(maxRequestSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxRequestSize {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write([]byte(`{"error":"request body too large"}`))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
			next.ServeHTTP(w, r)
		})
	}
}
