package middleware

import (
	"mime"
	"net/http"
)

const msgInvalidData = "Invalid data"

// RequireJSON rejects bodies declared with a non-JSON Content-Type.
// Requests without a Content-Type header pass through.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" {
			mt, _, err := mime.ParseMediaType(ct)
			if err != nil || mt != "application/json" {
				writeJSONError(w, http.StatusBadRequest, msgInvalidData)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
