// security.go - Security headers middleware
package server

import "net/http"

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Prevent MIME sniffing; served plaintext is user-supplied bytes
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Referrer Policy - don't leak view URLs
		w.Header().Set("Referrer-Policy", "no-referrer")

		// Permissions Policy - disable unused browser features
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		next.ServeHTTP(w, r)
	})
}
