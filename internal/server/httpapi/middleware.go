package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/vaultify/internal/server/ratelimit"
)

// clientIP identifies the caller of an unauthenticated request: the first
// X-Forwarded-For hop, then X-Real-IP, then the connection's remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// rateLimitBody is the JSON body of a 429 response.
type rateLimitBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter"`
}

func setRateLimitHeaders(h http.Header, d ratelimit.Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	h.Set("X-RateLimit-Type", d.Class)
}

// rateLimit charges every request to the class bucket of its client.
func (s *HTTPServer) rateLimit(class string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := s.limiter.Allow("ip:"+clientIP(r), class)
		setRateLimitHeaders(w.Header(), d)

		if !d.Allowed {
			retryAfter := int64(d.RetryAfter / time.Second)
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			s.logger.Warn(r.Context(), "rate limit exceeded", "path", r.URL.Path, "class", d.Class)
			s.jsonResponse(w, http.StatusTooManyRequests, rateLimitBody{
				Error:      "Rate limit exceeded",
				Message:    "Too many " + d.Class + " requests. Please try again later.",
				RetryAfter: retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"ip", clientIP(r),
			"latency", time.Since(start),
		}
		switch {
		case rec.status >= http.StatusInternalServerError:
			s.logger.Error(r.Context(), "Request", args...)
		case rec.status >= http.StatusBadRequest:
			s.logger.Warn(r.Context(), "Request", args...)
		default:
			s.logger.Info(r.Context(), "Request", args...)
		}
	})
}
