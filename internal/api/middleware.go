package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/pgcore/internal/access"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// ctxKeyRequestID is the context key for the request ID.
	ctxKeyRequestID contextKey = "request_id"

	// ctxKeySubject is the context key for the authenticated access.Subject.
	ctxKeySubject contextKey = "subject"
)

// requestIDMiddleware assigns each request an ID.
// If the client sends an X-Request-ID header, it is used; otherwise one is generated.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
	})
}

// recoveryMiddleware catches panics in handlers and returns a 500 response.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered in HTTP handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", r.Context().Value(ctxKeyRequestID),
				)
				writeInternalError(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// bodySizeLimitMiddleware limits the size of incoming request bodies.
func (s *Server) bodySizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the bearer JWT and stores its subject in the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeUnauthorized(w, "missing bearer token")
			return
		}

		claims, err := access.ParseToken(token, s.secCfg.JWT.Secret)
		if err != nil {
			s.logger.Debug("rejected token", "error", err, "request_id", r.Context().Value(ctxKeyRequestID))
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySubject, claims.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// require returns middleware that asks the access store whether the
// subject may use the request method on resource.
func (s *Server) require(resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.authorize(w, r, resource, "") {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize checks the request against the access store and writes the
// error response when it is refused.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, resource, ownerID string) bool {
	return s.check(w, r, resource, func(subject access.Subject) (bool, error) {
		return s.access.Allowed(r.Context(), subject, resource, r.Method, ownerID)
	})
}

// authorizeAny is authorize for routes addressing an owned object that is
// not loaded yet: any grant for the method passes, owner-only included.
func (s *Server) authorizeAny(w http.ResponseWriter, r *http.Request, resource string) bool {
	return s.check(w, r, resource, func(subject access.Subject) (bool, error) {
		return s.access.MayAccess(r.Context(), subject, resource, r.Method)
	})
}

func (s *Server) check(w http.ResponseWriter, r *http.Request, resource string, allow func(access.Subject) (bool, error)) bool {
	subject, ok := subjectFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return false
	}

	allowed, err := allow(subject)
	if err != nil {
		s.logger.Error("access check failed", "error", err, "resource", resource)
		writeInternalError(w, "access check failed")
		return false
	}
	if !allowed {
		writeForbidden(w, "not permitted")
		return false
	}
	return true
}

// subjectFromContext returns the authenticated subject.
func subjectFromContext(ctx context.Context) (access.Subject, bool) {
	subject, ok := ctx.Value(ctxKeySubject).(access.Subject)
	return subject, ok
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
