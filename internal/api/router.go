package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Resource names checked against the access store.
const (
	resourceSchema = "schema"
	resourceRoles  = "roles"
	resourceGrants = "grants"
	resourceAudit  = "audit"
)

// healthTimeout bounds the database round trip behind /health.
const healthTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.require(resourceSchema)).Get("/schema", s.handleSchema)

			r.Route("/roles", func(r chi.Router) {
				r.With(s.require(resourceRoles)).Get("/", s.handleListRoles)
				r.With(s.require(resourceRoles)).Post("/", s.handleCreateRole)

				r.Route("/{name}/grants", func(r chi.Router) {
					r.Use(s.require(resourceGrants))
					r.Get("/", s.handleListGrants)
					r.Post("/", s.handleCreateGrant)
				})
			})

			// Ownership is checked in the handler once the grant is loaded.
			r.Delete("/grants/{id}", s.handleRevokeGrant)

			r.With(s.require(resourceAudit)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth reports server and database health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	dbStatus := map[string]any{
		"status": "ok",
		"pool":   s.db.Stats(),
	}
	status := http.StatusOK
	overall := "ok"

	if err := s.db.HealthCheck(ctx); err != nil {
		s.logger.Warn("database health check failed", "error", err)
		dbStatus["status"] = "unavailable"
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	writeJSON(w, status, map[string]any{
		"status":   overall,
		"version":  s.version,
		"database": dbStatus,
	})
}

// statementResponse is one entry of GET /schema.
type statementResponse struct {
	Schema string `json:"schema"`
	Bucket string `json:"bucket"`
	SQL    string `json:"sql"`
}

// handleSchema lists the statements an altering sync would execute, in
// execution order.
func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	script := s.db.Script()
	plan := script.Plan()

	statements := make([]statementResponse, 0, len(plan))
	for _, st := range plan {
		statements = append(statements, statementResponse{
			Schema: st.Schema,
			Bucket: st.Bucket.String(),
			SQL:    st.SQL,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schemas":    script.Schemas(),
		"statements": statements,
		"probes":     script.Probes(),
	})
}
