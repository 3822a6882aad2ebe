package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/pgcore/internal/access"
)

// createRoleRequest is the request body for POST /roles.
type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleListRoles returns every role.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.access.Roles(r.Context())
	if err != nil {
		writeAccessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"roles": roles,
		"count": len(roles),
	})
}

// handleCreateRole stores a new role.
func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	role, err := s.access.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		writeAccessError(w, err)
		return
	}
	s.auditLog(r, "create", "role", role.Name, nil)
	writeJSON(w, http.StatusCreated, role)
}

// handleListGrants returns the grants of the role in the URL.
func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := s.access.Grants(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeAccessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"grants": grants,
		"count":  len(grants),
	})
}

// handleCreateGrant adds a grant to the role in the URL, creating the role
// when needed. The caller is recorded as the grant's owner.
func (s *Server) handleCreateGrant(w http.ResponseWriter, r *http.Request) {
	var req access.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	subject, _ := subjectFromContext(r.Context())
	req.Role = chi.URLParam(r, "name")
	req.CreatedBy = subject.UserID

	grant, err := s.access.Grant(r.Context(), req)
	if err != nil {
		writeAccessError(w, err)
		return
	}
	s.auditLog(r, "grant", "grant", strconv.FormatInt(grant.ID, 10), map[string]any{
		"role":       req.Role,
		"resource":   grant.Resource,
		"owner_only": grant.OwnerOnly,
	})
	writeJSON(w, http.StatusCreated, grant)
}

// handleRevokeGrant deletes a grant. Owner-only grants on the "grants"
// resource let a subject revoke the grants it created. Subjects without
// any delete grant are refused before the grant is looked up.
func (s *Server) handleRevokeGrant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid grant id")
		return
	}

	if !s.authorizeAny(w, r, resourceGrants) {
		return
	}

	grant, err := s.access.GrantByID(r.Context(), id)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	if !s.authorize(w, r, resourceGrants, grant.CreatedBy) {
		return
	}

	if err := s.access.Revoke(r.Context(), id); err != nil {
		writeAccessError(w, err)
		return
	}
	s.auditLog(r, "revoke", "grant", strconv.FormatInt(id, 10), map[string]any{
		"resource":   grant.Resource,
		"created_by": grant.CreatedBy,
	})
	w.WriteHeader(http.StatusNoContent)
}
