// Package api implements the HTTP administration API for pgcore.
//
// This package provides:
//   - Health endpoint backed by a database round trip and pool statistics
//   - Schema endpoint listing the statements an altering sync would run
//   - Role and grant management over the access store
//   - Audit trail of role and grant changes, written asynchronously
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Security
//
// Protected routes require an "Authorization: Bearer <jwt>" header signed
// with the configured secret. The token's role and subject are checked
// against the access store for every request: route middleware asks about
// the route's resource, and handlers addressing an owned object (a grant)
// pass its owner so owner_only grants apply.
//
// # Errors
//
// Failures use one JSON envelope: {"status", "code", "message"}.
package api
