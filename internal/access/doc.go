// Package access stores and evaluates route authorisation rules.
//
// Rules live in two tables in the "access" schema:
//
//	roles   (id, name, description)
//	grants  (id, role_id → roles.id, resource, check_get … check_delete,
//	         owner_only, created_by)
//
// A request is allowed when some grant for the subject's role on the
// requested resource sets the flag for the request method (role-based).
// When that grant is owner_only, the subject must also own the target
// (attribute-based): the caller supplies the owner id and it must equal
// the subject's user id.
//
// Every HTTP method is checked the same way; there is no per-method
// inversion.
//
// Subjects reach the store through signed JWTs (see IssueToken and
// ParseToken). The api package turns a bearer token into a Subject and asks
// Allowed before running a protected handler.
//
// Usage:
//
//	store, err := access.Define(db, logger)
//	// ... db.Sync(ctx, database.SyncOptions{Alter: true})
//	ok, err := store.Allowed(ctx, subject, "roles", http.MethodPost, "")
package access
