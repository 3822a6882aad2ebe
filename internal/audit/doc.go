// Package audit records changes made through the administration API and
// lists them back with filters and pagination.
//
// Entries live in the "audit"."logs" table, defined on the shared
// database.DB and created by the next altering sync like every other
// table.
package audit
