package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
)

// Schema is the PostgreSQL schema holding the audit table.
const Schema = "audit"

// Page size bounds for List.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// ErrStorage is returned when an audit statement fails. The failure itself
// is logged by the database layer.
var ErrStorage = errors.New("audit storage failed")

// Entry is a single audit trail entry.
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Action     string // optional: create, delete, grant, revoke
	EntityType string // optional: role, grant
	EntityID   string // optional
	Limit      int    // default 50, max 200
	Offset     int
}

// ListResult is one page of entries.
type ListResult struct {
	Logs   []Entry `json:"logs"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository reads and writes audit entries.
type Repository struct {
	db   *database.DB
	logs *database.Model
}

// Define registers the audit table on db.
func Define(db *database.DB) (*Repository, error) {
	logs, err := db.Define("logs", []database.Column{
		{Name: "id", Type: database.Varchar(36), PrimaryKey: true},
		{Name: "action", Type: database.Varchar(32)},
		{Name: "entity_type", Type: database.Varchar(32)},
		{Name: "entity_id", Type: database.Varchar(255), AllowNull: true},
		{Name: "user_id", Type: database.Varchar(255), AllowNull: true},
		{Name: "source", Type: database.Varchar(32)},
		{Name: "details", Type: database.JSONB, AllowNull: true},
		{Name: "created_at", Type: database.TimestampTZ, Default: database.Expr("CURRENT_TIMESTAMP")},
	}, database.DefineOptions{Schema: Schema})
	if err != nil {
		return nil, fmt.Errorf("defining audit table: %w", err)
	}
	return &Repository{db: db, logs: logs}, nil
}

// Create inserts an entry. The ID and CreatedAt are generated if empty.
func (r *Repository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	values := database.Fields{}.
		Set("id", e.ID).
		Set("action", e.Action).
		Set("entity_type", e.EntityType).
		Set("source", e.Source).
		Set("created_at", e.CreatedAt)
	if e.EntityID != "" {
		values = values.Set("entity_id", e.EntityID)
	}
	if e.UserID != "" {
		values = values.Set("user_id", e.UserID)
	}
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		values = values.Set("details", string(b))
	}

	if row := r.logs.Create(ctx, values, database.ModelOptions{}); row == nil {
		return fmt.Errorf("inserting audit entry %s: %w", e.ID, ErrStorage)
	}
	return nil
}

// List returns entries matching filter, most recent first.
func (r *Repository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var cond database.Fields
	if filter.Action != "" {
		cond = cond.Set("action", filter.Action)
	}
	if filter.EntityType != "" {
		cond = cond.Set("entity_type", filter.EntityType)
	}
	if filter.EntityID != "" {
		cond = cond.Set("entity_id", filter.EntityID)
	}

	g := database.NewPlaceholderGenerator()
	where := ""
	if len(cond) > 0 {
		where = " WHERE " + g.Assign(cond, " AND ")
	}
	table := r.logs.Schema().QualifiedName()
	args := g.Values(cond)

	count := r.db.Query(ctx, `SELECT COUNT(*) AS "total" FROM `+table+where, database.QueryOptions{
		Values:    args,
		ShowError: true,
	})
	if !count.IsSuccess() {
		return nil, fmt.Errorf("counting audit entries: %w", count.Failure)
	}
	total := 0
	if len(count.Rows) > 0 {
		if n, ok := count.Rows[0]["total"].(int64); ok {
			total = int(n)
		}
	}

	// Positional continues after the WHERE placeholders.
	page := r.db.Query(ctx,
		`SELECT * FROM `+table+where+` ORDER BY "created_at" DESC LIMIT `+g.Positional(2, " OFFSET "),
		database.QueryOptions{
			Values:    append(args, filter.Limit, filter.Offset),
			ShowError: true,
		})
	if !page.IsSuccess() {
		return nil, fmt.Errorf("querying audit entries: %w", page.Failure)
	}

	logs := make([]Entry, 0, len(page.Rows))
	for _, row := range page.Rows {
		logs = append(logs, entryFromRow(row))
	}

	return &ListResult{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func entryFromRow(row database.Row) Entry {
	e := Entry{}
	e.ID, _ = row["id"].(string)
	e.Action, _ = row["action"].(string)
	e.EntityType, _ = row["entity_type"].(string)
	e.EntityID, _ = row["entity_id"].(string)
	e.UserID, _ = row["user_id"].(string)
	e.Source, _ = row["source"].(string)
	e.Details, _ = row["details"].(map[string]any)
	e.CreatedAt, _ = row["created_at"].(time.Time)
	return e
}
