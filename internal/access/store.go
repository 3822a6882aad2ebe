package access

import (
	"context"
	"fmt"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
	"github.com/nerrad567/pgcore/internal/infrastructure/logging"
)

// Schema is the PostgreSQL schema holding the access tables.
const Schema = "access"

// allowedSQL loads every grant of a role on a resource in one round trip.
const allowedSQL = `SELECT g."check_get", g."check_post", g."check_put", g."check_patch", g."check_delete", g."owner_only" ` +
	`FROM "access"."grants" g JOIN "access"."roles" r ON r."id" = g."role_id" ` +
	`WHERE r."name" = $1 AND g."resource" = $2`

// Store reads and writes access rules.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	db     *database.DB
	roles  *database.Model
	grants *database.Model
	logger *logging.Logger
}

// Define registers the access tables and their foreign key on db. The
// tables are created by the next altering db.Sync.
func Define(db *database.DB, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}

	roles, err := db.Define("roles", []database.Column{
		{Name: "id", Type: database.Serial, PrimaryKey: true},
		{Name: "name", Type: database.Varchar(64), Unique: true},
		{Name: "description", Type: database.Text, AllowNull: true},
	}, database.DefineOptions{Schema: Schema})
	if err != nil {
		return nil, fmt.Errorf("defining roles table: %w", err)
	}

	grants, err := db.Define("grants", []database.Column{
		{Name: "id", Type: database.Serial, PrimaryKey: true},
		{Name: "role_id", Type: database.Integer},
		{Name: "resource", Type: database.Varchar(maxResourceLength)},
		{Name: "check_get", Type: database.Boolean, Default: false},
		{Name: "check_post", Type: database.Boolean, Default: false},
		{Name: "check_put", Type: database.Boolean, Default: false},
		{Name: "check_patch", Type: database.Boolean, Default: false},
		{Name: "check_delete", Type: database.Boolean, Default: false},
		{Name: "owner_only", Type: database.Boolean, Default: false},
		{Name: "created_by", Type: database.Varchar(255), AllowNull: true},
	}, database.DefineOptions{Schema: Schema})
	if err != nil {
		return nil, fmt.Errorf("defining grants table: %w", err)
	}

	if err := grants.SetForeignKey(roles, "role_id", database.ForeignKeyOptions{}); err != nil {
		return nil, fmt.Errorf("linking grants to roles: %w", err)
	}

	return &Store{
		db:     db,
		roles:  roles,
		grants: grants,
		logger: logger.With("component", "access"),
	}, nil
}

// Allowed reports whether subject may use method on resource. ownerID is
// the owner of the addressed object, or "" when the route addresses no
// owned object.
func (s *Store) Allowed(ctx context.Context, subject Subject, resource, method, ownerID string) (bool, error) {
	grants, err := s.grantsFor(ctx, subject, resource)
	if err != nil {
		return false, err
	}

	for _, g := range grants {
		if g.permits(subject, method, ownerID) {
			return true, nil
		}
	}

	s.logger.Debug("access denied",
		"role", subject.Role,
		"user_id", subject.UserID,
		"resource", resource,
		"method", method,
		"grants", len(grants),
	)
	return false, nil
}

// MayAccess reports whether subject holds any grant allowing method on
// resource, owner-only grants included. It answers before the addressed
// object is loaded; Allowed with the owner decides afterwards.
func (s *Store) MayAccess(ctx context.Context, subject Subject, resource, method string) (bool, error) {
	grants, err := s.grantsFor(ctx, subject, resource)
	if err != nil {
		return false, err
	}
	for _, g := range grants {
		if g.Methods.Allows(method) {
			return true, nil
		}
	}
	return false, nil
}

// grantsFor loads the grants of subject's role on resource.
func (s *Store) grantsFor(ctx context.Context, subject Subject, resource string) ([]Grant, error) {
	if subject.Role == "" {
		return nil, nil
	}

	result := s.db.Query(ctx, allowedSQL, database.QueryOptions{
		Values:    []any{subject.Role, resource},
		ShowError: true,
	})
	if !result.IsSuccess() {
		return nil, fmt.Errorf("%w: %w", ErrStorage, result.Failure)
	}

	grants := make([]Grant, 0, len(result.Rows))
	for _, row := range result.Rows {
		grants = append(grants, grantFromRow(row))
	}
	return grants, nil
}

// CreateRole stores a new role.
func (s *Store) CreateRole(ctx context.Context, name, description string) (Role, error) {
	if !IsValidName(name) {
		return Role{}, ErrInvalidName
	}

	existing := s.roles.Find(ctx, database.Fields{}.Set("name", name), database.ModelOptions{})
	if existing == nil {
		return Role{}, ErrStorage
	}
	if len(existing) > 0 {
		return Role{}, fmt.Errorf("%w: %s", ErrRoleExists, name)
	}

	fields := database.Fields{}.Set("name", name)
	if description != "" {
		fields = fields.Set("description", description)
	}

	row := s.roles.Create(ctx, fields, database.ModelOptions{})
	if row == nil {
		return Role{}, ErrStorage
	}

	role := roleFromRow(row)
	s.logger.Info("role created", "role", role.Name, "id", role.ID)
	return role, nil
}

// Roles returns every stored role.
func (s *Store) Roles(ctx context.Context) ([]Role, error) {
	rows := s.roles.Find(ctx, nil, database.ModelOptions{})
	if rows == nil {
		return nil, ErrStorage
	}

	out := make([]Role, 0, len(rows))
	for _, row := range rows {
		out = append(out, roleFromRow(row))
	}
	return out, nil
}

// Grant stores a grant for req.Role, creating the role first when it does
// not exist. Both writes share one transaction.
func (s *Store) Grant(ctx context.Context, req GrantRequest) (Grant, error) {
	if err := req.validate(); err != nil {
		return Grant{}, err
	}

	tx, err := s.db.BeginTransaction(ctx, database.TxOptions{RollbackOnError: true})
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	opts := database.ModelOptions{Tx: tx}

	found := s.roles.Find(ctx, database.Fields{}.Set("name", req.Role), opts)
	if found == nil {
		s.abort(ctx, tx)
		return Grant{}, ErrStorage
	}

	var roleRow database.Row
	if len(found) > 0 {
		roleRow = found[0]
	} else {
		roleRow = s.roles.Create(ctx, database.Fields{}.Set("name", req.Role), opts)
		if roleRow == nil {
			s.abort(ctx, tx)
			return Grant{}, ErrStorage
		}
		s.logger.Info("role created for grant", "role", req.Role, "tx_id", tx.ID())
	}

	row := s.grants.Create(ctx, req.fields(toInt64(roleRow["id"])), opts)
	if row == nil {
		s.abort(ctx, tx)
		return Grant{}, ErrStorage
	}

	if err := tx.Commit(ctx); err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	grant := grantFromRow(row)
	s.logger.Info("grant created",
		"id", grant.ID,
		"role", req.Role,
		"resource", grant.Resource,
		"owner_only", grant.OwnerOnly,
	)
	return grant, nil
}

// Grants returns every grant of a role.
func (s *Store) Grants(ctx context.Context, role string) ([]Grant, error) {
	found := s.roles.Find(ctx, database.Fields{}.Set("name", role), database.ModelOptions{})
	if found == nil {
		return nil, ErrStorage
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, role)
	}

	rows := s.grants.Find(ctx, database.Fields{}.Set("role_id", found[0]["id"]), database.ModelOptions{})
	if rows == nil {
		return nil, ErrStorage
	}

	out := make([]Grant, 0, len(rows))
	for _, row := range rows {
		out = append(out, grantFromRow(row))
	}
	return out, nil
}

// GrantByID returns one grant.
func (s *Store) GrantByID(ctx context.Context, id int64) (Grant, error) {
	rows := s.grants.Find(ctx, database.Fields{}.Set("id", id), database.ModelOptions{})
	if rows == nil {
		return Grant{}, ErrStorage
	}
	if len(rows) == 0 {
		return Grant{}, fmt.Errorf("%w: %d", ErrGrantNotFound, id)
	}
	return grantFromRow(rows[0]), nil
}

// Revoke deletes one grant.
func (s *Store) Revoke(ctx context.Context, id int64) error {
	rows := s.grants.Delete(ctx, database.Fields{}.Set("id", id), database.ModelOptions{})
	if rows == nil {
		return ErrStorage
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %d", ErrGrantNotFound, id)
	}
	s.logger.Info("grant revoked", "id", id)
	return nil
}

// abort rolls back a transaction a model operation left bound.
func (s *Store) abort(ctx context.Context, tx *database.Transaction) {
	if !tx.Bound() {
		return
	}
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("rolling back access transaction", "tx_id", tx.ID(), "error", err)
	}
}
