package access

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/nerrad567/pgcore/internal/infrastructure/database"
)

// namePattern defines the valid format for role names:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidName checks if a role name meets format requirements.
func IsValidName(name string) bool {
	return namePattern.MatchString(name)
}

// maxResourceLength matches the grants.resource column width.
const maxResourceLength = 255

// Subject is the authenticated caller.
type Subject struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Role is one stored role.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Methods holds the per-method flags of a grant.
type Methods struct {
	Get    bool `json:"get"`
	Post   bool `json:"post"`
	Put    bool `json:"put"`
	Patch  bool `json:"patch"`
	Delete bool `json:"delete"`
}

// Allows reports whether the flag for an HTTP method is set. HEAD follows
// GET; any other method is refused.
func (m Methods) Allows(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return m.Get
	case http.MethodPost:
		return m.Post
	case http.MethodPut:
		return m.Put
	case http.MethodPatch:
		return m.Patch
	case http.MethodDelete:
		return m.Delete
	default:
		return false
	}
}

// Grant is one stored rule.
type Grant struct {
	ID        int64   `json:"id"`
	RoleID    int64   `json:"role_id"`
	Resource  string  `json:"resource"`
	Methods   Methods `json:"methods"`
	OwnerOnly bool    `json:"owner_only"`
	CreatedBy string  `json:"created_by,omitempty"`
}

// permits applies the grant to a request. An owner_only grant needs a
// non-empty owner equal to the subject.
func (g Grant) permits(subject Subject, method, ownerID string) bool {
	if !g.Methods.Allows(method) {
		return false
	}
	if g.OwnerOnly {
		return ownerID != "" && ownerID == subject.UserID
	}
	return true
}

// GrantRequest describes a grant to create.
type GrantRequest struct {
	Role      string  `json:"-"`
	Resource  string  `json:"resource"`
	Methods   Methods `json:"methods"`
	OwnerOnly bool    `json:"owner_only"`
	CreatedBy string  `json:"-"`
}

func (r GrantRequest) validate() error {
	if !IsValidName(r.Role) {
		return ErrInvalidName
	}
	if r.Resource == "" || len(r.Resource) > maxResourceLength {
		return ErrInvalidResource
	}
	return nil
}

// fields returns the grants row for r.
func (r GrantRequest) fields(roleID int64) database.Fields {
	f := database.Fields{}.
		Set("role_id", roleID).
		Set("resource", r.Resource).
		Set("check_get", r.Methods.Get).
		Set("check_post", r.Methods.Post).
		Set("check_put", r.Methods.Put).
		Set("check_patch", r.Methods.Patch).
		Set("check_delete", r.Methods.Delete).
		Set("owner_only", r.OwnerOnly)
	if r.CreatedBy != "" {
		f = f.Set("created_by", r.CreatedBy)
	}
	return f
}

func roleFromRow(row database.Row) Role {
	return Role{
		ID:          toInt64(row["id"]),
		Name:        toString(row["name"]),
		Description: toString(row["description"]),
	}
}

func grantFromRow(row database.Row) Grant {
	return Grant{
		ID:       toInt64(row["id"]),
		RoleID:   toInt64(row["role_id"]),
		Resource: toString(row["resource"]),
		Methods: Methods{
			Get:    toBool(row["check_get"]),
			Post:   toBool(row["check_post"]),
			Put:    toBool(row["check_put"]),
			Patch:  toBool(row["check_patch"]),
			Delete: toBool(row["check_delete"]),
		},
		OwnerOnly: toBool(row["owner_only"]),
		CreatedBy: toString(row["created_by"]),
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}
