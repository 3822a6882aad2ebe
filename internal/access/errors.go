package access

import "errors"

// Domain errors for access rule storage and tokens.
var (
	// ErrInvalidName is returned when a role name is not 1-64 characters of
	// letters, digits, dots, hyphens or underscores.
	ErrInvalidName = errors.New("access: invalid role name")

	// ErrInvalidResource is returned when a grant names no resource.
	ErrInvalidResource = errors.New("access: invalid resource")

	// ErrRoleExists is returned by CreateRole for a name already stored.
	ErrRoleExists = errors.New("access: role already exists")

	// ErrRoleNotFound is returned when a role name has no row.
	ErrRoleNotFound = errors.New("access: role not found")

	// ErrGrantNotFound is returned when a grant id has no row.
	ErrGrantNotFound = errors.New("access: grant not found")

	// ErrStorage is returned when the database rejected an operation. The
	// underlying failure has already been logged by the database package.
	ErrStorage = errors.New("access: storage operation failed")

	// ErrTokenInvalid is returned when a JWT fails validation.
	ErrTokenInvalid = errors.New("access: invalid token")
)
