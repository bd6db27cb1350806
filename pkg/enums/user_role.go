package enums

// UserRole distinguishes regular sellers from moderators.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// String returns the literal string for the role.
func (r UserRole) String() string {
	return string(r)
}

// IsElevated reports whether the role bypasses listing quotas.
func (r UserRole) IsElevated() bool {
	return r == UserRoleAdmin
}
