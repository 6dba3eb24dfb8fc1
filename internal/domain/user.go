package domain

// Role values reported by the storefront API.
const (
	RoleCustomer = 0
	RoleAdmin    = 1
)

// UserSummary is the identity the client holds for the signed-in user.
type UserSummary struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	IsSeller bool   `json:"isSeller"`
	Role     int    `json:"role"`
}

// IsAdmin reports whether the user has the admin role.
func (u UserSummary) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Value returns the current value of a profile field.
func (u UserSummary) Value(f Field) string {
	switch f {
	case FieldName:
		return u.Name
	case FieldEmail:
		return u.Email
	case FieldPhone:
		return u.Phone
	default:
		return ""
	}
}

// WithValue returns a copy of u with field f set to v.
func (u UserSummary) WithValue(f Field, v string) UserSummary {
	switch f {
	case FieldName:
		u.Name = v
	case FieldEmail:
		u.Email = v
	case FieldPhone:
		u.Phone = v
	}
	return u
}
