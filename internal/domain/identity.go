package domain

import "strings"

// Role is the coarse permission tier of an identity.
type Role string

const (
	RoleRegular       Role = "REGULAR"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// ParseRole maps a stored or wire role string onto the fixed enumeration.
// Comparison is case-insensitive. Unknown and empty strings fall back to the
// lowest privilege.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMINISTRATOR", "ADMIN":
		return RoleAdministrator
	default:
		return RoleRegular
	}
}

// AtLeast reports whether r meets or exceeds the required role.
func (r Role) AtLeast(required Role) bool {
	return r.level() >= required.level()
}

func (r Role) level() int {
	switch ParseRole(string(r)) {
	case RoleAdministrator:
		return 20
	default:
		return 10
	}
}

func (r Role) String() string {
	return string(r)
}

// Identity is the authenticated principal.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

// DisplayName joins first and last name, falling back to the email.
func (i Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}
