// Package domain holds the identity types shared by the session core.
package domain

// Role is the backend-assigned actor role carried in the user profile.
// The portals gate their page trees on it.
type Role string

const (
	// RoleCitizen is a registered citizen managing their own exclusion.
	RoleCitizen Role = "citizen"
	// RoleOperator is staff of a licensed gambling operator.
	RoleOperator Role = "operator"
	// RoleGrak is regulator staff (GRAK, the national gambling authority).
	RoleGrak Role = "grak"
	// RoleAdmin is a registry platform administrator.
	RoleAdmin Role = "admin"
)

// User is the authenticated profile as returned by the backend. It is owned
// exclusively by the session store and replaced wholesale on update.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      Role   `json:"role"`
}

// UserPatch is a partial profile update. Nil fields are left untouched.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *Role
}

// Apply merges the patch into u.
func (p UserPatch) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}
