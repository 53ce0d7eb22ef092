package entity

// Role is the permission class of a caller
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"

	// RoleSystem is used by the core itself when propagating payout results.
	// It is never accepted from a caller.
	RoleSystem Role = "system"
)

// IsValid returns true for roles a caller may present
func (r Role) IsValid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsStaff returns true for officer and admin roles
func (r Role) IsStaff() bool {
	return r == RoleOfficer || r == RoleAdmin
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor identifies who issues a command. It is always passed explicitly.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// SystemActor is the actor recorded for core-initiated transitions
var SystemActor = Actor{ID: "system", Role: RoleSystem}
