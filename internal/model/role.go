package model

// Role is the closed set of account roles.  Authorization decisions
// go through the capability methods below instead of scattering
// string comparisons across handlers.
type Role string

const (
	RoleStudent Role = "student" // regular patron
	RoleFaculty Role = "faculty" // teaching staff, may manage catalog entries
	RoleAdmin   Role = "admin"   // full administrative access
)

// ParseRole normalizes a raw role string.  Unknown values fall back
// to student so a malformed claim can never grant elevated access.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleFaculty:
		return RoleFaculty
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// Valid reports whether the role is one of the three known values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty || r == RoleAdmin
}

// CanManageCatalog reports whether the role may create or update
// books, reading lists and research papers.
func (r Role) CanManageCatalog() bool {
	return r == RoleFaculty || r == RoleAdmin
}

// CanAdminister reports whether the role may perform admin-only
// operations such as creating courses or editing user accounts.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

// CanActFor reports whether a user with this role may operate on a
// lending record owned by ownerID.  Owners always may; faculty and
// admins may act on anyone's records (e.g. processing a return at
// the front desk).
func (r Role) CanActFor(actorID, ownerID uint64) bool {
	return actorID == ownerID || r == RoleFaculty || r == RoleAdmin
}
