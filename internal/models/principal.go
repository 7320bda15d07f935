package models

import "github.com/google/uuid"

// Role is supplied by the external auth provider.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// Principal is the authenticated caller.
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role Role      `json:"role"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Owns reports whether p is the teacher who submitted a request.
func (p Principal) Owns(r *Request) bool {
	return p.Role == RoleTeacher && r.RequesterID == p.ID
}
