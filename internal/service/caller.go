package service

import "time"

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleInstructor
}

// Caller is the authenticated identity every operation acts on behalf of.
type Caller struct {
	ID   uint
	Role Role
}

func (c Caller) IsStudent() bool    { return c.Role == RoleStudent }
func (c Caller) IsInstructor() bool { return c.Role == RoleInstructor }

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func NewSystemClock() Clock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
