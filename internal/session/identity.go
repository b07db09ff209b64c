package session

import (
	"errors"
	"fmt"
)

// Role is the account role tag carried by every identity.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// ParseRole maps a wire string onto a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleDoctor, RolePatient:
		return Role(s), true
	}
	return "", false
}

// DoctorInfo holds the fields that exist only on doctor identities.
type DoctorInfo struct {
	Specialization string `json:"specialization"`
	Location       string `json:"location"`
	Contact        string `json:"contact"`
}

// Identity is the authenticated profile as the rest of the system sees it.
// It never carries a password; credentials are stripped at authentication
// time and stay inside the Directory.
type Identity struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   Role        `json:"role"`
	Doctor *DoctorInfo `json:"doctor,omitempty"`
}

var errInvalidIdentity = errors.New("session: invalid identity")

// Validate enforces the role/profile pairing: doctor info exists iff the
// role is doctor.
func (id Identity) Validate() error {
	if _, ok := ParseRole(string(id.Role)); !ok {
		return fmt.Errorf("%w: unknown role %q", errInvalidIdentity, id.Role)
	}
	if id.ID == "" || id.Email == "" {
		return fmt.Errorf("%w: missing id or email", errInvalidIdentity)
	}
	if id.Role == RoleDoctor && id.Doctor == nil {
		return fmt.Errorf("%w: doctor identity without profile", errInvalidIdentity)
	}
	if id.Role != RoleDoctor && id.Doctor != nil {
		return fmt.Errorf("%w: %s identity with doctor profile", errInvalidIdentity, id.Role)
	}
	return nil
}
