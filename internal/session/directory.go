package session

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnknownRole is returned when the directory holds no entry for the
// claimed role.
var ErrUnknownRole = errors.New("session: no credentials for role")

// Credential is one entry of the role-keyed credentials table.
type Credential struct {
	Email        string
	PasswordHash string // bcrypt
	Identity     Identity
}

// Directory resolves the credentials entry for a claimed role. The current
// product ships exactly one account per role slot.
type Directory interface {
	Lookup(ctx context.Context, role Role) (Credential, error)
}

// StaticDirectory is a fixed in-memory credentials table.
type StaticDirectory struct {
	entries map[Role]Credential
}

func NewStaticDirectory(creds ...Credential) *StaticDirectory {
	entries := make(map[Role]Credential, len(creds))
	for _, c := range creds {
		entries[c.Identity.Role] = c
	}
	return &StaticDirectory{entries: entries}
}

func (d *StaticDirectory) Lookup(_ context.Context, role Role) (Credential, error) {
	cred, ok := d.entries[role]
	if !ok {
		return Credential{}, ErrUnknownRole
	}
	return cred, nil
}

// HashPassword bcrypt-hashes a plaintext password for directory entries.
func HashPassword(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
