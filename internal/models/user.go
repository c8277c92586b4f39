package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Role is a role tag held by a user. A user may hold several.
type Role string

const (
	RoleTrainer     Role = "ROLE_FORMATEUR"
	RoleCoordinator Role = "ROLE_COORDINATEUR"
	RoleAdmin       Role = "ROLE_ADMIN"
)

// RoleList is the set of role tags attached to a user, scanned from a Postgres text array.
type RoleList []Role

// Scan implements sql.Scanner.
func (r *RoleList) Scan(src interface{}) error {
	var raw pq.StringArray
	if err := raw.Scan(src); err != nil {
		return fmt.Errorf("scan roles: %w", err)
	}
	roles := make(RoleList, 0, len(raw))
	for _, item := range raw {
		roles = append(roles, Role(item))
	}
	*r = roles
	return nil
}

// Value implements driver.Valuer.
func (r RoleList) Value() (driver.Value, error) {
	raw := make(pq.StringArray, len(r))
	for i, role := range r {
		raw[i] = string(role)
	}
	return raw.Value()
}

// Has reports whether the list contains role.
func (r RoleList) Has(role Role) bool {
	for _, item := range r {
		if item == role {
			return true
		}
	}
	return false
}

// HasAny reports whether the list contains at least one of roles.
func (r RoleList) HasAny(roles ...Role) bool {
	for _, role := range roles {
		if r.Has(role) {
			return true
		}
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Roles        RoleList  `db:"roles" json:"roles"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Trainer is the identity of a user as seen through a session's trainer set.
type Trainer struct {
	ID        string `db:"id" json:"id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
}

// FullName joins first and last name.
func (t Trainer) FullName() string {
	switch {
	case t.FirstName == "":
		return t.LastName
	case t.LastName == "":
		return t.FirstName
	}
	return t.FirstName + " " + t.LastName
}
