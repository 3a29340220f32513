package model

import (
	"time"

	"github.com/Astemirdum/library-loan-service/pkg/auth"
)

type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName" db:"last_name"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	IsAdmin      bool      `json:"isAdmin" db:"is_admin"`
	MaxLoans     int       `json:"maxLoans" db:"max_loans"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Roles always contains the ordinary role.
func (u User) Roles() []string {
	if u.IsAdmin {
		return []string{auth.RoleUser, auth.RoleAdmin}
	}
	return []string{auth.RoleUser}
}

func (u User) Profile() auth.Profile {
	return auth.Profile{UserID: u.ID, Email: u.Email, Roles: u.Roles()}
}
