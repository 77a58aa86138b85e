package domain

import "time"

// UserRole enumerates the roles embedded into access tokens.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// User is the account record reached through the user repository port.
// Persistence of this record lives outside this service.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Nickname     string
	Role         UserRole
	DeletedAt    *time.Time
}

// IsDeleted reports whether the account has been soft-deleted.
func (u User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// SoftDelete marks the account as deleted.
// Returns true if the account transitioned to the deleted state.
func (u *User) SoftDelete(at time.Time) bool {
	if u.DeletedAt != nil {
		return false
	}
	timeCopy := at
	u.DeletedAt = &timeCopy
	return true
}
