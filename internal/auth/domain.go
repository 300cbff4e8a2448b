package auth

import "time"

// User represents an authenticated user account as stored.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	NameEn        string
	NameAr        string
	IsActive      bool
	RoleID        string
	Grants        []string
	HasFullAccess bool
	Locale        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
