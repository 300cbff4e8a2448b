package users

import "time"

// EntityType tags user revisions in the audit log.
const EntityType = "User"

// User is the managed account record. PasswordHash never leaves the package;
// responses serialize everything else.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	NameEn        string    `json:"nameEn"`
	NameAr        string    `json:"nameAr"`
	IsActive      bool      `json:"isActive"`
	RoleID        string    `json:"roleId,omitempty"`
	RoleNameEn    string    `json:"roleNameEn,omitempty"`
	RoleNameAr    string    `json:"roleNameAr,omitempty"`
	Grants        []string  `json:"grants"`
	HasFullAccess bool      `json:"hasFullAccess"`
	Locale        string    `json:"locale,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// auditFields lists what the revision history tracks for a user. The role is
// recorded as a reference object so history readers see its display name, not
// a bare id.
func (u User) auditFields() map[string]any {
	var role any
	if u.RoleID != "" {
		role = map[string]any{"id": u.RoleID, "nameEn": u.RoleNameEn, "nameAr": u.RoleNameAr}
	}
	return map[string]any{
		"email":         u.Email,
		"nameEn":        u.NameEn,
		"nameAr":        u.NameAr,
		"isActive":      u.IsActive,
		"role":          role,
		"grants":        u.Grants,
		"hasFullAccess": u.HasFullAccess,
	}
}
