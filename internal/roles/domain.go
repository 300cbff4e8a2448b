package roles

import (
	"time"

	"github.com/keystone-admin/keystone/internal/authz"
)

// EntityType tags role revisions in the audit log.
const EntityType = "Role"

// Role is the stored role record. Permissions hold flattened
// "module:action" identifiers; they are grouped on actor load.
type Role struct {
	ID            string    `json:"id"`
	NameEn        string    `json:"nameEn"`
	NameAr        string    `json:"nameAr"`
	DescriptionEn string    `json:"descriptionEn,omitempty"`
	DescriptionAr string    `json:"descriptionAr,omitempty"`
	IsActive      bool      `json:"isActive"`
	IsSuperAdmin  bool      `json:"isSuperAdmin"`
	Permissions   []string  `json:"permissions"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (r Role) auditFields() map[string]any {
	return map[string]any{
		"nameEn":       r.NameEn,
		"nameAr":       r.NameAr,
		"isActive":     r.IsActive,
		"isSuperAdmin": r.IsSuperAdmin,
		"permissions":  r.Permissions,
	}
}

// Resolved converts the stored record into the evaluator's grouped form.
func (r Role) Resolved() *authz.Role {
	return &authz.Role{
		ID:            r.ID,
		NameEn:        r.NameEn,
		NameAr:        r.NameAr,
		DescriptionEn: r.DescriptionEn,
		DescriptionAr: r.DescriptionAr,
		IsActive:      r.IsActive,
		IsSuperAdmin:  r.IsSuperAdmin,
		Permissions:   authz.NewPermissionSet(r.Permissions...),
	}
}
