package departments

import "time"

// EntityType identifies departments in the revision log.
const EntityType = "Department"

// Department represents an organizational unit.
type Department struct {
	ID            string    `json:"id"`
	NameEn        string    `json:"nameEn"`
	NameAr        string    `json:"nameAr"`
	DescriptionEn string    `json:"descriptionEn,omitempty"`
	DescriptionAr string    `json:"descriptionAr,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// auditFields returns the fields tracked in the revision history.
func (d Department) auditFields() map[string]any {
	return map[string]any{
		"nameEn":        d.NameEn,
		"nameAr":        d.NameAr,
		"descriptionEn": d.DescriptionEn,
		"descriptionAr": d.DescriptionAr,
		"isActive":      d.IsActive,
	}
}
