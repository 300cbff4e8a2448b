package jobtitles

import "time"

// EntityType tags job title revisions in the audit log.
const EntityType = "JobTitle"

type JobTitle struct {
	ID            string    `json:"id"`
	NameEn        string    `json:"nameEn"`
	NameAr        string    `json:"nameAr"`
	DescriptionEn string    `json:"descriptionEn,omitempty"`
	DescriptionAr string    `json:"descriptionAr,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (j JobTitle) auditFields() map[string]any {
	return map[string]any{
		"nameEn":        j.NameEn,
		"nameAr":        j.NameAr,
		"descriptionEn": j.DescriptionEn,
		"descriptionAr": j.DescriptionAr,
		"isActive":      j.IsActive,
	}
}
