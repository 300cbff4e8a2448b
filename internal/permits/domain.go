package permits

import "time"

// EntityType tags permit revisions in the audit log.
const EntityType = "Permit"

// Permit is a licence or official authorization tracked for an organization.
// Issue and expiry dates flow into the revision history and are rendered per
// the viewer's locale.
type Permit struct {
	ID         string    `json:"id"`
	NameEn     string    `json:"nameEn"`
	NameAr     string    `json:"nameAr"`
	Number     string    `json:"number,omitempty"`
	IssueDate  time.Time `json:"issueDate"`
	ExpiryDate time.Time `json:"expiryDate"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (p Permit) auditFields() map[string]any {
	return map[string]any{
		"nameEn":     p.NameEn,
		"nameAr":     p.NameAr,
		"number":     p.Number,
		"issueDate":  p.IssueDate,
		"expiryDate": p.ExpiryDate,
		"isActive":   p.IsActive,
	}
}

// Expired reports whether the permit's expiry date has passed.
func (p Permit) Expired(now time.Time) bool {
	return !p.ExpiryDate.IsZero() && p.ExpiryDate.Before(now)
}
