package revision

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

const emptyValue = "-"

// FormatterFunc renders one raw field value for display.
type FormatterFunc func(value any, loc language.Tag) string

// fieldFormatters is the table mapping field identity to its renderer. The
// same Revision schema is reused by every entity type, so rendering is driven
// by this table rather than per screen.
var fieldFormatters = map[string]FormatterFunc{
	"isActive":      activityFormatter,
	"hasFullAccess": yesNoFormatter,
	"isSuperAdmin":  yesNoFormatter,
	"issueDate":     dateFormatter,
	"expiryDate":    dateFormatter,
	"hireDate":      dateFormatter,
	"role":          referenceFormatter,
	"department":    referenceFormatter,
	"jobTitle":      referenceFormatter,
	"manager":       referenceFormatter,
}

// FormatValue renders a raw revision value for the given field under the
// actor's locale. Unregistered fields render as plain text.
func FormatValue(fieldName string, value any, locale string) string {
	if value == nil {
		return emptyValue
	}
	loc, err := language.Parse(locale)
	if err != nil {
		loc = language.English
	}
	if formatter, ok := fieldFormatters[fieldName]; ok {
		return formatter(value, loc)
	}
	return fmt.Sprint(value)
}

func isArabic(loc language.Tag) bool {
	base, _ := loc.Base()
	return base.String() == "ar"
}

func asBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		if v == "true" {
			return true, true
		}
		if v == "false" {
			return false, true
		}
	}
	return false, false
}

func activityFormatter(value any, loc language.Tag) string {
	b, ok := asBool(value)
	if !ok {
		return fmt.Sprint(value)
	}
	if isArabic(loc) {
		if b {
			return "نشط"
		}
		return "غير نشط"
	}
	if b {
		return "Active"
	}
	return "Inactive"
}

func yesNoFormatter(value any, loc language.Tag) string {
	b, ok := asBool(value)
	if !ok {
		return fmt.Sprint(value)
	}
	if isArabic(loc) {
		if b {
			return "نعم"
		}
		return "لا"
	}
	if b {
		return "Yes"
	}
	return "No"
}

func dateFormatter(value any, loc language.Tag) string {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return v
		}
		t = parsed
	default:
		return fmt.Sprint(value)
	}
	if isArabic(loc) {
		return t.Format("02/01/2006")
	}
	return t.Format("Jan 2, 2006")
}

// referenceFormatter renders a reference object through the bilingual name
// fallback chain: primary language name, secondary language name, identifier.
func referenceFormatter(value any, loc language.Tag) string {
	ref, ok := value.(map[string]any)
	if !ok {
		return fmt.Sprint(value)
	}
	names := []string{"nameEn", "nameAr"}
	if isArabic(loc) {
		names = []string{"nameAr", "nameEn"}
	}
	for _, key := range names {
		if name, ok := ref[key].(string); ok && name != "" {
			return name
		}
	}
	if id, ok := ref["id"].(string); ok && id != "" {
		return id
	}
	return emptyValue
}
