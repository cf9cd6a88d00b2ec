package diff

import (
	"sort"
	"strings"
	"unicode/utf8"

	"sightline/pkg/models"
)

const titleCompareLen = 60

// Categories whose appearance marks a high-severity change.
var highRiskCategories = map[string]struct{}{
	"Login Page":   {},
	"Admin Panel":  {},
	"WAF/Firewall": {},
}

// Content compares the non-visual fields of two captures of the same URL.
// The field order is fixed: Status, Title, Category, Grade, Tech. Technology
// additions and removals are reported as one combined change.
func Content(old, new *models.CaptureResult) []models.ContentChange {
	var changes []models.ContentChange

	if oldSt, newSt := old.StatusLabel(), new.StatusLabel(); oldSt != newSt {
		changes = append(changes, models.ContentChange{
			Field: "Status", Old: oldSt, New: newSt, Severity: models.SeverityHigh,
		})
	}

	if oldTitle, newTitle := truncate(old.Title, titleCompareLen), truncate(new.Title, titleCompareLen); oldTitle != newTitle {
		changes = append(changes, models.ContentChange{
			Field: "Title", Old: orEmpty(oldTitle), New: orEmpty(newTitle), Severity: models.SeverityMedium,
		})
	}

	if old.Category != new.Category {
		sev := models.SeverityMedium
		if _, risky := highRiskCategories[new.Category]; risky {
			sev = models.SeverityHigh
		}
		changes = append(changes, models.ContentChange{
			Field: "Category", Old: orDash(old.Category), New: orDash(new.Category), Severity: sev,
		})
	}

	if old.SecGrade != new.SecGrade {
		changes = append(changes, models.ContentChange{
			Field: "Grade", Old: orDash(old.SecGrade), New: orDash(new.SecGrade), Severity: models.SeverityMedium,
		})
	}

	if change, ok := techChange(old.Technologies, new.Technologies); ok {
		changes = append(changes, change)
	}

	return changes
}

func techChange(oldTechs, newTechs []string) (models.ContentChange, bool) {
	oldSet := toSet(oldTechs)
	newSet := toSet(newTechs)

	var added, removed []string
	for t := range newSet {
		if _, ok := oldSet[t]; !ok {
			added = append(added, t)
		}
	}
	for t := range oldSet {
		if _, ok := newSet[t]; !ok {
			removed = append(removed, t)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return models.ContentChange{}, false
	}
	sort.Strings(added)
	sort.Strings(removed)

	var parts []string
	if len(added) > 0 {
		parts = append(parts, "+"+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "-"+strings.Join(removed, ", "))
	}

	oldSorted := make([]string, 0, len(oldSet))
	for t := range oldSet {
		oldSorted = append(oldSorted, t)
	}
	sort.Strings(oldSorted)

	return models.ContentChange{
		Field:    "Tech",
		Old:      orDash(strings.Join(oldSorted, ", ")),
		New:      strings.Join(parts, " "),
		Severity: models.SeverityLow,
	}, true
}

// Classify reduces a visual percentage and a content change list to one
// severity. This is a priority cascade: the first matching rule wins, and
// critical deliberately requires both a large visual change and a
// high-severity content change.
func Classify(visualPct float64, changes []models.ContentChange) models.Severity {
	hasHigh := false
	for _, c := range changes {
		if c.Severity == models.SeverityHigh {
			hasHigh = true
			break
		}
	}
	switch {
	case visualPct > 50 && hasHigh:
		return models.SeverityCritical
	case visualPct > 30 || hasHigh:
		return models.SeverityHigh
	case visualPct > 5 || len(changes) > 0:
		return models.SeverityMedium
	case visualPct > 0.5:
		return models.SeverityLow
	default:
		return models.SeverityNone
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// truncate cuts at a rune boundary so multibyte titles stay valid UTF-8.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func orEmpty(s string) string {
	if s == "" {
		return "(empty)"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
