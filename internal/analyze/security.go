// Package analyze holds the pure, stateless lookup tables applied to a
// capture's headers and HTML: technology fingerprinting, page
// categorization, and security-header grading. Every table is ordered data
// evaluated first-match-wins so results stay reproducible.
package analyze

// SecurityHeaders is the fixed checklist the grade is computed from.
var SecurityHeaders = []string{
	"strict-transport-security",
	"content-security-policy",
	"x-frame-options",
	"x-content-type-options",
	"referrer-policy",
	"permissions-policy",
}

// GradeSecurityHeaders grades a response A-F from how many checklist headers
// are present, and returns the present ones in checklist order.
// Header names in the input map must be lowercase.
func GradeSecurityHeaders(headers map[string]string) (string, []string) {
	var present []string
	for _, h := range SecurityHeaders {
		if _, ok := headers[h]; ok {
			present = append(present, h)
		}
	}
	var grade string
	switch n := len(present); {
	case n >= 5:
		grade = "A"
	case n == 4:
		grade = "B"
	case n == 3:
		grade = "C"
	case n >= 1:
		grade = "D"
	default:
		grade = "F"
	}
	return grade, present
}
