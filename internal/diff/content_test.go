package diff

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"sightline/pkg/models"
)

func TestContentFieldOrder(t *testing.T) {
	old := &models.CaptureResult{
		StatusCode:   200,
		Title:        "Old Title",
		Category:     "",
		SecGrade:     "C",
		Technologies: []string{"Nginx"},
	}
	cur := &models.CaptureResult{
		StatusCode:   503,
		Title:        "New Title",
		Category:     "Default Page",
		SecGrade:     "F",
		Technologies: []string{"Apache"},
	}

	changes := Content(old, cur)
	var fields []string
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	want := []string{"Status", "Title", "Category", "Grade", "Tech"}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}

	if changes[0].Severity != models.SeverityHigh {
		t.Errorf("status change severity = %s, want high", changes[0].Severity)
	}
	if changes[1].Severity != models.SeverityMedium {
		t.Errorf("title change severity = %s, want medium", changes[1].Severity)
	}
	if changes[2].Severity != models.SeverityMedium {
		t.Errorf("category change to Default Page severity = %s, want medium", changes[2].Severity)
	}
	if changes[4].Severity != models.SeverityLow {
		t.Errorf("tech change severity = %s, want low", changes[4].Severity)
	}
}

func TestContentHighRiskCategory(t *testing.T) {
	old := &models.CaptureResult{StatusCode: 200, SecGrade: "A"}
	cur := &models.CaptureResult{StatusCode: 200, SecGrade: "A", Category: "Admin Panel"}
	changes := Content(old, cur)
	if len(changes) != 1 || changes[0].Field != "Category" || changes[0].Severity != models.SeverityHigh {
		t.Fatalf("changes = %+v, want one high Category change", changes)
	}
	if changes[0].Old != "—" {
		t.Errorf("empty old category rendered as %q, want —", changes[0].Old)
	}
}

func TestContentTitleTruncation(t *testing.T) {
	long := strings.Repeat("a", 80)
	// Identical in the first 60 chars: not a change.
	old := &models.CaptureResult{StatusCode: 200, SecGrade: "A", Title: long + "-one"}
	cur := &models.CaptureResult{StatusCode: 200, SecGrade: "A", Title: long + "-two"}
	if changes := Content(old, cur); len(changes) != 0 {
		t.Errorf("titles equal within 60 chars should not diff, got %+v", changes)
	}
}

func TestContentTitleTruncationRuneSafe(t *testing.T) {
	// 59 runes then a multibyte one straddling the byte-60 boundary.
	long := strings.Repeat("a", 59) + "日本語のタイトル"
	old := &models.CaptureResult{StatusCode: 200, SecGrade: "A", Title: long}
	cur := &models.CaptureResult{StatusCode: 200, SecGrade: "A", Title: "changed"}

	changes := Content(old, cur)
	if len(changes) != 1 {
		t.Fatalf("want one title change, got %+v", changes)
	}
	if !utf8.ValidString(changes[0].Old) {
		t.Errorf("truncated title is not valid UTF-8: %q", changes[0].Old)
	}
	if got := []rune(changes[0].Old); len(got) != 60 {
		t.Errorf("truncated title has %d runes, want 60", len(got))
	}
}

func TestContentTechCombined(t *testing.T) {
	old := &models.CaptureResult{StatusCode: 200, SecGrade: "A", Technologies: []string{"Nginx", "PHP", "jQuery"}}
	cur := &models.CaptureResult{StatusCode: 200, SecGrade: "A", Technologies: []string{"Nginx", "React", "Vue.js"}}
	changes := Content(old, cur)
	if len(changes) != 1 {
		t.Fatalf("want exactly one combined tech change, got %+v", changes)
	}
	c := changes[0]
	if c.New != "+React, Vue.js -PHP, jQuery" {
		t.Errorf("tech change new = %q", c.New)
	}
	if c.Old != "Nginx, PHP, jQuery" {
		t.Errorf("tech change old = %q", c.Old)
	}
}

func TestContentNoChanges(t *testing.T) {
	r := &models.CaptureResult{StatusCode: 200, Title: "Same", SecGrade: "B", Technologies: []string{"Nginx"}}
	if changes := Content(r, r); len(changes) != 0 {
		t.Errorf("identical results should produce no changes, got %+v", changes)
	}
}

func TestContentErrStatus(t *testing.T) {
	old := &models.CaptureResult{StatusCode: 200, SecGrade: "A"}
	cur := &models.CaptureResult{Err: "navigation timeout", SecGrade: "A"}
	changes := Content(old, cur)
	if len(changes) == 0 || changes[0].Field != "Status" || changes[0].New != "ERR" {
		t.Fatalf("changes = %+v, want Status 200 -> ERR", changes)
	}
}

func TestClassifyCascade(t *testing.T) {
	high := []models.ContentChange{{Field: "Status", Severity: models.SeverityHigh}}
	medium := []models.ContentChange{{Field: "Title", Severity: models.SeverityMedium}}

	tests := []struct {
		name    string
		pct     float64
		changes []models.ContentChange
		want    models.Severity
	}{
		{"big visual and high content", 60, high, models.SeverityCritical},
		{"big visual alone stays high", 60, nil, models.SeverityHigh},
		{"high content alone stays high", 0, high, models.SeverityHigh},
		{"moderate visual", 35, nil, models.SeverityHigh},
		{"small visual", 10, nil, models.SeverityMedium},
		{"content change only", 0, medium, models.SeverityMedium},
		{"tiny visual", 1, nil, models.SeverityLow},
		{"no change", 0, nil, models.SeverityNone},
		{"unavailable visual with high content", models.DiffUnavailable, high, models.SeverityHigh},
		{"boundary half percent", 0.5, nil, models.SeverityNone},
	}
	for _, tt := range tests {
		if got := Classify(tt.pct, tt.changes); got != tt.want {
			t.Errorf("%s: Classify(%v) = %s, want %s", tt.name, tt.pct, got, tt.want)
		}
	}
}
