package analyze

import (
	"reflect"
	"testing"
)

func TestGradeSecurityHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		grade   string
		present int
	}{
		{
			"four of six is B",
			map[string]string{
				"strict-transport-security": "max-age=63072000",
				"x-frame-options":           "DENY",
				"x-content-type-options":    "nosniff",
				"referrer-policy":           "no-referrer",
			},
			"B", 4,
		},
		{
			"all six is A",
			map[string]string{
				"strict-transport-security": "1", "content-security-policy": "1",
				"x-frame-options": "1", "x-content-type-options": "1",
				"referrer-policy": "1", "permissions-policy": "1",
			},
			"A", 6,
		},
		{"five is A", map[string]string{
			"strict-transport-security": "1", "content-security-policy": "1",
			"x-frame-options": "1", "x-content-type-options": "1", "referrer-policy": "1",
		}, "A", 5},
		{"three is C", map[string]string{
			"x-frame-options": "1", "x-content-type-options": "1", "referrer-policy": "1",
		}, "C", 3},
		{"one is D", map[string]string{"x-frame-options": "1"}, "D", 1},
		{"two is D", map[string]string{"x-frame-options": "1", "referrer-policy": "1"}, "D", 2},
		{"none is F", map[string]string{"server": "nginx"}, "F", 0},
	}
	for _, tt := range tests {
		grade, present := GradeSecurityHeaders(tt.headers)
		if grade != tt.grade || len(present) != tt.present {
			t.Errorf("%s: grade=%s present=%d, want %s/%d", tt.name, grade, len(present), tt.grade, tt.present)
		}
	}
}

func TestGradePresentOrderIsChecklistOrder(t *testing.T) {
	_, present := GradeSecurityHeaders(map[string]string{
		"referrer-policy":           "no-referrer",
		"strict-transport-security": "max-age=1",
	})
	want := []string{"strict-transport-security", "referrer-policy"}
	if !reflect.DeepEqual(present, want) {
		t.Errorf("present = %v, want %v", present, want)
	}
}

func TestFingerprintTechHeaderBeforeHTML(t *testing.T) {
	headers := map[string]string{"server": "nginx/1.25", "x-powered-by": "PHP/8.2"}
	html := `<script src="/js/jquery.min.js"></script><link href="wp-content/x.css">`
	got := FingerprintTech(headers, html)
	want := []string{"Nginx", "PHP", "WordPress", "jQuery"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FingerprintTech = %v, want %v", got, want)
	}
}

func TestFingerprintTechNoDuplicates(t *testing.T) {
	// WordPress matches via the x-generator header; the HTML rule for it must
	// not add a second label.
	headers := map[string]string{"x-generator": "WordPress 6.4"}
	html := "lots of wp-content here"
	got := FingerprintTech(headers, html)
	if !reflect.DeepEqual(got, []string{"WordPress"}) {
		t.Errorf("FingerprintTech = %v, want [WordPress]", got)
	}
}

func TestFingerprintTechEmpty(t *testing.T) {
	if got := FingerprintTech(nil, ""); got != nil {
		t.Errorf("FingerprintTech(nil, \"\") = %v, want nil", got)
	}
}

func TestCategorizePage(t *testing.T) {
	tests := []struct {
		name  string
		title string
		html  string
		want  string
	}{
		{"password input wins", "Welcome", `<form><input type="password" name="pw"></form>`, "Login Page"},
		{"login text", "Sign in to continue", "<html></html>", "Login Page"},
		{"admin panel", "cPanel", "<html></html>", "Admin Panel"},
		{"first match wins over later rules", "admin login", "<html></html>", "Login Page"},
		{"waf", "", "<p>Attention Required! | Cloudflare</p>", "WAF/Firewall"},
		{"nothing", "Acme Corp", "<p>widgets for sale, inquire within</p>", ""},
	}
	for _, tt := range tests {
		if got := CategorizePage(tt.title, tt.html); got != tt.want {
			t.Errorf("%s: CategorizePage = %q, want %q", tt.name, got, tt.want)
		}
	}
}
