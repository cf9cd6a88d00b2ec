package analyze

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// categoryHTMLLimit bounds how much HTML categorization scans.
const categoryHTMLLimit = 30000

var categoryRules = []htmlRule{
	{regexp.MustCompile(`(?i)sign.?in|log.?in|auth`), "Login Page"},
	{regexp.MustCompile(`(?i)admin|dashboard|cpanel|wp-admin|phpmyadmin`), "Admin Panel"},
	{regexp.MustCompile(`(?i)swagger|api.?doc|redoc|openapi`), "API Docs"},
	{regexp.MustCompile(`(?i)it works!|default.*page|welcome to nginx|apache.*default|iis.*windows`), "Default Page"},
	{regexp.MustCompile(`(?i)403 forbidden|401 unauthorized|access denied`), "Access Denied"},
	{regexp.MustCompile(`(?i)404 not found|page not found`), "Not Found"},
	{regexp.MustCompile(`(?i)parked.*domain|buy this domain|domain.*sale|sedoparking|godaddy`), "Parked Domain"},
	{regexp.MustCompile(`(?i)under construction|coming soon|maintenance`), "Under Construction"},
	{regexp.MustCompile(`(?i)blocked|firewall|waf|captcha|challenge|cf-browser-verification|attention required`), "WAF/Firewall"},
}

// CategorizePage assigns at most one label to a page from its title and HTML.
// A password input anywhere in the document marks a Login Page before any
// text rule runs; after that the rules fire in fixed priority order and the
// first match wins. Unmatched pages return "".
func CategorizePage(title, pageHTML string) string {
	snippet := pageHTML
	if len(snippet) > categoryHTMLLimit {
		snippet = snippet[:categoryHTMLLimit]
	}

	if hasPasswordInput(snippet) {
		return "Login Page"
	}

	combined := title + " " + snippet
	for _, rule := range categoryRules {
		if rule.re.MatchString(combined) {
			return rule.label
		}
	}
	return ""
}

func hasPasswordInput(pageHTML string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return false
	}
	return doc.Find(`input[type="password"]`).Length() > 0
}
