package analyze

import "regexp"

// htmlFingerprintLimit bounds how much HTML the pattern tables scan.
const htmlFingerprintLimit = 80000

type headerRule struct {
	header string
	re     *regexp.Regexp
	label  string
}

type htmlRule struct {
	re    *regexp.Regexp
	label string
}

// Header rules run before HTML rules; within each table the first match per
// label wins, so rule order is part of the contract.
var techHeaderRules = []headerRule{
	{"server", regexp.MustCompile(`(?i)nginx`), "Nginx"},
	{"server", regexp.MustCompile(`(?i)apache`), "Apache"},
	{"server", regexp.MustCompile(`(?i)cloudflare`), "Cloudflare"},
	{"server", regexp.MustCompile(`(?i)microsoft-iis`), "IIS"},
	{"server", regexp.MustCompile(`(?i)LiteSpeed`), "LiteSpeed"},
	{"server", regexp.MustCompile(`(?i)openresty`), "OpenResty"},
	{"server", regexp.MustCompile(`(?i)caddy`), "Caddy"},
	{"server", regexp.MustCompile(`(?i)gunicorn`), "Gunicorn"},
	{"server", regexp.MustCompile(`(?i)envoy`), "Envoy"},
	{"x-powered-by", regexp.MustCompile(`(?i)php`), "PHP"},
	{"x-powered-by", regexp.MustCompile(`(?i)asp\.net`), "ASP.NET"},
	{"x-powered-by", regexp.MustCompile(`(?i)express`), "Express"},
	{"x-powered-by", regexp.MustCompile(`(?i)next\.?js`), "Next.js"},
	{"x-powered-by", regexp.MustCompile(`(?i)nuxt`), "Nuxt.js"},
	{"via", regexp.MustCompile(`(?i)varnish`), "Varnish"},
	{"via", regexp.MustCompile(`(?i)cloudfront`), "CloudFront"},
	{"x-generator", regexp.MustCompile(`(?i)drupal`), "Drupal"},
	{"x-generator", regexp.MustCompile(`(?i)wordpress`), "WordPress"},
}

var techHTMLRules = []htmlRule{
	{regexp.MustCompile(`(?i)wp-content|wp-includes|/wp-json`), "WordPress"},
	{regexp.MustCompile(`(?i)Joomla!`), "Joomla"},
	{regexp.MustCompile(`(?i)sites/default/files|drupal\.js`), "Drupal"},
	{regexp.MustCompile(`(?i)cdn\.shopify\.com|Shopify\.theme`), "Shopify"},
	{regexp.MustCompile(`(?i)__next|_next/static`), "Next.js"},
	{regexp.MustCompile(`(?i)__nuxt|_nuxt/`), "Nuxt.js"},
	{regexp.MustCompile(`(?i)react(?:\.production|dom)`), "React"},
	{regexp.MustCompile(`(?i)vue\.?js|v-cloak|__vue`), "Vue.js"},
	{regexp.MustCompile(`(?i)ng-version|angular`), "Angular"},
	{regexp.MustCompile(`(?i)laravel|csrf.*laravel`), "Laravel"},
	{regexp.MustCompile(`(?i)csrfmiddlewaretoken.*django|__django`), "Django"},
	{regexp.MustCompile(`(?i)csrf-token.*authenticity_token|rails`), "Rails"},
	{regexp.MustCompile(`(?i)jquery`), "jQuery"},
	{regexp.MustCompile(`(?i)bootstrap(?:\.min)?\.(?:css|js)`), "Bootstrap"},
	{regexp.MustCompile(`(?i)tailwindcss|tailwind`), "Tailwind"},
	{regexp.MustCompile(`(?i)google-analytics|gtag|ga\.js`), "Google Analytics"},
	{regexp.MustCompile(`(?i)googleapis\.com/ajax|fonts\.googleapis`), "Google APIs"},
	{regexp.MustCompile(`(?i)cloudflare`), "Cloudflare"},
	{regexp.MustCompile(`(?i)gatsby`), "Gatsby"},
	{regexp.MustCompile(`(?i)svelte`), "Svelte"},
}

// FingerprintTech detects technologies from response headers and page HTML.
// Labels keep detection order and are never duplicated. Header names must be
// lowercase; the HTML body is truncated before matching.
func FingerprintTech(headers map[string]string, pageHTML string) []string {
	var techs []string
	seen := make(map[string]struct{})
	for _, rule := range techHeaderRules {
		val := headers[rule.header]
		if val == "" {
			continue
		}
		if _, dup := seen[rule.label]; dup {
			continue
		}
		if rule.re.MatchString(val) {
			techs = append(techs, rule.label)
			seen[rule.label] = struct{}{}
		}
	}
	snippet := pageHTML
	if len(snippet) > htmlFingerprintLimit {
		snippet = snippet[:htmlFingerprintLimit]
	}
	for _, rule := range techHTMLRules {
		if _, dup := seen[rule.label]; dup {
			continue
		}
		if rule.re.MatchString(snippet) {
			techs = append(techs, rule.label)
			seen[rule.label] = struct{}{}
		}
	}
	return techs
}
