// Package targets collects scan input from files, stdin, Nmap XML, and CIDR
// ranges, and reduces it to an ordered, deduplicated target list.
package targets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"sightline/pkg/models"
)

// FromFile reads URLs from a file, one per line. Blank lines and lines
// starting with # are skipped; bare hosts get an http:// scheme.
func FromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return fromReader(file)
}

// FromReader reads URLs from an arbitrary stream, typically a stdin pipe.
func FromReader(r io.Reader) ([]string, error) {
	return fromReader(r)
}

func fromReader(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		url := strings.TrimSpace(scanner.Text())
		if url == "" || strings.HasPrefix(url, "#") {
			continue
		}
		urls = append(urls, Normalize(url))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}

// Normalize adds an http:// scheme to a URL that carries none.
func Normalize(url string) string {
	if strings.HasPrefix(url, "http") {
		return url
	}
	return "http://" + url
}

// Exclude drops URLs matching any of the given regex patterns. It returns the
// surviving URLs and the number dropped.
func Exclude(urls []string, patterns []string) ([]string, int, error) {
	if len(patterns) == 0 {
		return urls, 0, nil
	}
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		res = append(res, re)
	}

	kept := urls[:0:0]
	for _, u := range urls {
		matched := false
		for _, re := range res {
			if re.MatchString(u) {
				matched = true
				break
			}
		}
		if !matched {
			kept = append(kept, u)
		}
	}
	return kept, len(urls) - len(kept), nil
}

// Dedupe removes duplicate URLs preserving first-seen order and assigns each
// survivor its ordinal index. The indexes form a permutation of 0..N-1.
func Dedupe(urls []string) []models.Target {
	seen := make(map[string]struct{}, len(urls))
	var out []models.Target
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, models.Target{Index: len(out), URL: u})
	}
	return out
}
