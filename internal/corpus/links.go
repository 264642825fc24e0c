package corpus

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// CompileExclusions compiles crawl exclusion patterns.
func CompileExclusions(patterns []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid crawl exclusion %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// DiscoverLinks resolves hrefs found on page and keeps the ones worth following:
// http(s) links on host, fragment stripped, not excluded, first occurrence only.
func DiscoverLinks(page *url.URL, host string, hrefs []string, exclusions []*regexp.Regexp) []string {
	var links []string
	seen := make(map[string]bool)

	for _, href := range hrefs {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		linkU := page.ResolveReference(ref)

		if linkU.Scheme != "http" && linkU.Scheme != "https" {
			continue
		}
		if linkU.Host != host {
			continue
		}

		normalized := normalizeURL(linkU)

		if excluded(normalized, exclusions) {
			continue
		}

		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		links = append(links, normalized)
	}
	return links
}

// normalizeURL gives a page one spelling: no fragment, and "/" for an empty path.
func normalizeURL(u *url.URL) string {
	n := *u
	n.Fragment = ""
	n.RawFragment = ""
	if n.Path == "" && n.Opaque == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return n.String()
}

func excluded(link string, exclusions []*regexp.Regexp) bool {
	for _, ex := range exclusions {
		if ex.MatchString(link) {
			return true
		}
	}
	return false
}
