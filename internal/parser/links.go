package parser

import (
	"net/url"
	"sort"
	"strings"
)

// CanonicalizeURL normalizes a URL so equivalent spellings map to one snapshot
// entry. Strings that do not parse are returned unchanged.
// CanonicalizeURLs returns a canonical copy of urls. Start pages must go through
// it so they match the canonical links a Site returns.
func CanonicalizeURLs(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = CanonicalizeURL(u)
	}
	return out
}

func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Drop default ports
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}

	return u.String()
}

// resolveLinks resolves hrefs against the page URL and returns the canonical,
// de-duplicated http(s) links in their original order.
func resolveLinks(pageURL string, hrefs []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool, len(hrefs))
	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "data:") {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}

		abs := CanonicalizeURL(resolved.String())
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	}
	return links
}
