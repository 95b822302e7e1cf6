package crawler

import (
	"net/url"
	"strings"
)

// excludedPatterns marks URLs that never hold document content: navigation
// chrome, auth pages, feeds, and binary or asset files.
var excludedPatterns = []string{
	"/nav/",
	"/navbar/",
	"/menu/",
	"/header/",
	"/footer/",
	".pdf",
	".jpg",
	".jpeg",
	".png",
	".gif",
	".css",
	".js",
	".xml",
	".json",
	"/api/",
	"/admin/",
	"/login/",
	"/logout/",
	"/register/",
	"/signup/",
	"/search/",
	"/tag/",
	"/category/",
	"/feed",
	"share=",
	"print=",
	"sitemap.xml",
	"robots.txt",
}

// IsValidURL reports whether raw is an absolute http(s) URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsContentURL reports whether a URL likely points at a documentation page
// rather than site chrome or an asset.
func IsContentURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, p := range excludedPatterns {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// sameHost reports whether two URLs share a host.
func sameHost(a, b *url.URL) bool {
	return a.Host == b.Host
}
