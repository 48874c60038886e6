// Package guard gates the admin pages: it sends anonymous visitors to the
// login page, keeps authenticated users away from it and turns away users
// whose role lacks a page's permission.
package guard

import (
	"net/url"
	"path"
	"strings"
)

const (
	LoginPage = "login.html"
	HomePage  = "index.html"

	ReasonPermissionDenied = "permission_denied"
)

// PagePath joins base and page.
func PagePath(basePath, page string) string {
	return strings.TrimRight(basePath, "/") + "/" + strings.TrimLeft(page, "/")
}

// LandingPath is where authenticated users land by default.
func LandingPath(basePath string) string {
	return PagePath(basePath, HomePage)
}

// LoginURL builds the login page URL carrying the original path in the
// redirect parameter. An empty next is left out.
func LoginURL(basePath, next string) string {
	u := PagePath(basePath, LoginPage)
	if next == "" {
		return u
	}
	return u + "?redirect=" + url.QueryEscape(next)
}

// DeniedURL is where a user is sent when the page's permission is lacking.
// When the denied page is the home page itself the user goes to the login
// page instead, so the redirect cannot loop.
func DeniedURL(basePath, currentPath string) string {
	target := LandingPath(basePath)
	if cleanPath(currentPath) == target || cleanPath(currentPath) == strings.TrimRight(basePath, "/")+"/" {
		target = PagePath(basePath, LoginPage)
	}
	return target + "?reason=" + ReasonPermissionDenied
}

// SafeRedirect returns raw when it points inside the application: same
// origin and under basePath. Anything else, including unparsable input,
// yields the landing path. A relative raw without a leading slash is taken
// relative to basePath.
func SafeRedirect(basePath, origin, raw string) string {
	fallback := LandingPath(basePath)
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, `\`) {
		return fallback
	}

	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fallback
	}

	if !strings.HasPrefix(raw, "/") && !hasScheme(raw) {
		raw = collapseSlashes(strings.TrimRight(basePath, "/") + "/" + raw)
	}

	target, err := base.Parse(raw)
	if err != nil {
		return fallback
	}
	if target.Scheme != base.Scheme || target.Host != base.Host || target.User != nil {
		return fallback
	}

	p := cleanPath(target.Path)
	prefix := strings.TrimRight(basePath, "/")
	if prefix != "" && p != prefix && !strings.HasPrefix(p, prefix+"/") {
		return fallback
	}

	out := p
	if target.RawQuery != "" {
		out += "?" + target.RawQuery
	}
	if target.Fragment != "" {
		out += "#" + target.EscapedFragment()
	}
	return out
}

func hasScheme(s string) bool {
	i := strings.Index(s, ":")
	if i <= 0 {
		return false
	}
	j := strings.IndexAny(s, "/?#")
	return j < 0 || i < j
}

func collapseSlashes(s string) string {
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}

// cleanPath resolves dot segments so "/admin/../x" cannot pass as being
// under /admin. A trailing slash is kept.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	c := path.Clean(p)
	if strings.HasSuffix(p, "/") && c != "/" {
		c += "/"
	}
	return c
}
