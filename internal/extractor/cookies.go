package extractor

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// cookieDomain is the registrable domain the bundle is scoped to.
const cookieDomain = "youtube.com"

// ParseCookies splits a raw "name=value; name2=value2" string, as copied
// from a browser, into discrete cookies. Only the first '=' separates the
// name; the rest belongs to the value. Entries without a name are skipped.
func ParseCookies(raw string) []*http.Cookie {
	var cookies []*http.Cookie

	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, value, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		cookies = append(cookies, &http.Cookie{
			Name:  name,
			Value: value,
		})
	}

	return cookies
}

// NewCookieJar returns a jar seeded with cookies for the extractor's
// domain and all of its subdomains.
func NewCookieJar(cookies []*http.Cookie) (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	if len(cookies) == 0 {
		return jar, nil
	}

	scoped := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cc := *c
		cc.Domain = cookieDomain
		cc.Path = "/"
		cc.Secure = true
		scoped = append(scoped, &cc)
	}

	jar.SetCookies(&url.URL{Scheme: "https", Host: "www." + cookieDomain, Path: "/"}, scoped)
	return jar, nil
}
