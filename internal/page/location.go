package page

import (
	"net/url"
	"strings"
)

// Location is the path and query of the current URL.
type Location struct {
	Path     string
	RawQuery string
}

// ParseLocation splits "/shoes?page=2" into path and query. A leading "?"
// on its own is accepted too.
func ParseLocation(raw string) Location {
	path, query, _ := strings.Cut(raw, "?")
	return Location{Path: path, RawQuery: query}
}

func (l Location) String() string {
	if l.RawQuery == "" {
		return l.Path
	}
	return l.Path + "?" + l.RawQuery
}

// PageNumber returns the first "page" query parameter, or "1" when it is
// absent or empty. The value is not validated: pairs url.ParseQuery would
// reject ("2;x", "%zz") are still returned, raw when they cannot be
// unescaped.
func PageNumber(l Location) string {
	for _, pair := range strings.Split(l.RawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if unescape(k) != "page" {
			continue
		}
		if p := unescape(v); p != "" {
			return p
		}
		return "1"
	}
	return "1"
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

// WithPage returns l with the page parameter replaced.
func (l Location) WithPage(p string) Location {
	q, _ := url.ParseQuery(l.RawQuery)
	if q == nil {
		q = url.Values{}
	}
	q.Set("page", p)
	return Location{Path: l.Path, RawQuery: q.Encode()}
}

func samePath(a, b string) bool {
	trim := func(s string) string {
		if len(s) > 1 {
			return strings.TrimRight(s, "/")
		}
		return s
	}
	return trim(a) == trim(b)
}
