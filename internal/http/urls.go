package http

import (
	"net/url"
	"strings"
)

func sectionLink(baseURL, sectionCode string) string {
	base := strings.TrimRight(baseURL, "/")
	return base + "/" + url.PathEscape(sectionCode)
}

func socketPath(sectionCode string) string {
	return "/ws/" + url.PathEscape(sectionCode)
}
