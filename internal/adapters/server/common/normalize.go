package common

import (
	"path"
	"strings"
)

// TrimOr returns s without surrounding blanks, or fallback when nothing is left.
func TrimOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

// EndpointPath cleans a mount path to a rooted form without a trailing slash.
// Blank input and the bare root both yield fallback.
func EndpointPath(p, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return fallback
	}
	p = path.Clean("/" + p)
	if p == "/" {
		return fallback
	}
	return p
}
