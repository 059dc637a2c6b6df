// Package clientip resolves the address a request is attributed to for rate
// limiting and access logs.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Func resolves the client address of r.
type Func func(r *http.Request) string

// RealClientIP returns the host part of r.RemoteAddr. No proxy headers are
// consulted.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// ForwardedFor returns the left-most X-Forwarded-For entry when it parses as
// an IP, else RealClientIP. Only use it behind a proxy that overwrites the
// header.
func ForwardedFor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	return RealClientIP(r)
}

// Resolver picks ForwardedFor when trustProxy is set.
func Resolver(trustProxy bool) Func {
	if trustProxy {
		return ForwardedFor
	}
	return RealClientIP
}
