package audit

import (
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
)

// Metadata is the connection information the transport layer can recover for an event.
type Metadata struct {
	// ForwardedIP is the client address reported by a trusted proxy, if any.
	ForwardedIP string
	// DirectIP is the peer address of the connection, with or without port.
	DirectIP string
	// Headers are the request headers. It may be nil.
	Headers http.Header
}

// UnknownIP is the resolved address when no candidate is available.
const UnknownIP = "unknown"

// forwardingHeaders are consulted after ForwardedIP and DirectIP, in this order.
var forwardingHeaders = []string{"X-Forwarded-For", "X-Real-IP", "X-Client-IP", "CF-Connecting-IP"}

var redactedHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization", "Set-Cookie"}

// ResolveIP picks the client address from md.
//
// Candidates are tried in priority order: ForwardedIP, the forwarding headers and finally DirectIP, which is the
// proxy itself when the server runs behind one. The first candidate that is not a loopback or unspecified address
// wins. If every candidate is local, the first one is returned and if there are none at all, [UnknownIP].
func ResolveIP(md Metadata) string {
	candidates := make([]string, 0, 2+len(forwardingHeaders)) //nolint:mnd // forwarded and direct
	candidates = append(candidates, md.ForwardedIP)
	for _, name := range forwardingHeaders {
		v := md.Headers.Get(name)
		if name == "X-Forwarded-For" {
			v, _, _ = strings.Cut(v, ",")
		}
		candidates = append(candidates, v)
	}
	candidates = append(candidates, md.DirectIP)

	var fallback string
	for _, c := range candidates {
		c = stripPort(strings.TrimSpace(c))
		if c == "" || c == UnknownIP {
			continue
		}
		if !isLocalAddress(c) {
			return c
		}
		if fallback == "" {
			fallback = c
		}
	}
	if fallback != "" {
		return fallback
	}
	return UnknownIP
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}

func isLocalAddress(addr string) bool {
	switch addr {
	case "127.0.0.1", "localhost", "::1", "0.0.0.0":
		return true
	}
	return false
}

// FlattenHeaders renders headers as "Name: value" pairs sorted by name and joined with " | ".
//
// Credentials are redacted. FlattenHeaders never panics; an extraction failure is rendered as a placeholder.
func FlattenHeaders(h http.Header) (flat string) {
	defer func() {
		if r := recover(); r != nil {
			flat = fmt.Sprintf("(headers unavailable: %v)", r)
		}
	}()
	if len(h) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		value := strings.Join(h[name], ", ")
		if slices.Contains(redactedHeaders, http.CanonicalHeaderKey(name)) {
			value = "[redacted]"
		}
		pairs = append(pairs, name+": "+value)
	}
	return strings.Join(pairs, " | ")
}
