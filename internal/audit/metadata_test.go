package audit_test

import (
	"github.com/myrjola/tutorai/internal/audit"
	"github.com/stretchr/testify/assert"
	"net/http"
	"testing"
)

func TestResolveIP(t *testing.T) {
	tests := []struct {
		name string
		md   audit.Metadata
		want string
	}{
		{
			name: "nothing known",
			md:   audit.Metadata{},
			want: audit.UnknownIP,
		},
		{
			name: "forwarded wins over direct",
			md:   audit.Metadata{ForwardedIP: "203.0.113.7", DirectIP: "198.51.100.1"},
			want: "203.0.113.7",
		},
		{
			name: "direct with port",
			md:   audit.Metadata{DirectIP: "198.51.100.1:52311"},
			want: "198.51.100.1",
		},
		{
			name: "ipv6 direct with port",
			md:   audit.Metadata{DirectIP: "[2001:db8::1]:443"},
			want: "2001:db8::1",
		},
		{
			name: "loopback forwarded skipped for public direct",
			md:   audit.Metadata{ForwardedIP: "127.0.0.1", DirectIP: "198.51.100.1"},
			want: "198.51.100.1",
		},
		{
			name: "first hop of X-Forwarded-For",
			md: audit.Metadata{
				DirectIP: "127.0.0.1:4000",
				Headers:  http.Header{"X-Forwarded-For": {"203.0.113.9, 10.0.0.1"}},
			},
			want: "203.0.113.9",
		},
		{
			name: "X-Forwarded-For wins over private proxy address",
			md: audit.Metadata{
				DirectIP: "10.0.0.5:4000",
				Headers:  http.Header{"X-Forwarded-For": {"203.0.113.9"}},
			},
			want: "203.0.113.9",
		},
		{
			name: "X-Real-IP wins over public direct address",
			md: audit.Metadata{
				DirectIP: "198.51.100.1:4000",
				Headers:  http.Header{"X-Real-Ip": {"203.0.113.10"}},
			},
			want: "203.0.113.10",
		},
		{
			name: "cloudflare header",
			md: audit.Metadata{
				Headers: http.Header{"Cf-Connecting-Ip": {"203.0.113.10"}},
			},
			want: "203.0.113.10",
		},
		{
			name: "only loopback",
			md:   audit.Metadata{DirectIP: "[::1]:1234", ForwardedIP: "unknown"},
			want: "::1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, audit.ResolveIP(tt.md))
		})
	}
}

func TestFlattenHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		want    string
	}{
		{name: "nil", headers: nil, want: "(none)"},
		{name: "empty", headers: http.Header{}, want: "(none)"},
		{
			name: "sorted and joined",
			headers: http.Header{
				"User-Agent": {"test"},
				"Accept":     {"text/html", "application/json"},
			},
			want: "Accept: text/html, application/json | User-Agent: test",
		},
		{
			name: "credentials redacted",
			headers: http.Header{
				"Cookie":        {"session=secret"},
				"Authorization": {"Bearer secret"},
				"Host":          {"localhost"},
			},
			want: "Authorization: [redacted] | Cookie: [redacted] | Host: localhost",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, audit.FlattenHeaders(tt.headers))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"alice":          "alice",
		"Bob_smith-2":    "Bob_smith-2",
		"../../etc/pass": "etcpass",
		"a b@c.d":        "abcd",
		"!!!":            "",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, audit.Sanitize(in), "Sanitize(%q)", in)
	}
}
