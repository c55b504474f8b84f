package security

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIPHonorsTrustedProxyOnly(t *testing.T) {
	d := NewDetector()

	// Direct peer is a trusted proxy: forwarded header wins.
	r := httptest.NewRequest("GET", "/api/accounts", nil)
	r.RemoteAddr = "127.0.0.1:54321"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := d.ExtractClientIP(r); got != "203.0.113.9" {
		t.Fatalf("forwarded: %q", got)
	}

	// X-Real-IP as fallback.
	r = httptest.NewRequest("GET", "/api/accounts", nil)
	r.RemoteAddr = "10.0.0.5:1000"
	r.Header.Set("X-Real-IP", "203.0.113.7")
	if got := d.ExtractClientIP(r); got != "203.0.113.7" {
		t.Fatalf("real-ip: %q", got)
	}

	// Untrusted peer: forwarded headers are ignored.
	r = httptest.NewRequest("GET", "/api/accounts", nil)
	r.RemoteAddr = "198.51.100.2:443"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := d.ExtractClientIP(r); got != "198.51.100.2" {
		t.Fatalf("untrusted: %q", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	cases := []struct {
		name string
		path string
		ua   string
		want bool
	}{
		{"normal api call", "/api/transactions", "Mozilla/5.0", false},
		{"plain http client", "/api/accounts", "curl/8.4", false},
		{"path traversal", "/../etc/passwd", "Mozilla/5.0", true},
		{"dotenv probe", "/.env", "Mozilla/5.0", true},
		{"scanner agent", "/api/accounts", "sqlmap/1.7", true},
	}
	for _, tc := range cases {
		r := httptest.NewRequest("GET", tc.path, nil)
		r.Header.Set("User-Agent", tc.ua)
		if got := d.DetectSuspiciousRequest(r); got != tc.want {
			t.Fatalf("%s: got %v", tc.name, got)
		}
	}
}
