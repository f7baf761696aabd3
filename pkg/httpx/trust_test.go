package httpx

import "testing"

func TestParseDomainEntry(t *testing.T) {
	e, err := ParseDomainEntry("https://*.example.com:8443")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.Protocol != "https" || e.Hostname != "*.example.com" || e.Port != "8443" {
		t.Fatalf("unexpected entry: %+v", e)
	}

	e, err = ParseDomainEntry("example.com")
	if err != nil {
		t.Fatalf("parse bare host: %v", err)
	}
	if e.Protocol != "" || e.Hostname != "example.com" || e.Port != "" {
		t.Fatalf("unexpected entry: %+v", e)
	}

	if _, err := ParseDomainEntry("  "); err == nil {
		t.Fatalf("expected error for empty entry")
	}
	if _, err := ParseDomainEntry("https://"); err == nil {
		t.Fatalf("expected error for scheme-only entry")
	}
}

func TestTrustPolicyAllows(t *testing.T) {
	p, errs := NewTrustPolicy([]string{
		"https://*.example.com",
		"http://cdn.internal:8080",
		"static.example.org",
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	cases := []struct {
		proto, host string
		want        bool
	}{
		{"https", "app.example.com", true},
		{"https", "a.b.example.com", true},
		{"https", "example.com", false}, // wildcard does not cover the apex
		{"http", "app.example.com", false},
		{"http", "cdn.internal:8080", true},
		{"http", "cdn.internal", false}, // entry pins a port
		{"https", "static.example.org", true},
		{"http", "static.example.org", true}, // no protocol pinned
		{"https", "", false},
	}
	for _, c := range cases {
		if got := p.Allows(c.proto, c.host); got != c.want {
			t.Fatalf("Allows(%q, %q) = %v, want %v", c.proto, c.host, got, c.want)
		}
	}
}

func TestTrustPolicyEmptyTrustsNothing(t *testing.T) {
	p, _ := NewTrustPolicy(nil)
	if p.Allows("https", "anything.example.com") {
		t.Fatalf("empty policy must trust nothing")
	}
}

func TestTrustPolicySkipsMalformedEntries(t *testing.T) {
	p, errs := NewTrustPolicy([]string{"", "https://good.example.com"})
	if len(errs) != 1 {
		t.Fatalf("expected one parse error, got %v", errs)
	}
	if !p.Allows("https", "good.example.com") {
		t.Fatalf("valid entry must survive a malformed sibling")
	}
}
