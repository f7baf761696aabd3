package httpx

import (
	"fmt"
	"net"
	"strings"
)

// DomainEntry is one allow-list entry used to validate forwarded hostnames.
// It is never applied to the connection-provided host.
type DomainEntry struct {
	Protocol string // "http", "https" or empty for any
	Hostname string // exact name, or "*." prefix for any subdomain
	Port     string // empty matches any port
}

// ParseDomainEntry parses an origin-like allow-list string such as
// "https://*.example.com:8443", "http://cdn.internal" or "example.com".
func ParseDomainEntry(raw string) (DomainEntry, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DomainEntry{}, fmt.Errorf("empty allowed domain entry")
	}
	var e DomainEntry
	if i := strings.Index(s, "://"); i >= 0 {
		e.Protocol = strings.ToLower(s[:i])
		s = s[i+3:]
	}
	if host, port, err := net.SplitHostPort(s); err == nil {
		e.Hostname, e.Port = strings.ToLower(host), port
	} else {
		e.Hostname = strings.ToLower(s)
	}
	if e.Hostname == "" {
		return DomainEntry{}, fmt.Errorf("allowed domain entry has no hostname: %q", raw)
	}
	return e, nil
}

// TrustPolicy validates proxy-forwarded hostnames against a configured
// allow-list. An empty policy trusts nothing.
type TrustPolicy struct {
	entries []DomainEntry
}

// NewTrustPolicy builds a policy from allow-list strings. Entries that do
// not parse are skipped and reported to the caller via the returned slice
// of errors; the policy is still usable.
func NewTrustPolicy(allowed []string) (*TrustPolicy, []error) {
	p := &TrustPolicy{}
	var errs []error
	for _, raw := range allowed {
		e, err := ParseDomainEntry(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.entries = append(p.entries, e)
	}
	return p, errs
}

// Allows reports whether the forwarded host (optionally host:port) is
// trusted for the given resolved protocol.
func (p *TrustPolicy) Allows(protocol, forwardedHost string) bool {
	if p == nil || forwardedHost == "" {
		return false
	}
	host := strings.ToLower(strings.TrimSpace(forwardedHost))
	port := ""
	if h, pt, err := net.SplitHostPort(host); err == nil {
		host, port = h, pt
	}
	for _, e := range p.entries {
		if e.Protocol != "" && e.Protocol != protocol {
			continue
		}
		if e.Port != "" && e.Port != port {
			continue
		}
		if !matchHostname(e.Hostname, host) {
			continue
		}
		return true
	}
	return false
}

// matchHostname matches an allow-list hostname pattern against a candidate.
// "*." patterns match any subdomain depth but not the bare apex.
func matchHostname(pattern, host string) bool {
	if rest, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(host, "."+rest)
	}
	return pattern == host
}
