// Package inference implements the account-inference pipeline: header
// classification, service-domain canonicalization, evidence recording, and
// confidence aggregation.
package inference

import (
	"regexp"
	"strings"
)

var (
	angleAddrPattern = regexp.MustCompile(`<([^>]+)>`)
	emailPattern     = regexp.MustCompile(`[\w.+-]+@([\w.-]+)`)
)

// Second-level labels under which a third label is still part of the
// registrable domain (example.co.uk, example.com.br style names).
var secondLevelTLDs = map[string]bool{
	"co": true, "com": true, "org": true, "net": true, "gov": true, "edu": true,
}

// ExtractEmailAddress pulls the bare address out of a From header, which may
// be `"Display Name" <addr@domain.com>` or just an address. Returns "" when
// nothing email-like is found.
func ExtractEmailAddress(from string) string {
	if from == "" {
		return ""
	}
	candidate := from
	if m := angleAddrPattern.FindStringSubmatch(from); m != nil {
		candidate = m[1]
	}
	return emailPattern.FindString(candidate)
}

// ExtractDomain returns the lowercased domain part of the From address,
// or "" when no address can be parsed.
func ExtractDomain(from string) string {
	if from == "" {
		return ""
	}
	candidate := from
	if m := angleAddrPattern.FindStringSubmatch(from); m != nil {
		candidate = m[1]
	}
	m := emailPattern.FindStringSubmatch(candidate)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// ExtractRegistrableDomain reduces the From address's domain to its
// registrable (eTLD+1-like) form: the last two labels, or the last three when
// the second-to-last label is a known second-level TLD.
func ExtractRegistrableDomain(from string) string {
	domain := ExtractDomain(from)
	if domain == "" {
		return ""
	}
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return domain
	}
	if secondLevelTLDs[parts[len(parts)-2]] {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
