// Package normalize turns raw spreadsheet values into the canonical keys
// used for matching: company names, email addresses, local parts, and
// registrable domain labels. Every function is total; unusable input
// yields an empty key rather than an error.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Legal-form tokens removed from company names. Order matters: each token
// is removed as a substring wherever it occurs, so " ag" also fires inside
// longer words once earlier removals expose it.
var companySuffixes = []string{" gmbh", " ag", " ltd", " llc", " inc", " bv", " holding"}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// Company normalizes a company name for comparison:
//  1. lowercase
//  2. drop punctuation, keeping letters, digits, underscores, and spaces
//  3. remove common legal-form suffixes (" gmbh", " ag", ...)
//  4. trim surrounding whitespace
//
// Internal whitespace is preserved as-is.
func Company(name string) string {
	n := strings.ToLower(name)
	n = nonWordRe.ReplaceAllString(n, "")
	for _, suffix := range companySuffixes {
		n = strings.ReplaceAll(n, suffix, "")
	}
	return strings.TrimSpace(n)
}

// Email lowercases and trims an address for use as an exact-match key.
func Email(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// LocalPart returns the portion of an address before the first "@",
// lowercased and trimmed. Input without an "@" yields "".
func LocalPart(addr string) string {
	local, _, found := strings.Cut(Email(addr), "@")
	if !found {
		return ""
	}
	return local
}

// Domain reduces an email address, URL, or bare host to the registrable
// label of its domain: "jan@acme.de", "https://www.acme.de/contact", and
// "acme.de" all normalize to "acme". The public suffix is dropped, so the
// same company matches across TLDs. Unrecognizable input yields "".
func Domain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	s, _, _ = strings.Cut(s, "/")
	s, _, _ = strings.Cut(s, ":")
	s = strings.Trim(s, ".")
	if s == "" {
		return ""
	}
	etld, err := publicsuffix.EffectiveTLDPlusOne(s)
	if err != nil {
		return ""
	}
	label, _, _ := strings.Cut(etld, ".")
	return label
}

// EmailInText finds the first email-shaped token in free text, lowercased.
// Text without one yields "".
func EmailInText(text string) string {
	return strings.ToLower(emailRe.FindString(text))
}
