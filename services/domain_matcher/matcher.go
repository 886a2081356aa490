package domain_matcher

import (
	"strings"
	"unicode"

	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// accountNameSuffixes are stripped once from the end of a normalized name.
// Longer forms come first so "corporation" wins over "corp".
var accountNameSuffixes = []string{
	"technologies",
	"corporation",
	"solutions",
	"systems",
	"company",
	"group",
	"tech",
	"corp",
	"inc",
	"ltd",
	"llc",
}

// Policy tunes the containment tiers. Equality tiers always apply.
// MinSubstringLength 1 restores the original permissive containment with no
// length floor; zero or negative values are treated as 1.
type Policy struct {
	MinSubstringLength int `env:"MATCH_MIN_SUBSTRING_LENGTH" envDefault:"3"`
}

var DefaultPolicy = Policy{MinSubstringLength: 3}

type Matcher struct {
	policy Policy
}

func NewMatcher(policy Policy) *Matcher {
	if policy.MinSubstringLength < 1 {
		policy.MinSubstringLength = 1
	}
	return &Matcher{policy: policy}
}

// NormalizeAccountName lowercases, drops whitespace and punctuation, then
// strips one trailing corporate suffix.
func NormalizeAccountName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	normalized := b.String()

	for _, suffix := range accountNameSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			return strings.TrimSuffix(normalized, suffix)
		}
	}
	return normalized
}

// NormalizeDomain returns the domain base: lowercased, without "www.",
// cut at the first dot.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")
	base, _, _ := strings.Cut(domain, ".")
	return base
}

// MatchesAccount reports whether the sender's domain plausibly belongs to
// the account. Recall is preferred over precision.
func (m *Matcher) MatchesAccount(email, accountName string) bool {
	domain := utils.ExtractDomainFromEmail(email)
	if domain == "" {
		return false
	}
	name := NormalizeAccountName(accountName)
	if name == "" {
		return false
	}

	base := NormalizeDomain(domain)
	if name == base {
		return true
	}
	if m.contains(base, name) || m.contains(name, base) {
		return true
	}

	firstSegment, _, _ := strings.Cut(domain, ".")
	return name == firstSegment
}

// WebsiteMatchesDomain reports whether the sender domain appears in the
// stored website value.
func (m *Matcher) WebsiteMatchesDomain(website, domain string) bool {
	website = strings.ToLower(strings.TrimSpace(website))
	domain = strings.ToLower(strings.TrimSpace(domain))
	if website == "" || domain == "" {
		return false
	}
	return m.contains(website, domain)
}

// NameMatchKind describes how a candidate name matched a query.
type NameMatchKind int

const (
	NameNoMatch NameMatchKind = iota
	NameContains
	NameExact
)

// MatchName compares a directory name to a free-text query, case-insensitively.
func (m *Matcher) MatchName(candidate, query string) NameMatchKind {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	query = strings.ToLower(strings.TrimSpace(query))
	if candidate == "" || query == "" {
		return NameNoMatch
	}
	if candidate == query {
		return NameExact
	}
	if m.contains(candidate, query) || m.contains(query, candidate) {
		return NameContains
	}
	return NameNoMatch
}

func (m *Matcher) MinSubstringLength() int {
	return m.policy.MinSubstringLength
}

func (m *Matcher) contains(haystack, needle string) bool {
	if len(needle) < m.policy.MinSubstringLength {
		return false
	}
	return strings.Contains(haystack, needle)
}

var defaultMatcher = NewMatcher(DefaultPolicy)

// MatchesAccount applies the default policy.
func MatchesAccount(email, accountName string) bool {
	return defaultMatcher.MatchesAccount(email, accountName)
}
