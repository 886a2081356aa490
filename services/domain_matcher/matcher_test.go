package domain_matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wahajws/amast-crm-sub001/internal/models"
)

func TestNormalizeAccountName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"strips solutions suffix", "Acme Solutions", "acme"},
		{"strips corporation not corp", "Globex Corporation", "globex"},
		{"strips technologies not tech", "Initech Technologies", "initech"},
		{"strips punctuation", "Acme, Inc.", "acme"},
		{"strips only one suffix", "Acme Group Inc", "acmegroup"},
		{"no suffix", "Umbrella", "umbrella"},
		{"suffix only", "Inc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAccountName(tt.input))
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "acme", NormalizeDomain("www.Acme.com"))
	assert.Equal(t, "acme", NormalizeDomain("acme.co.uk"))
	assert.Equal(t, "localhost", NormalizeDomain("localhost"))
	assert.Equal(t, "", NormalizeDomain(""))
}

func TestMatchesAccount_ContainmentBothWays(t *testing.T) {
	assert.True(t, MatchesAccount("sales@acme.com", "Acme Solutions"))
	assert.True(t, MatchesAccount("sales@acmesolutions.io", "Acme"))
	assert.True(t, MatchesAccount("ceo@globex.com", "Globex Holdings"))
}

func TestMatchesAccount_NoMatch(t *testing.T) {
	assert.False(t, MatchesAccount("someone@other.com", "Acme"))
	assert.False(t, MatchesAccount("not-an-email", "Acme"))
	assert.False(t, MatchesAccount("someone@acme.com", "Inc"))
}

func TestMatchesAccount_MinSubstringLength(t *testing.T) {
	strict := NewMatcher(Policy{MinSubstringLength: 3})
	loose := NewMatcher(Policy{MinSubstringLength: 1})

	assert.False(t, strict.MatchesAccount("x@abcd.com", "AB Inc"))
	assert.True(t, loose.MatchesAccount("x@abcd.com", "AB Inc"))

	// equality is never gated by the threshold
	assert.True(t, strict.MatchesAccount("x@ab.com", "AB Inc"))
}

func TestNewMatcher_ZeroPolicyIsPermissive(t *testing.T) {
	zero := NewMatcher(Policy{})

	assert.True(t, zero.MatchesAccount("x@abcd.com", "A Inc"))
	assert.True(t, NewMatcher(Policy{MinSubstringLength: 1}).MatchesAccount("x@abcd.com", "A Inc"))
	assert.False(t, NewMatcher(DefaultPolicy).MatchesAccount("x@abcd.com", "A Inc"))
}

func TestWebsiteMatchesDomain(t *testing.T) {
	m := NewMatcher(DefaultPolicy)

	assert.True(t, m.WebsiteMatchesDomain("https://www.acme.com/about", "acme.com"))
	assert.False(t, m.WebsiteMatchesDomain("https://globex.com", "acme.com"))
	assert.False(t, m.WebsiteMatchesDomain("", "acme.com"))
	assert.False(t, m.WebsiteMatchesDomain("https://acme.com", ""))
}

func TestMatchName(t *testing.T) {
	m := NewMatcher(DefaultPolicy)

	assert.Equal(t, NameExact, m.MatchName("Acme", "acme"))
	assert.Equal(t, NameContains, m.MatchName("Acme Holdings", "acme"))
	assert.Equal(t, NameContains, m.MatchName("Acme", "Clients/Acme"))
	assert.Equal(t, NameNoMatch, m.MatchName("Globex", "acme"))
	assert.Equal(t, NameNoMatch, m.MatchName("", "acme"))
}

func TestSelectAccountByName_PrefersExact(t *testing.T) {
	m := NewMatcher(DefaultPolicy)
	accounts := []*models.Account{
		{ID: "a1", Name: "Acme Holdings"},
		{ID: "a2", Name: "ACME"},
	}

	assert.Equal(t, "a2", m.SelectAccountByName(accounts, "acme").ID)
	assert.Equal(t, "a1", m.SelectAccountByName(accounts, "Acme Hold").ID)
	assert.Nil(t, m.SelectAccountByName(accounts, "Globex"))
}

func TestSelectContactByName_Tiers(t *testing.T) {
	m := NewMatcher(DefaultPolicy)
	contacts := []*models.Contact{
		{ID: "c1", FirstName: "Jane", LastName: "Doe-Smith"},
		{ID: "c2", FirstName: "Jane", LastName: "Doe"},
		{ID: "c3", FirstName: "Madonna"},
	}

	assert.Equal(t, "c2", m.SelectContactByName(contacts, "jane doe").ID)
	assert.Equal(t, "c3", m.SelectContactByName(contacts, "Madonna").ID)
	assert.Equal(t, "c1", m.SelectContactByName(contacts, "Doe-Smith").ID)
	assert.Equal(t, "c1", m.SelectContactByName(contacts, "Jane Doe-Sm").ID)
	assert.Nil(t, m.SelectContactByName(contacts, "Bob Stone"))
	assert.Nil(t, m.SelectContactByName(contacts, " "))
}
