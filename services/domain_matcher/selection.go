package domain_matcher

import (
	"strings"

	"github.com/wahajws/amast-crm-sub001/internal/models"
)

// SelectAccountByName picks an exact case-insensitive name match first,
// then the first containment match in either direction.
func (m *Matcher) SelectAccountByName(accounts []*models.Account, name string) *models.Account {
	var partial *models.Account
	for _, account := range accounts {
		switch m.MatchName(account.Name, name) {
		case NameExact:
			return account
		case NameContains:
			if partial == nil {
				partial = account
			}
		}
	}
	return partial
}

// SelectContactByName tries, in order: first token as first name and the
// rest as last name, the whole query as either name part, then containment
// against the full name.
func (m *Matcher) SelectContactByName(contacts []*models.Contact, name string) *models.Contact {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	first, last, _ := strings.Cut(name, " ")
	last = strings.TrimSpace(last)
	if first != "" && last != "" {
		for _, contact := range contacts {
			if strings.EqualFold(contact.FirstName, first) && strings.EqualFold(contact.LastName, last) {
				return contact
			}
		}
	}

	for _, contact := range contacts {
		if strings.EqualFold(contact.FirstName, name) || strings.EqualFold(contact.LastName, name) {
			return contact
		}
	}

	for _, contact := range contacts {
		if m.MatchName(contact.FullName(), name) != NameNoMatch {
			return contact
		}
	}
	return nil
}
