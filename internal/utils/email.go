package utils

import (
	"strings"
)

// ExtractDomainFromEmail returns the lowercased part after the last '@',
// accepting both bare addresses and "Name <addr>" forms.
func ExtractDomainFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}

	if strings.Contains(email, "<") && strings.Contains(email, ">") {
		startIdx := strings.LastIndex(email, "<") + 1
		endIdx := strings.LastIndex(email, ">")
		if startIdx > 0 && endIdx > startIdx {
			email = email[startIdx:endIdx]
		}
	}

	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

func NormalizeEmailAddress(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
