package message_parser

import (
	"regexp"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
)

var namedAddressPattern = regexp.MustCompile(`^\s*"?([^"<]*?)"?\s*<([^<>]+)>\s*$`)

type Address struct {
	Name  string
	Email string
}

// ParseAddressList splits an address header on commas and reads each token
// as either `Display Name <email>` or a bare email. Commas inside quotes or
// angle brackets do not split.
func ParseAddressList(raw string) []Address {
	var addresses []Address
	for _, token := range splitAddressList(raw) {
		if address, ok := parseAddress(token); ok {
			addresses = append(addresses, address)
		}
	}
	return addresses
}

func parseAddress(token string) (Address, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Address{}, false
	}
	if m := namedAddressPattern.FindStringSubmatch(token); m != nil {
		email := cleanEmail(m[2])
		if email == "" {
			return Address{}, false
		}
		return Address{Name: strings.TrimSpace(m[1]), Email: email}, true
	}
	email := cleanEmail(token)
	if email == "" {
		return Address{}, false
	}
	return Address{Email: email}, true
}

// cleanEmail normalizes case and lets mailsherpa tidy syntactically valid
// addresses. Invalid tokens are kept verbatim (lowercased).
func cleanEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	validation := mailvalidate.ValidateEmailSyntax(email)
	if validation.IsValid && validation.CleanEmail != "" {
		return strings.ToLower(validation.CleanEmail)
	}
	return email
}

func splitAddressList(raw string) []string {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
		angle   bool
	)
	for _, r := range raw {
		switch {
		case r == '"':
			quoted = !quoted
		case r == '<' && !quoted:
			angle = true
		case r == '>' && !quoted:
			angle = false
		case r == ',' && !quoted && !angle:
			tokens = append(tokens, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func emails(addresses []Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		result = append(result, address.Email)
	}
	return result
}
