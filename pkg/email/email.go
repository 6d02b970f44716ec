// Package email formats recipient addresses for outgoing notification mail.
package email

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

// Address validates addr and renders it with a display name. When name is
// blank one is derived from the local part.
//
//	Address("", "jo.lee@example.com") // "Jo Lee" <jo.lee@example.com>
func Address(name, addr string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(addr))
	if err != nil {
		return "", fmt.Errorf("invalid email %q: %w", addr, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = NameFromEmail(parsed.Address)
	}
	return (&mail.Address{Name: name, Address: parsed.Address}).String(), nil
}

// NameFromEmail builds a display name from the local part of an address.
func NameFromEmail(addr string) string {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Team member"
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
