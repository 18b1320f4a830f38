// Package identity reconciles raw platform chat handles into canonical
// conversation identities.
package identity

import (
	"strings"
	"unicode"
)

// IsContactInfo reports whether candidate is just contact info (a bare
// phone number or email address) rather than a real display name. A
// string mixing a name with an email ("John john@example.com") is a
// name. Total and deterministic.
func IsContactInfo(candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}

	if containsAlpha(candidate) {
		return isBareEmail(candidate)
	}

	stripped := stripPhoneDecoration(candidate)
	if strings.HasPrefix(stripped, "+") {
		return allDigits(stripped[1:]) && len(stripped) > 1
	}
	return allDigits(stripped) && len(stripped) >= 10
}

func containsAlpha(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stripPhoneDecoration(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, s)
}

// isBareEmail accepts a single email token and nothing else. Any
// surrounding content makes the candidate a name.
func isBareEmail(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	at := strings.IndexByte(s, '@')
	if at <= 0 || at != strings.LastIndexByte(s, '@') {
		return false
	}
	local, domain := s[:at], s[at+1:]
	dot := strings.IndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}
	for _, r := range local {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("._%+-", r) {
			return false
		}
	}
	for _, r := range domain {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' {
			return false
		}
	}
	return true
}
