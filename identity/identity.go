package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultServicePrefixes are the handle prefixes the platform is known
// to emit for direct-message conversations, longest first so that
// stripping is unambiguous.
var DefaultServicePrefixes = []string{
	"iMessage;-;",
	"iMessage;+;",
	"SMS;-;",
	"iMessage;",
	"SMS;",
}

var groupIDPattern = regexp.MustCompile(`chat[0-9A-Fa-f]{6,}`)

// ContactIdentity is the phone/email/group shape extracted from a raw
// chat handle. At most one of Phone and Email is set unless IsGroup.
type ContactIdentity struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	IsGroup bool   `json:"is_group"`
}

// StripServicePrefix removes the first matching service prefix from a
// handle, if any.
func StripServicePrefix(handle string, prefixes []string) string {
	handle = strings.TrimSpace(handle)
	for _, prefix := range prefixes {
		if strings.HasPrefix(handle, prefix) {
			return strings.TrimSpace(handle[len(prefix):])
		}
	}
	return handle
}

// ExtractGroupID pulls an opaque group identifier out of a handle, if
// one is embedded.
func ExtractGroupID(handle string) (string, bool) {
	match := groupIDPattern.FindString(handle)
	return match, match != ""
}

// Extract derives a ContactIdentity from a raw handle using the default
// service prefixes.
func Extract(handle string) ContactIdentity {
	return ExtractWithPrefixes(handle, DefaultServicePrefixes)
}

func ExtractWithPrefixes(handle string, prefixes []string) ContactIdentity {
	address := StripServicePrefix(handle, prefixes)
	if address == "" {
		return ContactIdentity{}
	}
	if _, ok := ExtractGroupID(address); ok {
		return ContactIdentity{IsGroup: true}
	}
	if strings.ContainsRune(address, '@') {
		return ContactIdentity{Email: address}
	}
	stripped := stripPhoneDecoration(address)
	if strings.HasPrefix(stripped, "+") && allDigits(stripped[1:]) {
		return ContactIdentity{Phone: stripped}
	}
	if allDigits(stripped) && len(stripped) >= 7 {
		return ContactIdentity{Phone: stripped}
	}
	// Opaque identifier with no recognizable address: treat as group.
	return ContactIdentity{IsGroup: true}
}

// FormatPhone renders a raw phone number for display. Unrecognized
// shapes pass through unchanged.
func FormatPhone(phone string) string {
	stripped := stripPhoneDecoration(strings.TrimSpace(phone))
	digits := strings.TrimPrefix(stripped, "+")
	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return fmt.Sprintf("+1 (%s) %s-%s", digits[1:4], digits[4:7], digits[7:])
	case len(digits) == 10:
		return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:])
	default:
		return strings.TrimSpace(phone)
	}
}
