package naming

import (
	"regexp"
	"strings"

	"github.com/wasumayan/SorryIMissedThis-sub001/platform"
)

// Introduction shapes the owner uses in their own outgoing messages.
// The first capitalized token after the pattern is taken as a name
// variant. Case-insensitivity is scoped to the phrase: the captured
// token must be capitalized, or "i'm sorry" would yield "sorry".
var selfIntroPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:\bthis is )([A-Z][a-zA-Z'._-]+)`),
	regexp.MustCompile(`(?i:\bit'?s )([A-Z][a-zA-Z'._-]+)(?i: here\b)`),
	regexp.MustCompile(`(?i:\bi'?m )([A-Z][a-zA-Z'._-]+)\b`),
	regexp.MustCompile(`(?m)^[-~]\s*([A-Z][a-zA-Z'._-]+)\s*$`),
}

// SelfIdentities is the owner's own known name variants. It exists only
// as an exclusion filter: message content can quote or echo the owner's
// name, and without this guard a conversation gets mislabeled with the
// owner's own identity. Never persisted as a contact.
type SelfIdentities struct {
	names []string
}

func NewSelfIdentities(names ...string) SelfIdentities {
	s := SelfIdentities{}
	for _, name := range names {
		s.add(name)
	}
	return s
}

func (s *SelfIdentities) add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	lower := strings.ToLower(name)
	for _, existing := range s.names {
		if existing == lower {
			return
		}
	}
	s.names = append(s.names, lower)
}

func (s SelfIdentities) Len() int { return len(s.names) }

// Matches reports whether candidate is one of the owner's identities,
// either exactly (case-insensitive) or by leading token, which catches
// an inferred name that is just the owner's first name echoed back.
func (s SelfIdentities) Matches(candidate string) bool {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if candidate == "" {
		return false
	}
	candidateFirst := firstToken(candidate)
	for _, name := range s.names {
		if candidate == name {
			return true
		}
		if candidateFirst != "" && candidateFirst == firstToken(name) {
			return true
		}
	}
	return false
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// DeriveSelfIdentities scans the owner's outgoing messages for
// self-introductions and collects the name variants found.
func DeriveSelfIdentities(messages []platform.Message) SelfIdentities {
	s := SelfIdentities{}
	for _, msg := range messages {
		if !msg.FromOwner {
			continue
		}
		for _, pattern := range selfIntroPatterns {
			for _, match := range pattern.FindAllStringSubmatch(msg.Text, -1) {
				if len(match) > 1 {
					s.add(strings.Trim(match[1], ".,!?"))
				}
			}
		}
	}
	return s
}
