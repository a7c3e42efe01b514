package core

import (
	"regexp"
	"strings"
)

// usernamePattern accepts a minimal email shape: one @ with a dotted domain.
var usernamePattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// nicknamePattern allows letters, digits, spaces, underscores, and hyphens.
var nicknamePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// blockedWords is a fixed denylist checked by substring. The match is
// deliberately blunt: any nickname or username containing one of these
// sequences is rejected, which produces false positives on benign words
// ("hello" contains "hell"). That trade-off is accepted for a
// child-facing app.
var blockedWords = []string{
	"damn", "hell", "crap", "stupid", "dumb", "idiot", "hate", "kill",
	"ugly", "fat", "loser", "suck", "butt", "poop", "fart",
	"shit", "piss", "bitch", "bastard", "whore", "slut",
}

// ValidUsername reports whether s looks like an email address.
// Whitespace-only and empty input are rejected.
func ValidUsername(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	return usernamePattern.MatchString(s)
}

// ValidNickname reports whether s is 3-20 characters of letters, digits,
// spaces, underscores, and hyphens.
func ValidNickname(s string) bool {
	if len(s) < 3 || len(s) > 20 {
		return false
	}
	return nicknamePattern.MatchString(s)
}

// ContainsBlockedWord reports whether s contains any denylisted sequence,
// case-insensitive. Empty input never matches.
func ContainsBlockedWord(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, w := range blockedWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
