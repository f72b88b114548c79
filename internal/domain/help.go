package domain

import "strings"

// HelpPhrases are fragments of backend errors for which the UI shows the
// static troubleshooting panel.
var HelpPhrases = []string{
	"blocked",
	"parse",
	"parsing",
	"restricted",
	"private",
	"login",
	"log in",
	"unavailable",
	"rate limit",
}

// NeedsHelp reports whether message matches a known backend failure phrasing.
func NeedsHelp(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range HelpPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// HelpText is the troubleshooting advice shown next to such errors.
const HelpText = "The backend could not read this video. Make sure it is public, that the link opens without logging in, " +
	"and try again in a few minutes if the site is rate limiting requests."
