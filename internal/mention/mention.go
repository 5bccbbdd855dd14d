// Package mention recognizes and strips Slack mention tokens (`<@U123>`,
// optionally with a `|label` suffix) from message text.
package mention

import (
	"regexp"
	"strings"
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+(?:\|[^>]+)?>\s*`)

// Matches reports whether text contains a mention token anywhere.
func Matches(text string) bool {
	if text == "" {
		return false
	}
	return mentionPattern.MatchString(text)
}

// Strip removes every mention token (and the whitespace run following each)
// and trims surrounding whitespace. It never fails; empty input yields "".
func Strip(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}
