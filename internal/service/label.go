package service

import (
	"regexp"
	"strings"
)

var (
	alertPathPattern = regexp.MustCompile(`/(dependabot|code-scanning|secret-scanning)/(\d+)`)
	labelUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9-]`)
)

// AlertLabel derives the tracker label that ties a ticket to its alert.
// Labels cannot contain spaces or most punctuation.
func AlertLabel(alertURL string) string {
	if m := alertPathPattern.FindStringSubmatch(alertURL); m != nil {
		return "ghas-" + m[1] + "-" + m[2]
	}

	segments := strings.Split(alertURL, "/")
	if len(segments) > 2 {
		segments = segments[len(segments)-2:]
	}
	suffix := labelUnsafeChars.ReplaceAllString(strings.Join(segments, "-"), "")
	return "ghas-alert-" + suffix
}
