package providers

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	pathIDPattern  = regexp.MustCompile(`(?:youtu\.be/|/embed/|/shorts/|/live/)([A-Za-z0-9_-]{11})`)
)

// ExtractVideoID accepts a bare 11-character video ID or a watch, youtu.be,
// embed or shorts URL and returns the ID. ok is false when nothing matches.
func ExtractVideoID(input string) (id string, ok bool) {
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input, true
	}

	if u, err := url.Parse(input); err == nil {
		if v := u.Query().Get("v"); videoIDPattern.MatchString(v) {
			return v, true
		}
	}

	if m := pathIDPattern.FindStringSubmatch(input); m != nil {
		return m[1], true
	}
	return "", false
}
