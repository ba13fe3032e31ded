package security

import (
	"regexp"
)

// Fixed denylist: messenger invite links, short-form-video/social/adult
// domains and discord invites. Matching is a single pass over the text, no
// state, no URL resolution.
var prohibitedPattern = regexp.MustCompile(`(?i)(t\.me|telegram\.me|telegram\.dog|tiktok\.com|instagram\.com|youtube\.com|youtu\.be|facebook\.com|porn|onlyfans|xvideos|xnxx|discord(?:\.com|app\.com|\.gg)(?:/invite)?/[a-zA-Z0-9-]{2,32})`)

type ContentMatcher struct {
	pattern *regexp.Regexp
}

func NewContentMatcher() *ContentMatcher {
	return &ContentMatcher{pattern: prohibitedPattern}
}

func (m *ContentMatcher) IsProhibited(text string) bool {
	return m.pattern.MatchString(text)
}
