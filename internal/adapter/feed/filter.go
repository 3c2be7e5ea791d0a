package feed

import (
	"fmt"
	"net/url"

	"github.com/bmatcuk/doublestar/v4"
)

// Excluder drops feed items whose URL path matches any of its glob
// patterns, e.g. "/news/av/**" for video-only BBC pages.
type Excluder struct {
	patterns []string
}

func NewExcluder(patterns []string) (*Excluder, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Excluder{patterns: patterns}, nil
}

// Excluded reports whether the item at rawURL should be skipped. Items
// without a parseable URL are kept.
func (e *Excluder) Excluded(rawURL string) bool {
	if e == nil || len(e.patterns) == 0 || rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, p := range e.patterns {
		if matched, _ := doublestar.Match(p, path); matched {
			return true
		}
	}
	return false
}
