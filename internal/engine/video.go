package engine

import (
	"fmt"
	"regexp"
)

// Video id extraction. A video id is an opaque 11-char token over
// [0-9A-Za-z_-]; references arrive as watch URLs, short links, embed URLs,
// or the bare id itself.

var videoRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:\?|&)v=([0-9A-Za-z_-]{11})(?:[&#]|$)`), // watch?v=
	regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})(?:[?&#/]|$)`),
	regexp.MustCompile(`/embed/([0-9A-Za-z_-]{11})(?:[?&#/]|$)`),
	regexp.MustCompile(`^([0-9A-Za-z_-]{11})$`), // bare id
}

// ExtractVideoID parses a video reference into its canonical 11-char id.
// Returns ErrInvalidReference when no known shape matches.
func ExtractVideoID(ref string) (string, error) {
	for _, re := range videoRefPatterns {
		if m := re.FindStringSubmatch(ref); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
}
