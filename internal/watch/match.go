package watch

import "strings"

// Match returns the keywords that occur in text as case-insensitive
// substrings, preserving the order of the keywords slice. Empty keywords
// never match. Returns nil when nothing matches.
func Match(text string, keywords []string) []string {
	if text == "" || len(keywords) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var hits []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits = append(hits, kw)
		}
	}
	return hits
}
