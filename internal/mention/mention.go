// Package mention pulls @handles out of free text.
package mention

import (
	"regexp"
	"sort"
)

var handlePattern = regexp.MustCompile(`@([A-Za-z0-9_#]+)`)

// Extract returns the distinct handles in text, without the leading '@'.
// The result is sorted so callers get a stable order; it is never nil.
func Extract(text string) []string {
	if text == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	handles := []string{}
	for _, m := range handlePattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		handles = append(handles, m[1])
	}
	sort.Strings(handles)
	return handles
}

// FromPost extracts handles from a post's body and recipient together.
func FromPost(content, to string) []string {
	return Extract(content + "\n" + to)
}
