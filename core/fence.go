package core

import (
	"regexp"
	"strings"
)

var (
	openFenceRe  = regexp.MustCompile("^```[A-Za-z0-9_+.#-]*[ \t]*(\r?\n|$)")
	closeFenceRe = regexp.MustCompile("(\r?\n|^)```[ \t]*$")
)

// StripCodeFences removes a markdown fence wrapping the whole text, along with
// any stray fence lines left inside it. Clean text is returned trimmed but
// otherwise unchanged.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = openFenceRe.ReplaceAllString(s, "")
	s = closeFenceRe.ReplaceAllString(s, "")

	if strings.Contains(s, "```") {
		lines := strings.Split(s, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		s = strings.Join(kept, "\n")
	}
	return strings.TrimSpace(s)
}
