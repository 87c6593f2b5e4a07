package parsers

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```([a-zA-Z0-9_-]*)\\s*\n(.*?)```")

// ExtractFencedBlock returns the content of the first code fence whose
// language matches lang (empty lang matches any fence). When no fence
// is present the trimmed input is returned unchanged.
func ExtractFencedBlock(content, lang string) string {
	for _, m := range fencePattern.FindAllStringSubmatch(content, -1) {
		if lang == "" || strings.EqualFold(m[1], lang) || m[1] == "" {
			return strings.TrimSpace(m[2])
		}
	}
	return strings.TrimSpace(content)
}

// ExtractTagged returns the content between <tag> and </tag>, and
// whether the pair was found. Used for the analyser's briefing handoff.
func ExtractTagged(content, tag string) (string, bool) {
	open := "<" + tag + ">"
	closing := "</" + tag + ">"
	start := strings.Index(content, open)
	if start < 0 {
		return "", false
	}
	rest := content[start+len(open):]
	end := strings.Index(rest, closing)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
