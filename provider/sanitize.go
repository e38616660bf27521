package provider

import (
	"regexp"
	"sync"
)

// artifactClass is the fixed set of shell artifacts stripped from output:
// dash, slash, newline, tab and backslash. The pipe is appended after any
// extra class fragment.
const artifactClass = `-/\n\t\\`

var artifactPatterns sync.Map // extra class fragment -> *regexp.Regexp

func artifactPattern(extra string) *regexp.Regexp {
	if re, ok := artifactPatterns.Load(extra); ok {
		return re.(*regexp.Regexp)
	}
	re, err := regexp.Compile(`[` + artifactClass + extra + `|]`)
	if err != nil {
		// not a valid class fragment, strip its characters literally
		re = regexp.MustCompile(`[` + artifactClass + regexp.QuoteMeta(extra) + `|]`)
	}
	actual, _ := artifactPatterns.LoadOrStore(extra, re)
	return actual.(*regexp.Regexp)
}

// Sanitize removes shell artifacts from text in a single pass. extra is a
// regexp character-class fragment of additional characters to remove,
// e.g. `\s` to drop all whitespace. Whitespace outside the removed class is
// not trimmed.
func Sanitize(text, extra string) string {
	if text == "" {
		return ""
	}
	return artifactPattern(extra).ReplaceAllString(text, "")
}

// SanitizeLines sanitizes every line on its own; line structure is kept.
func SanitizeLines(lines []string, extra string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Sanitize(line, extra)
	}
	return out
}
