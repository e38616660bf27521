package provider

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var closingDelimiters = map[byte]byte{'(': ')', '{': '}', '[': ']', '<': '>'}

// compilePattern compiles a pattern from the override document. Patterns
// may be written with delimiters and trailing flags ("/not connected/i");
// the flags i, m, s and U are honored, others are ignored.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	body, flags := splitDelimited(pattern)

	var prefix strings.Builder
	for _, f := range flags {
		if strings.ContainsRune("imsU", f) && !strings.ContainsRune(prefix.String(), f) {
			prefix.WriteRune(f)
		}
	}
	if prefix.Len() > 0 {
		body = "(?" + prefix.String() + ")" + body
	}

	re, err := regexp.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// splitDelimited returns the body and flags of a delimited pattern, or the
// pattern unchanged when it is not delimited.
func splitDelimited(pattern string) (string, string) {
	if len(pattern) < 2 {
		return pattern, ""
	}
	open := pattern[0]
	if open == '\\' || open > unicode.MaxASCII || unicode.IsLetter(rune(open)) ||
		unicode.IsDigit(rune(open)) || unicode.IsSpace(rune(open)) {
		return pattern, ""
	}

	closing := open
	if c, ok := closingDelimiters[open]; ok {
		closing = c
	}
	end := strings.LastIndexByte(pattern, closing)
	if end <= 0 {
		return pattern, ""
	}

	flags := pattern[end+1:]
	for _, f := range flags {
		if !unicode.IsLetter(f) {
			return pattern, ""
		}
	}
	return pattern[1:end], flags
}

var backReference = regexp.MustCompile(`\$\{(\d{1,2})\}|\$(\d{1,2})|\\(\d{1,2})`)

// expandTemplate rewrites $1, \1 and ${1} back-references to the ${1} form
// expected by regexp.Expand, so "$1,$2" does not read "$1," as a name.
func expandTemplate(replace string) string {
	return backReference.ReplaceAllStringFunc(replace, func(ref string) string {
		m := backReference.FindStringSubmatch(ref)
		for _, group := range m[1:] {
			if group != "" {
				return "${" + group + "}"
			}
		}
		return ref
	})
}
