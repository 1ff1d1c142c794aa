package model

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

// Identifier turns an arbitrary name into an exported Go identifier: runs of
// non-alphanumeric characters are dropped and the character that follows is
// upper-cased. A leading digit gets an "X" prefix.
func Identifier(name string) string {
	var b strings.Builder
	for _, word := range wordPattern.FindAllString(name, -1) {
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	id := b.String()
	if id == "" {
		return "X"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "X" + id
	}
	return id
}

// MemberName derives an enum member identifier from a wire literal. All-caps
// tokens are re-cased so "ON" becomes "On".
func MemberName(literal string) string {
	id := Identifier(literal)
	if isAllCaps(id) {
		return id[:1] + strings.ToLower(id[1:])
	}
	return id
}

func isAllCaps(s string) bool {
	return s == strings.ToUpper(s)
}
