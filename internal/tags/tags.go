// Package tags extracts semantic tags from screenshot file names.
package tags

import (
	"regexp"
	"strings"
)

var (
	// bracketPattern matches the tags-[a, b] convention.
	bracketPattern = regexp.MustCompile(`tags-\[(.*?)\]`)

	// dashPattern matches the --a-b-- convention that some test runners
	// produce when they sanitize brackets out of file names.
	dashPattern = regexp.MustCompile(`--(.+?)--`)
)

// Extract returns the tags embedded in fileName, in order of appearance.
// The bracket syntax takes precedence; the double-dash syntax is only
// consulted when no bracket group is present. Duplicates are not removed.
func Extract(fileName string) []string {
	if m := bracketPattern.FindStringSubmatch(fileName); m != nil {
		return split(m[1], ",")
	}
	if m := dashPattern.FindStringSubmatch(fileName); m != nil {
		return split(m[1], "-")
	}
	return []string{}
}

// ParseList parses a comma-separated tag list such as the "tags" input.
func ParseList(csv string) []string {
	return split(csv, ",")
}

// Merge returns the ordered union of the given tag groups. The first
// occurrence of a tag fixes its position.
func Merge(groups ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, g := range groups {
		for _, t := range g {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func split(s, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
