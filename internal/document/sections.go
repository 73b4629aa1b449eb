// Package document segments heading-delimited plain-text documents.
//
// It performs no interpretation of section contents: a document is split on
// top-level "## " headings into groups of raw member lines. Lines before the
// first heading form the preamble. Splitting never fails; malformed input only
// yields fewer or smaller sections.
package document

import "strings"

// HeadingMarker introduces a top-level section.
const HeadingMarker = "## "

// Matcher maps heading text onto a caller-defined section key.
type Matcher func(heading string) (key string, ok bool)

// Section is one heading and the raw lines that follow it.
type Section struct {
	// Heading is the text after the marker, trimmed. Empty for the preamble.
	Heading string
	// Key is the matcher's key for a recognized heading.
	Key string
	// Preamble is set on the implicit group before the first heading.
	Preamble bool
	// Recognized is false for headings the matcher rejected.
	Recognized bool
	// Line is the 1-based line number of the heading (or 1 for the preamble).
	Line int
	// Lines are the member lines, untrimmed, without trailing newline.
	Lines []string
}

// Lines splits text into lines, dropping carriage returns.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// IsHeading reports whether line opens a top-level section.
func IsHeading(line string) bool {
	return strings.HasPrefix(line, HeadingMarker)
}

// HeadingText returns the trimmed text of a heading line.
func HeadingText(line string) string {
	return strings.TrimSpace(strings.TrimPrefix(line, HeadingMarker))
}

// Split segments text into sections in document order. A nil matcher
// recognizes every heading with its own text as key.
func Split(text string, match Matcher) []Section {
	if match == nil {
		match = func(h string) (string, bool) { return h, true }
	}
	sections := []Section{{Preamble: true, Line: 1}}
	for i, line := range Lines(text) {
		if IsHeading(line) {
			heading := HeadingText(line)
			key, ok := match(heading)
			sections = append(sections, Section{
				Heading:    heading,
				Key:        key,
				Recognized: ok,
				Line:       i + 1,
			})
			continue
		}
		cur := &sections[len(sections)-1]
		cur.Lines = append(cur.Lines, line)
	}
	return sections
}

// Unrecognized returns the headings the matcher rejected, in order.
func Unrecognized(sections []Section) []Section {
	var out []Section
	for _, s := range sections {
		if !s.Preamble && !s.Recognized {
			out = append(out, s)
		}
	}
	return out
}

// ListItem reports whether a trimmed line is a "- " bullet and returns its text.
// A lone "-" is an empty item.
func ListItem(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if t == "-" {
		return "", true
	}
	if strings.HasPrefix(t, "- ") {
		return strings.TrimSpace(t[2:]), true
	}
	return "", false
}

// Indented reports whether line starts with whitespace, marking a sub-bullet.
func Indented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}
