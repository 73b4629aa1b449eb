// Package changelog maintains a Keep a Changelog style document by direct
// text surgery. Entries are spliced into the raw line array at documented
// insertion points; lines outside the patched span are never reformatted.
package changelog

import (
	"errors"
	"regexp"
	"strings"
)

const (
	unreleasedHeading = "## [Unreleased]"
	categoryMarker    = "### "
)

// ErrNoUnreleased is returned by Release when there is nothing to release.
var ErrNoUnreleased = errors.New("no [Unreleased] section found")

var versionHeading = regexp.MustCompile(`^## \[\d`)

// Boilerplate is the content of a freshly created changelog.
const Boilerplate = `# Changelog

All notable changes to this project will be documented in this file.

The format is based on [Keep a Changelog](https://keepachangelog.com/en/1.1.0/).

*The court maintains this record. Each entry is a verdict inscribed for posterity.*

## [Unreleased]

`

// lines is a document split on "\n". The final newline, when present, is
// held in eol rather than as a trailing empty element.
type lines struct {
	l   []string
	eol bool
}

func split(text string) lines {
	if text == "" {
		return lines{}
	}
	eol := strings.HasSuffix(text, "\n")
	if eol {
		text = text[:len(text)-1]
	}
	return lines{l: strings.Split(text, "\n"), eol: eol}
}

func (d lines) String() string {
	if len(d.l) == 0 {
		return ""
	}
	s := strings.Join(d.l, "\n")
	if d.eol {
		s += "\n"
	}
	return s
}

// insert returns a copy of d with ins placed before index at.
func (d lines) insert(at int, ins ...string) lines {
	out := make([]string, 0, len(d.l)+len(ins))
	out = append(out, d.l[:at]...)
	out = append(out, ins...)
	out = append(out, d.l[at:]...)
	return lines{l: out, eol: d.eol}
}

func (d lines) replace(at int, with ...string) lines {
	out := make([]string, 0, len(d.l)+len(with))
	out = append(out, d.l[:at]...)
	out = append(out, with...)
	out = append(out, d.l[at+1:]...)
	return lines{l: out, eol: d.eol}
}

func bare(line string) string {
	return strings.TrimRight(line, " \t\r")
}

func (d lines) unreleased() int {
	for i, line := range d.l {
		if bare(line) == unreleasedHeading {
			return i
		}
	}
	return -1
}

func (d lines) nextVersion(from int) int {
	for i := from; i < len(d.l); i++ {
		if versionHeading.MatchString(d.l[i]) {
			return i
		}
	}
	return -1
}

// span returns the [start, end) line range of the Unreleased body, or ok=false.
func (d lines) span() (start, end int, ok bool) {
	u := d.unreleased()
	if u < 0 {
		return 0, 0, false
	}
	end = d.nextVersion(u + 1)
	if end < 0 {
		end = len(d.l)
	}
	return u + 1, end, true
}

// FormatEntry renders one bullet, with an italic attribution when source is set.
func FormatEntry(description, source string) string {
	description = strings.Join(strings.Fields(description), " ")
	if source = strings.TrimSpace(source); source != "" {
		return "- " + description + " *(" + source + ")*"
	}
	return "- " + description
}

// AddEntry inserts one entry under category in the Unreleased section.
//
// Without an Unreleased section, one is created before the first dated
// version heading, or appended. Inside Unreleased, an existing category
// gets the entry directly under its heading (newest first); a missing
// category is created at the top of the section body.
func AddEntry(text, category, description, source string) string {
	d := split(text)
	heading := categoryMarker + CategoryHeading(category)
	entry := FormatEntry(description, source)

	start, end, ok := d.span()
	if !ok {
		block := []string{unreleasedHeading, "", heading, entry, ""}
		if v := d.nextVersion(0); v >= 0 {
			return d.insert(v, block...).String()
		}
		if n := len(d.l); n > 0 && strings.TrimSpace(d.l[n-1]) != "" {
			block = append([]string{""}, block...)
		}
		d = d.insert(len(d.l), block...)
		d.eol = true
		return d.String()
	}

	for i := start; i < end; i++ {
		if bare(d.l[i]) == heading {
			return d.insert(i+1, entry).String()
		}
	}
	at := start
	for at < end && strings.TrimSpace(d.l[at]) == "" {
		at++
	}
	return d.insert(at, heading, entry, "").String()
}

// Release turns the Unreleased heading into "## [version] - date" and
// reinstates an empty Unreleased section above it.
func Release(text, version, date string) (string, error) {
	d := split(text)
	u := d.unreleased()
	if u < 0 {
		return text, ErrNoUnreleased
	}
	released := "## [" + strings.TrimSpace(version) + "] - " + strings.TrimSpace(date)
	return d.replace(u, unreleasedHeading, "", released).String(), nil
}

// CategoryEntries is one category subsection and its entries in document order.
type CategoryEntries struct {
	Category string   `json:"category"`
	Entries  []string `json:"entries"`
}

// Summary is the Unreleased section grouped by category, in document order.
type Summary []CategoryEntries

// Entries returns the entries recorded under a category heading.
func (s Summary) Entries(category string) []string {
	heading := CategoryHeading(category)
	for _, c := range s {
		if c.Category == heading {
			return c.Entries
		}
	}
	return nil
}

// Total counts entries across categories.
func (s Summary) Total() int {
	n := 0
	for _, c := range s {
		n += len(c.Entries)
	}
	return n
}

// SummarizeUnreleased re-parses only the Unreleased span. It never mutates.
func SummarizeUnreleased(text string) Summary {
	d := split(text)
	start, end, ok := d.span()
	if !ok {
		return nil
	}
	var out Summary
	cur := -1
	for _, line := range d.l[start:end] {
		switch {
		case strings.HasPrefix(line, categoryMarker):
			name := strings.TrimSpace(strings.TrimPrefix(line, categoryMarker))
			cur = -1
			for i := range out {
				if out[i].Category == name {
					cur = i
				}
			}
			if cur < 0 {
				out = append(out, CategoryEntries{Category: name})
				cur = len(out) - 1
			}
		case strings.HasPrefix(line, "- ") && cur >= 0:
			out[cur].Entries = append(out[cur].Entries, strings.TrimSpace(line[2:]))
		}
	}
	return out
}
