package changelog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Conventional category keys. Decided and Warned record rulings and
// vindicated warnings alongside the Keep a Changelog set.
const (
	Added      = "added"
	Changed    = "changed"
	Deprecated = "deprecated"
	Removed    = "removed"
	Fixed      = "fixed"
	Security   = "security"
	Decided    = "decided"
	Warned     = "warned"
)

var categoryHeadings = map[string]string{
	Added:      "Added",
	Changed:    "Changed",
	Deprecated: "Deprecated",
	Removed:    "Removed",
	Fixed:      "Fixed",
	Security:   "Security",
	Decided:    "Decided",
	Warned:     "Warned",
}

// Categories lists the conventional keys in display order.
var Categories = []string{Added, Changed, Deprecated, Removed, Fixed, Security, Decided, Warned}

var titleCaser = cases.Title(language.English)

// CategoryHeading returns the subsection title for a category. Labels
// outside the conventional set are accepted and title-cased.
func CategoryHeading(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	if h, ok := categoryHeadings[key]; ok {
		return h
	}
	return titleCaser.String(strings.TrimSpace(category))
}
