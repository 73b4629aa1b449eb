package statedoc

import "strings"

// Section identifies a recognized part of the state document.
type Section string

const (
	SectionLastUpdated         Section = "lastUpdated"
	SectionActiveWork          Section = "activeWork"
	SectionDecisions           Section = "decisions"
	SectionOutstandingIssues   Section = "outstandingIssues"
	SectionProphetVindications Section = "prophetVindications"
	SectionDissentVindications Section = "dissentVindications"
	SectionNextSession         Section = "nextSession"
)

// sectionKeywords maps a lowercase substring of a heading onto its section.
// Order matters: the first keyword contained in a heading wins, so
// "dissent" must precede "vindication".
var sectionKeywords = []struct {
	keyword string
	section Section
}{
	{"last updated", SectionLastUpdated},
	{"active work", SectionActiveWork},
	{"decision", SectionDecisions},
	{"outstanding", SectionOutstandingIssues},
	{"issue", SectionOutstandingIssues},
	{"dissent", SectionDissentVindications},
	{"prophet", SectionProphetVindications},
	{"vindication", SectionProphetVindications},
	{"next session", SectionNextSession},
}

// canonicalHeadings is the fixed order and wording the writer emits.
var canonicalHeadings = []struct {
	section Section
	heading string
}{
	{SectionLastUpdated, "Last Updated"},
	{SectionActiveWork, "Active Work"},
	{SectionDecisions, "Decisions Made"},
	{SectionOutstandingIssues, "Outstanding Issues"},
	{SectionProphetVindications, "Prophet's Vindications"},
	{SectionDissentVindications, "Dissent Vindications"},
	{SectionNextSession, "Next Session"},
}

// MatchSection loosely maps heading text onto a known section.
func MatchSection(heading string) (Section, bool) {
	h := strings.ToLower(strings.TrimSpace(heading))
	if h == "" {
		return "", false
	}
	for _, kw := range sectionKeywords {
		if strings.Contains(h, kw.keyword) {
			return kw.section, true
		}
	}
	return "", false
}

func matchHeading(heading string) (string, bool) {
	s, ok := MatchSection(heading)
	return string(s), ok
}
