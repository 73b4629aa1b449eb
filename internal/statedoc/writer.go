package statedoc

import (
	"strings"

	"morningstar/internal/document"
	"morningstar/internal/domain"
)

// Title is the document's first line.
const Title = "# Session State"

// Write renders s in canonical form. It is deterministic and total:
// section order is fixed regardless of how s was populated.
func Write(s domain.State) string {
	var b strings.Builder
	line := func(parts ...string) {
		for _, p := range parts {
			b.WriteString(p)
		}
		b.WriteByte('\n')
	}
	bullets := func(items []string) {
		for _, it := range items {
			line("- ", oneLine(it))
		}
	}

	line(Title)
	line()
	for _, h := range canonicalHeadings {
		line(document.HeadingMarker, h.heading)
		switch h.section {
		case SectionLastUpdated:
			line("[", oneLine(s.LastUpdated), "]")
		case SectionActiveWork:
			bullets(s.ActiveWork)
		case SectionDecisions:
			for _, d := range s.Decisions {
				writeDecision(line, d)
			}
		case SectionOutstandingIssues:
			for _, is := range s.OutstandingIssues {
				line("- ", oneLine(is.Issue), colon, " ", oneLine(string(is.Severity)))
			}
		case SectionProphetVindications:
			if len(s.ProphetVindications) == 0 {
				line(placeholder)
			}
			bullets(s.ProphetVindications)
		case SectionDissentVindications:
			if len(s.DissentVindications) == 0 {
				line(placeholder)
			}
			for _, v := range s.DissentVindications {
				line("- ", oneLine(formatDissentVindication(v)))
			}
		case SectionNextSession:
			bullets(s.NextSession)
		}
		line()
	}
	return b.String()
}

func writeDecision(line func(...string), d domain.Decision) {
	line("- ", oneLine(d.Topic), colon, " ", oneLine(d.Decision), " ", emDash, " ", oneLine(d.Risk), formatVotes(d.Votes))
	if d.Rationale != "" && d.Rationale != domain.DefaultRationale {
		line("  - Rationale: ", oneLine(d.Rationale))
	}
	for _, ds := range d.Dissents {
		line("  - Dissent (", oneLine(ds.Participant), "): ", oneLine(ds.Opinion))
	}
}

// oneLine keeps a field from breaking the line structure of the document.
func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
