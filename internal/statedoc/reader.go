// Package statedoc reads, writes, validates and repairs the session state
// document: a human-editable markdown file with fixed "## " sections.
//
// Reading is lenient by default. Drift introduced by hand edits (unknown
// headings, lines that lost their separators, odd severities, broken
// timestamps) is recovered field by field and reported as warnings. Strict
// mode turns the first warning into a *ParseError.
//
// Writing is canonical: sections always come out in the same order and
// format, so repeated read/write cycles converge.
package statedoc

import (
	"errors"
	"fmt"
	"strings"

	"morningstar/internal/document"
	"morningstar/internal/domain"
)

// ErrAbsent reports that no state document exists yet.
var ErrAbsent = errors.New("state document absent")

// ParseError is raised in strict mode for drift that lenient mode tolerates.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("state parse error at line %d: %s", e.Line, e.Msg)
	}
	return "state parse error: " + e.Msg
}

type reader struct {
	strict   bool
	state    domain.State
	warnings []string
}

// Read builds a State from document text. Every recoverable defect becomes
// a warning; with strict set the first one is returned as *ParseError.
func Read(text string, strict bool) (domain.State, []string, error) {
	r := &reader{strict: strict, state: domain.NewState(nowStamp())}
	for _, sec := range document.Split(text, matchHeading) {
		if sec.Preamble {
			continue
		}
		if !sec.Recognized {
			if err := r.warn(sec.Line, fmt.Sprintf("unrecognized section %q ignored", sec.Heading)); err != nil {
				return domain.State{}, r.warnings, err
			}
			continue
		}
		if err := r.section(Section(sec.Key), sec); err != nil {
			return domain.State{}, r.warnings, err
		}
	}
	r.state.ParseWarnings = r.warnings
	return r.state, r.warnings, nil
}

func (r *reader) warn(line int, msg string) error {
	if r.strict {
		return &ParseError{Line: line, Msg: msg}
	}
	r.warnings = append(r.warnings, fmt.Sprintf("line %d: %s", line, msg))
	return nil
}

func (r *reader) section(key Section, sec document.Section) error {
	for i, raw := range sec.Lines {
		lineNo := sec.Line + 1 + i
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		var err error
		switch key {
		case SectionLastUpdated:
			err = r.timestamp(lineNo, trimmed)
		case SectionDecisions:
			err = r.decision(lineNo, raw)
		default:
			err = r.listItem(key, lineNo, raw)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) timestamp(lineNo int, line string) error {
	if strings.HasPrefix(line, "#") {
		return nil
	}
	if _, ok := document.ListItem(line); ok {
		return r.warn(lineNo, fmt.Sprintf("list item %q in Last Updated ignored", line))
	}
	clean := strings.TrimSpace(strings.Trim(line, "[]"))
	if _, err := ParseTimestamp(clean); err != nil {
		return r.warn(lineNo, fmt.Sprintf("unparseable timestamp %q; keeping %s", line, r.state.LastUpdated))
	}
	r.state.LastUpdated = clean
	return nil
}

func (r *reader) decision(lineNo int, raw string) error {
	item, ok := document.ListItem(raw)
	if !ok {
		return r.warn(lineNo, fmt.Sprintf("non-list text %q in Decisions ignored", strings.TrimSpace(raw)))
	}
	n := len(r.state.Decisions)
	if document.Indented(raw) && n > 0 {
		parent := &r.state.Decisions[n-1]
		if m := rationaleDetail.FindStringSubmatch(item); m != nil {
			parent.Rationale = strings.TrimSpace(m[1])
			return nil
		}
		if m := dissentDetail.FindStringSubmatch(item); m != nil {
			parent.Dissents = append(parent.Dissents, domain.Dissent{
				Participant: strings.TrimSpace(m[1]),
				Opinion:     strings.TrimSpace(m[2]),
			})
			return nil
		}
		return r.warn(lineNo, fmt.Sprintf("unrecognized detail %q under decision %q ignored", item, parent.Topic))
	}
	d, warning := parseDecision(item)
	r.state.Decisions = append(r.state.Decisions, d)
	if warning != "" {
		return r.warn(lineNo, warning)
	}
	return nil
}

func (r *reader) listItem(key Section, lineNo int, raw string) error {
	vindications := key == SectionProphetVindications || key == SectionDissentVindications
	if vindications && isPlaceholder(raw) {
		return nil
	}
	item, ok := document.ListItem(raw)
	if !ok {
		return r.warn(lineNo, fmt.Sprintf("non-list text %q ignored", strings.TrimSpace(raw)))
	}
	switch key {
	case SectionActiveWork:
		r.state.ActiveWork = append(r.state.ActiveWork, item)
	case SectionNextSession:
		r.state.NextSession = append(r.state.NextSession, item)
	case SectionProphetVindications:
		r.state.ProphetVindications = append(r.state.ProphetVindications, item)
	case SectionDissentVindications:
		r.state.DissentVindications = append(r.state.DissentVindications, parseDissentVindication(item))
	case SectionOutstandingIssues:
		is, warning := parseIssue(item)
		r.state.OutstandingIssues = append(r.state.OutstandingIssues, is)
		if warning != "" {
			return r.warn(lineNo, warning)
		}
	}
	return nil
}
