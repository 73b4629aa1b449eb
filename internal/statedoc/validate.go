package statedoc

import (
	"fmt"
	"sort"
	"strings"

	"morningstar/internal/domain"
)

// ValidationError lists every structural violation found in a State.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("state invalid: %s", strings.Join(e.Violations, "; "))
}

// Validate checks s against the structural invariants. It does not stop at
// the first problem; one description is returned per violation.
func Validate(s domain.State) (bool, []string) {
	var violations []string
	required := []struct {
		name    string
		missing bool
	}{
		{"activeWork", s.ActiveWork == nil},
		{"decisions", s.Decisions == nil},
		{"outstandingIssues", s.OutstandingIssues == nil},
		{"nextSession", s.NextSession == nil},
	}
	for _, f := range required {
		if f.missing {
			violations = append(violations, fmt.Sprintf("%s is missing", f.name))
		}
	}
	if !ValidTimestamp(s.LastUpdated) {
		violations = append(violations, fmt.Sprintf("lastUpdated %q is not a valid timestamp", s.LastUpdated))
	}
	for i, d := range s.Decisions {
		if strings.TrimSpace(d.Topic) == "" {
			violations = append(violations, fmt.Sprintf("decisions[%d] has no topic", i))
		}
	}
	for i, is := range s.OutstandingIssues {
		if !is.Severity.Valid() {
			violations = append(violations, fmt.Sprintf("outstandingIssues[%d] severity %q is not one of Low, Medium, High, Critical", i, is.Severity))
		}
	}
	return len(violations) == 0, violations
}

// Check returns a *ValidationError when s is invalid.
func Check(s domain.State) error {
	if ok, violations := Validate(s); !ok {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Repair returns a corrected copy of s. It never fails and is idempotent:
// missing lists become empty, missing decision fields get placeholders,
// severities are renormalized and text fields are kept on one line.
// Text that would read back differently once written is rewritten, so
// Read(Write(Repair(s))) yields Repair(s). Parse warnings are dropped.
func Repair(s domain.State) domain.State {
	out := domain.NewState(clean(s.LastUpdated))
	if !ValidTimestamp(out.LastUpdated) {
		out.LastUpdated = nowStamp()
	}
	out.ActiveWork = cleanAll(s.ActiveWork)
	out.NextSession = cleanAll(s.NextSession)
	for _, v := range cleanAll(s.ProphetVindications) {
		out.ProphetVindications = append(out.ProphetVindications, notPlaceholder(v))
	}
	for _, d := range s.Decisions {
		out.Decisions = append(out.Decisions, RepairDecision(d))
	}
	for _, is := range s.OutstandingIssues {
		sev, _ := domain.NormalizeSeverity(string(is.Severity))
		out.OutstandingIssues = append(out.OutstandingIssues, domain.Issue{Issue: clean(is.Issue), Severity: sev})
	}
	for _, v := range s.DissentVindications {
		out.DissentVindications = append(out.DissentVindications, repairDissentVindication(v))
	}
	return out
}

// RepairDecision fills missing decision fields and rewrites separators out
// of the fields whose position decides how the line is split: the topic
// and risk lose ":" and "—", vote names lose ":", and vote text loses the
// tally delimiters.
func RepairDecision(d domain.Decision) domain.Decision {
	out := domain.Decision{
		Topic:     orUnknown(noSeparators(clean(d.Topic))),
		Decision:  orUnknown(clean(d.Decision)),
		Rationale: clean(d.Rationale),
		Risk:      orUnknown(noSeparators(clean(d.Risk))),
	}
	if out.Rationale == "" {
		out.Rationale = domain.DefaultRationale
	}
	names := make([]string, 0, len(d.Votes))
	for who := range d.Votes {
		names = append(names, who)
	}
	sort.Strings(names)
	for _, who := range names {
		vote := clean(voteText.Replace(clean(d.Votes[who])))
		who = clean(voteText.Replace(noSeparators(clean(who))))
		if who == "" || vote == "" {
			continue
		}
		if out.Votes == nil {
			out.Votes = make(map[string]string)
		}
		out.Votes[who] = vote
	}
	for _, ds := range d.Dissents {
		out.Dissents = append(out.Dissents, domain.Dissent{
			Participant: clean(replaceAll(clean(ds.Participant), "):", ")")),
			Opinion:     clean(ds.Opinion),
		})
	}
	return out
}

func repairDissentVindication(v domain.DissentVindication) domain.DissentVindication {
	if v.Raw != "" || !v.Structured() {
		raw := clean(v.Raw)
		if dissentVindicated.MatchString(raw) {
			raw = clean(replaceAll(raw, "**", ""))
		}
		return domain.DissentVindication{Raw: notPlaceholder(raw)}
	}
	return domain.DissentVindication{
		OriginalDecision: clean(replaceAll(clean(v.OriginalDecision), "**", "")),
		Dissenter:        clean(replaceAll(clean(v.Dissenter), " predicted:", " predicted")),
		Prediction:       clean(strings.ReplaceAll(clean(v.Prediction), "→", "->")),
		Outcome:          clean(v.Outcome),
	}
}

var (
	separatorText = strings.NewReplacer(colon, " - ", emDash, " - ")
	voteText      = strings.NewReplacer(",", ";", "[", "(", "]", ")")
)

func noSeparators(s string) string {
	if !strings.ContainsAny(s, seps) {
		return s
	}
	return strings.Join(strings.Fields(separatorText.Replace(s)), " ")
}

// replaceAll repeats the replacement until old no longer occurs.
func replaceAll(s, old, repl string) string {
	for strings.Contains(s, old) {
		s = strings.ReplaceAll(s, old, repl)
	}
	return s
}

// notPlaceholder keeps a vindication from reading back as the empty marker.
func notPlaceholder(s string) string {
	if isPlaceholder(s) {
		return s + "."
	}
	return s
}

func clean(s string) string {
	return strings.TrimSpace(oneLine(s))
}

func cleanAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, clean(it))
	}
	return out
}
