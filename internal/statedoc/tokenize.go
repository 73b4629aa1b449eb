package statedoc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"morningstar/internal/domain"
)

// Field separators for decision lines. Topic ends at the first separator,
// risk starts after the last one.
const (
	colon  = ":"
	emDash = "—"
	seps   = colon + emDash
)

// Placeholder rendered for empty vindication lists.
const placeholder = "None (yet)"

var (
	dissentDetail     = regexp.MustCompile(`^Dissent \((.*?)\):\s*(.*)$`)
	rationaleDetail   = regexp.MustCompile(`^Rationale:\s*(.*)$`)
	dissentVindicated = regexp.MustCompile(`^\*\*(.*?)\*\* — (.*?) predicted:\s*(.*?)\s*→\s*(.*)$`)
)

func cutFirst(s string) (before, after string, ok bool) {
	i := strings.IndexAny(s, seps)
	if i < 0 {
		return s, "", false
	}
	_, w := utf8.DecodeRuneInString(s[i:])
	return s[:i], s[i+w:], true
}

func cutLast(s string) (before, after string, ok bool) {
	i := strings.LastIndexAny(s, seps)
	if i < 0 {
		return s, "", false
	}
	_, w := utf8.DecodeRuneInString(s[i:])
	return s[:i], s[i+w:], true
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Unknown
	}
	return s
}

// parseDecision tokenizes "topic: decision — risk [p:v, ...]". Missing parts
// degrade to Unknown; the returned warning is empty when all three parts
// were present.
func parseDecision(item string) (domain.Decision, string) {
	body, votes := splitVotes(item)
	d := domain.Decision{Rationale: domain.DefaultRationale, Risk: domain.Unknown, Decision: domain.Unknown, Votes: votes}

	topic, rest, ok := cutFirst(body)
	d.Topic = orUnknown(topic)
	if !ok {
		return d, fmt.Sprintf("decision %q has no separator; decision and risk set to %s", item, domain.Unknown)
	}
	decision, risk, ok := cutLast(rest)
	d.Decision = orUnknown(decision)
	if !ok {
		return d, fmt.Sprintf("decision %q has no risk; risk set to %s", item, domain.Unknown)
	}
	d.Risk = orUnknown(risk)
	if strings.TrimSpace(topic) == "" || strings.TrimSpace(decision) == "" || strings.TrimSpace(risk) == "" {
		return d, fmt.Sprintf("decision %q has empty fields; filled with %s", item, domain.Unknown)
	}
	return d, ""
}

// splitVotes peels a trailing "[p:v, q:w]" tally off a decision line.
func splitVotes(item string) (string, map[string]string) {
	if !strings.HasSuffix(item, "]") {
		return item, nil
	}
	open := strings.LastIndex(item, " [")
	if open < 0 {
		return item, nil
	}
	inner := item[open+2 : len(item)-1]
	if strings.TrimSpace(inner) == "" {
		return item, nil
	}
	votes := make(map[string]string)
	for _, part := range strings.Split(inner, ",") {
		who, vote, ok := strings.Cut(strings.TrimSpace(part), ":")
		who = strings.TrimSpace(who)
		if !ok || who == "" {
			return item, nil
		}
		votes[who] = strings.TrimSpace(vote)
	}
	return strings.TrimSpace(item[:open]), votes
}

func formatVotes(votes map[string]string) string {
	names := make([]string, 0, len(votes))
	for who, vote := range votes {
		if vote != "" {
			names = append(names, who)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, who := range names {
		parts[i] = who + ":" + votes[who]
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

// parseIssue tokenizes "issue: severity", splitting on the last colon so
// colons inside the description survive.
func parseIssue(item string) (domain.Issue, string) {
	i := strings.LastIndex(item, colon)
	if i < 0 {
		return domain.Issue{Issue: strings.TrimSpace(item), Severity: domain.SeverityMedium},
			fmt.Sprintf("issue %q has no severity; assuming %s", item, domain.SeverityMedium)
	}
	raw := strings.TrimSpace(item[i+1:])
	sev, ok := domain.NormalizeSeverity(raw)
	is := domain.Issue{Issue: strings.TrimSpace(item[:i]), Severity: sev}
	if !ok {
		return is, fmt.Sprintf("issue %q has unrecognized severity %q; assuming %s", item, raw, sev)
	}
	return is, ""
}

func parseDissentVindication(item string) domain.DissentVindication {
	m := dissentVindicated.FindStringSubmatch(item)
	if m == nil {
		return domain.DissentVindication{Raw: item}
	}
	return domain.DissentVindication{
		OriginalDecision: strings.TrimSpace(m[1]),
		Dissenter:        strings.TrimSpace(m[2]),
		Prediction:       strings.TrimSpace(m[3]),
		Outcome:          strings.TrimSpace(m[4]),
	}
}

func formatDissentVindication(v domain.DissentVindication) string {
	if !v.Structured() {
		return v.Raw
	}
	return fmt.Sprintf("**%s** — %s predicted: %s → %s", v.OriginalDecision, v.Dissenter, v.Prediction, v.Outcome)
}

func isPlaceholder(line string) bool {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "- ")
	t = strings.Trim(t, "*_ ")
	return strings.EqualFold(t, placeholder)
}
