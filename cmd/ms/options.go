package main

import (
	"fmt"
	"strings"

	"morningstar/internal/domain"
)

// parseDecisionFlag reads "topic:decision:risk[:rationale]".
func parseDecisionFlag(s string) (domain.Decision, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return domain.Decision{}, fmt.Errorf("decision %q must look like topic:decision:risk", s)
	}
	d := domain.Decision{
		Topic:     strings.TrimSpace(parts[0]),
		Decision:  strings.TrimSpace(parts[1]),
		Risk:      strings.TrimSpace(parts[2]),
		Rationale: domain.DefaultRationale,
	}
	if len(parts) == 4 && strings.TrimSpace(parts[3]) != "" {
		d.Rationale = strings.TrimSpace(parts[3])
	}
	if d.Topic == "" {
		return domain.Decision{}, fmt.Errorf("decision %q has no topic", s)
	}
	return d, nil
}

// parseIssueFlag reads "issue:severity", splitting at the last colon.
func parseIssueFlag(s string) (domain.Issue, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return domain.Issue{}, fmt.Errorf("issue %q must look like issue:severity", s)
	}
	text := strings.TrimSpace(s[:i])
	if text == "" {
		return domain.Issue{}, fmt.Errorf("issue %q has no description", s)
	}
	sev, ok := domain.NormalizeSeverity(s[i+1:])
	if !ok {
		return domain.Issue{}, fmt.Errorf("unknown severity %q; use one of Low, Medium, High, Critical", strings.TrimSpace(s[i+1:]))
	}
	return domain.Issue{Issue: text, Severity: sev}, nil
}
