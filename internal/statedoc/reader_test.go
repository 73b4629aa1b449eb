package statedoc

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"morningstar/internal/domain"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func pinClock(t *testing.T) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return fixedNow }
	t.Cleanup(func() { timeNow = prev })
}

func doc(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestDecisionTokenizer(t *testing.T) {
	cases := []struct {
		line  string
		want  domain.Decision
		degr  bool
		votes map[string]string
	}{
		{
			line: "Database Choice: PostgreSQL — Low",
			want: domain.Decision{Topic: "Database Choice", Decision: "PostgreSQL", Risk: "Low"},
		},
		{
			line: "justtext",
			want: domain.Decision{Topic: "justtext", Decision: domain.Unknown, Risk: domain.Unknown},
			degr: true,
		},
		{
			line: "Cache: Redis",
			want: domain.Decision{Topic: "Cache", Decision: "Redis", Risk: domain.Unknown},
			degr: true,
		},
		{
			line: "Queue — SQS: High",
			want: domain.Decision{Topic: "Queue", Decision: "SQS", Risk: "High"},
		},
		{
			line: "Deploy: blue: green — Medium",
			want: domain.Decision{Topic: "Deploy", Decision: "blue: green", Risk: "Medium"},
		},
		{
			line:  "Auth: OAuth — High [alice:yes, bob:no]",
			want:  domain.Decision{Topic: "Auth", Decision: "OAuth", Risk: "High"},
			votes: map[string]string{"alice": "yes", "bob": "no"},
		},
		{
			line: "Topic: — High",
			want: domain.Decision{Topic: "Topic", Decision: domain.Unknown, Risk: "High"},
			degr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, warning := parseDecision(tc.line)
			tc.want.Rationale = domain.DefaultRationale
			tc.want.Votes = tc.votes
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("parseDecision mismatch (-want +got):\n%s", diff)
			}
			if (warning != "") != tc.degr {
				t.Errorf("warning = %q, degraded want %v", warning, tc.degr)
			}
		})
	}
}

func TestIssueTokenizer(t *testing.T) {
	cases := []struct {
		line  string
		issue string
		sev   domain.Severity
		warn  bool
	}{
		{"Slow query: critical-ish", "Slow query", domain.SeverityCritical, false},
		{"thing: purple", "thing", domain.SeverityMedium, true},
		{"Ratio 1:2 wrong: high", "Ratio 1:2 wrong", domain.SeverityHigh, false},
		{"no severity here", "no severity here", domain.SeverityMedium, true},
		{"Flaky test: Low", "Flaky test", domain.SeverityLow, false},
	}
	for _, tc := range cases {
		got, warning := parseIssue(tc.line)
		if got.Issue != tc.issue || got.Severity != tc.sev {
			t.Errorf("parseIssue(%q) = %+v", tc.line, got)
		}
		if (warning != "") != tc.warn {
			t.Errorf("parseIssue(%q) warning = %q", tc.line, warning)
		}
	}
}

func TestReadFullDocument(t *testing.T) {
	pinClock(t)
	text := doc(
		"# Session State",
		"",
		"## Last Updated",
		"[2024-01-15T10:00:00Z]",
		"",
		"## Active Work",
		"- Build parser",
		"- Write tests",
		"",
		"## Decisions Made",
		"- Database Choice: PostgreSQL — Low [alice:approve]",
		"  - Rationale: mature tooling",
		"  - Dissent (bob): prefers SQLite",
		"",
		"## Outstanding Issues",
		"- Slow query: critical-ish",
		"",
		"## Prophet's Vindications",
		"- Caching would bite us",
		"",
		"## Dissent Vindications",
		"- **Database Choice** — bob predicted: ops burden → pager fatigue",
		"- free text dissent",
		"",
		"## Next Session",
		"- Ship it",
	)
	got, warnings, err := Read(text, false)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	want := domain.State{
		LastUpdated: "2024-01-15T10:00:00Z",
		ActiveWork:  []string{"Build parser", "Write tests"},
		Decisions: []domain.Decision{{
			Topic: "Database Choice", Decision: "PostgreSQL", Risk: "Low",
			Rationale: "mature tooling",
			Votes:     map[string]string{"alice": "approve"},
			Dissents:  []domain.Dissent{{Participant: "bob", Opinion: "prefers SQLite"}},
		}},
		OutstandingIssues:   []domain.Issue{{Issue: "Slow query", Severity: domain.SeverityCritical}},
		ProphetVindications: []string{"Caching would bite us"},
		DissentVindications: []domain.DissentVindication{
			{OriginalDecision: "Database Choice", Dissenter: "bob", Prediction: "ops burden", Outcome: "pager fatigue"},
			{Raw: "free text dissent"},
		},
		NextSession: []string{"Ship it"},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(domain.State{}, "ParseWarnings")); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestReadUnknownHeadingTolerated(t *testing.T) {
	pinClock(t)
	text := doc(
		"## Active Work",
		"- keep me",
		"## Random Notes",
		"- some prose",
		"## Outstanding Issues",
		"- Leak: High",
	)
	st, warnings, err := Read(text, false)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "Random Notes") {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(st.ActiveWork) != 1 || st.ActiveWork[0] != "keep me" {
		t.Errorf("active work = %v", st.ActiveWork)
	}
	if len(st.OutstandingIssues) != 1 || st.OutstandingIssues[0].Severity != domain.SeverityHigh {
		t.Errorf("issues = %v", st.OutstandingIssues)
	}
	if diff := cmp.Diff(warnings, st.ParseWarnings); diff != "" {
		t.Errorf("ParseWarnings should carry the warnings:\n%s", diff)
	}
}

func TestReadStrictVsLenientTimestamp(t *testing.T) {
	pinClock(t)
	text := doc("## Last Updated", "[not a date]", "## Active Work", "- a")

	st, warnings, err := Read(text, false)
	if err != nil {
		t.Fatalf("lenient read failed: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "line 2") {
		t.Fatalf("warnings = %v", warnings)
	}
	if st.LastUpdated != fixedNow.Format(time.RFC3339) {
		t.Errorf("LastUpdated = %q, want generated now", st.LastUpdated)
	}

	_, _, err = Read(text, true)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("strict read error = %v, want *ParseError", err)
	}
	if perr.Line != 2 {
		t.Errorf("ParseError.Line = %d, want 2", perr.Line)
	}
}

func TestReadStrictRejectsUnknownHeading(t *testing.T) {
	_, _, err := Read(doc("## Random Notes"), true)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v", err)
	}
}

func TestReadLooseHeadingsAndTimestampFormats(t *testing.T) {
	cases := []string{
		"2024-01-15T10:00:00.123456",
		"2024-01-15 10:00:00",
		"2024-01-15T10:00:00+02:00",
		"2024-01-15",
	}
	for _, ts := range cases {
		st, warnings, err := Read(doc("## last updated (UTC)", "["+ts+"]"), true)
		if err != nil || len(warnings) != 0 {
			t.Errorf("timestamp %q: err=%v warnings=%v", ts, err, warnings)
			continue
		}
		if st.LastUpdated != ts {
			t.Errorf("LastUpdated = %q, want %q", st.LastUpdated, ts)
		}
	}
	st, _, err := Read(doc("## DECISIONS (recent)", "- A: B — C", "## my outstanding stuff", "- X: low"), true)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(st.Decisions) != 1 || len(st.OutstandingIssues) != 1 {
		t.Fatalf("loose headings not matched: %+v", st)
	}
}

func TestReadEmptyDocument(t *testing.T) {
	pinClock(t)
	st, warnings, err := Read("", false)
	if err != nil || len(warnings) != 0 {
		t.Fatalf("err=%v warnings=%v", err, warnings)
	}
	if ok, violations := Validate(st); !ok {
		t.Fatalf("empty read should be valid: %v", violations)
	}
}

func TestReadPlaceholdersAndProse(t *testing.T) {
	st, warnings, err := Read(doc(
		"## Prophet's Vindications",
		"None (yet)",
		"## Dissent Vindications",
		"- *None (yet)*",
		"## Active Work",
		"handwritten prose",
		"- real item",
	), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.ProphetVindications) != 0 || len(st.DissentVindications) != 0 {
		t.Errorf("placeholders parsed as entries: %+v", st)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "handwritten prose") {
		t.Errorf("warnings = %v", warnings)
	}
	if len(st.ActiveWork) != 1 {
		t.Errorf("active work = %v", st.ActiveWork)
	}
}

func TestMatchSection(t *testing.T) {
	cases := map[string]Section{
		"Last Updated":           SectionLastUpdated,
		"Active Work":            SectionActiveWork,
		"Decisions Made":         SectionDecisions,
		"Outstanding Issues":     SectionOutstandingIssues,
		"Known issues":           SectionOutstandingIssues,
		"Prophet's Vindications": SectionProphetVindications,
		"Dissent Vindications":   SectionDissentVindications,
		"Next Session":           SectionNextSession,
	}
	for heading, want := range cases {
		got, ok := MatchSection(heading)
		if !ok || got != want {
			t.Errorf("MatchSection(%q) = %q,%v want %q", heading, got, ok, want)
		}
	}
	if _, ok := MatchSection("Random Notes"); ok {
		t.Errorf("Random Notes should not match")
	}
}
