package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"morningstar/internal/domain"
)

func TestNames(t *testing.T) {
	require.Equal(t, []string{Session, State}, Names())
}

func TestValidateState(t *testing.T) {
	st := domain.NewState("2024-03-01T09:30:00Z")
	st.Decisions = append(st.Decisions, domain.Decision{Topic: "DB", Decision: "Postgres", Risk: "Low", Votes: map[string]string{"a": "yes"}})
	st.OutstandingIssues = append(st.OutstandingIssues, domain.Issue{Issue: "slow", Severity: domain.SeverityHigh})

	ok, err := Validate(st, State)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestValidateStateRejectsStructuralDrift(t *testing.T) {
	cases := map[string]domain.State{
		"nil list": {LastUpdated: "x"},
		"empty topic": func() domain.State {
			s := domain.NewState("x")
			s.Decisions = []domain.Decision{{Decision: "d", Risk: "r"}}
			return s
		}(),
		"bad severity": func() domain.State {
			s := domain.NewState("x")
			s.OutstandingIssues = []domain.Issue{{Issue: "i", Severity: "purple"}}
			return s
		}(),
	}
	for name, st := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := Validate(st, State)
			require.False(t, ok)
			require.Error(t, err)
		})
	}
}

func TestValidateSession(t *testing.T) {
	ok, err := Validate(domain.Session{ID: "s1", EndedAt: "2024-03-01T09:30:00Z", ReportPath: "sessions/r.md", Decisions: 2}, Session)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Validate(map[string]any{"id": "s1"}, Session)
	require.False(t, ok)
	require.Error(t, err)
}

func TestValidateUnknownSchema(t *testing.T) {
	ok, err := Validate(struct{}{}, "nope")
	require.False(t, ok)
	require.ErrorIs(t, err, ErrUnknownSchema)
}
