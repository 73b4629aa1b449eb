package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"morningstar/internal/changelog"
	"morningstar/internal/domain"
	"morningstar/internal/events"
	"morningstar/internal/fsutil"
	"morningstar/internal/schema"
	"morningstar/internal/statedoc"
)

const reportLayout = "20060102_150405"

// Start loads the state, initializing it when no document exists yet.
func (e Engine) Start(ctx context.Context) (st domain.State, created bool, err error) {
	st, err = e.Load(ctx)
	if errors.Is(err, statedoc.ErrAbsent) {
		e.log().Info("no session state found, initializing", "path", e.State.Path)
		st, err = e.Init(ctx, false)
		return st, err == nil, err
	}
	return st, false, err
}

// Status is the read-only overview printed at the start of a session.
type Status struct {
	State       domain.State      `json:"state"`
	Warnings    []string          `json:"warnings,omitempty"`
	Unreleased  changelog.Summary `json:"unreleased"`
	LastSession *domain.Session   `json:"last_session,omitempty"`
}

func (e Engine) Status(ctx context.Context) (Status, error) {
	st, err := e.Load(ctx)
	if err != nil {
		return Status{}, err
	}
	sum, err := e.Changelog.Summary()
	if err != nil {
		return Status{}, err
	}
	out := Status{State: st, Warnings: st.ParseWarnings, Unreleased: sum}
	if e.DB != nil {
		sessions, err := e.Repo.ListSessions(ctx, 1)
		if err != nil {
			e.log().Warn("read session journal", "err", err)
		} else if len(sessions) > 0 {
			out.LastSession = &sessions[0]
		}
	}
	return out, nil
}

// UpdateOptions are the additions made by one update call. Zero values are skipped.
type UpdateOptions struct {
	Work     string
	Decision *domain.Decision
	Issue    *domain.Issue
}

// Update appends to the live state and logs work and decisions to the
// changelog as they happen.
func (e Engine) Update(ctx context.Context, opts UpdateOptions) (domain.State, error) {
	st, _, err := e.Start(ctx)
	if err != nil {
		return domain.State{}, err
	}
	st.LastUpdated = e.stamp()

	var entries []changelog.Entry
	if w := strings.TrimSpace(opts.Work); w != "" {
		st.ActiveWork = append(st.ActiveWork, w)
		entries = append(entries, changelog.Entry{Category: changelog.Added, Description: w, Source: e.Changelog.Sources.InProgress})
	}
	if opts.Decision != nil {
		d := statedoc.RepairDecision(*opts.Decision)
		st.Decisions = append(st.Decisions, d)
		entries = append(entries, e.Changelog.DecisionEntry(d))
	}
	if opts.Issue != nil {
		st.OutstandingIssues = append(st.OutstandingIssues, *opts.Issue)
	}

	if err := e.save(ctx, st, events.StateWrite, events.EventPayload{
		"work":     opts.Work != "",
		"decision": opts.Decision != nil,
		"issue":    opts.Issue != nil,
	}); err != nil {
		return domain.State{}, err
	}
	if err := e.appendChangelog(ctx, entries...); err != nil {
		return st, err
	}
	return st, nil
}

func (e Engine) appendChangelog(ctx context.Context, entries ...changelog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := e.Changelog.Append(entries...); err != nil {
		return err
	}
	for _, en := range entries {
		e.record(ctx, events.ChangelogAdd, "changelog", en.Category, events.EventPayload{
			"description": en.Description,
			"source":      en.Source,
		})
	}
	return nil
}

// EndResult summarizes a finished session.
type EndResult struct {
	Session domain.Session    `json:"session"`
	State   domain.State      `json:"state"`
	Entries []changelog.Entry `json:"changelog_entries"`
	Report  string            `json:"-"`
}

// End stamps and saves the state, inscribes the session into the changelog,
// writes a session report and records the session in the journal.
func (e Engine) End(ctx context.Context, nextSteps []string) (EndResult, error) {
	st, err := e.Load(ctx)
	if err != nil {
		return EndResult{}, err
	}
	now := e.now()
	st.LastUpdated = e.stamp()
	if len(nextSteps) > 0 {
		st.NextSession = append([]string(nil), nextSteps...)
	}
	if err := e.save(ctx, st, events.StateWrite, events.EventPayload{"next_steps": len(nextSteps)}); err != nil {
		return EndResult{}, err
	}

	entries, err := e.Changelog.RecordSession(st)
	if err != nil {
		return EndResult{}, err
	}
	for _, en := range entries {
		e.record(ctx, events.ChangelogAdd, "changelog", en.Category, events.EventPayload{"description": en.Description, "source": en.Source})
	}

	base, err := e.reserveReport(now.Format(reportLayout))
	if err != nil {
		return EndResult{}, err
	}
	reportPath := filepath.Join(e.Sessions, base+".md")
	report := RenderReport(st, entries)
	if err := fsutil.WriteFile(reportPath, []byte(report), 0o644); err != nil {
		os.Remove(reportPath)
		return EndResult{}, fmt.Errorf("write session report: %w", err)
	}

	sess := domain.Session{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(reportPath+"|"+st.LastUpdated)).String(),
		EndedAt:    st.LastUpdated,
		ReportPath: reportPath,
		Decisions:  len(st.Decisions),
		Issues:     len(st.OutstandingIssues),
		Entries:    len(entries),
	}
	if ok, err := schema.Validate(sess, schema.Session); !ok {
		return EndResult{}, fmt.Errorf("session record: %w", err)
	}
	sidecar, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return EndResult{}, err
	}
	if err := fsutil.WriteFile(filepath.Join(e.Sessions, base+".json"), sidecar, 0o644); err != nil {
		return EndResult{}, fmt.Errorf("write session record: %w", err)
	}
	e.recordSession(ctx, sess)

	return EndResult{Session: sess, State: st, Entries: entries, Report: report}, nil
}

// reserveReport claims a report name for stamp, suffixing it when a
// session already ended in the same second.
func (e Engine) reserveReport(stamp string) (string, error) {
	if err := os.MkdirAll(e.Sessions, 0o755); err != nil {
		return "", fmt.Errorf("create sessions dir: %w", err)
	}
	for i := 1; ; i++ {
		base := "report_" + stamp
		if i > 1 {
			base = fmt.Sprintf("%s_%d", base, i)
		}
		f, err := os.OpenFile(filepath.Join(e.Sessions, base+".md"), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			f.Close()
			return base, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("reserve session report: %w", err)
		}
	}
}

func (e Engine) recordSession(ctx context.Context, sess domain.Session) {
	if e.DB == nil {
		return
	}
	err := func() error {
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := e.Repo.InsertSessionTx(ctx, tx, sess); err != nil {
			return err
		}
		if err := e.Events.Append(ctx, tx, events.SessionEnd, "session", sess.ID, events.EventPayload{
			"report":            sess.ReportPath,
			"decisions":         sess.Decisions,
			"issues":            sess.Issues,
			"changelog_entries": sess.Entries,
		}); err != nil {
			return err
		}
		return tx.Commit()
	}()
	if err != nil {
		e.log().Warn("journal session failed", "session", sess.ID, "err", err)
	}
}

// RenderReport produces the markdown session report.
func RenderReport(st domain.State, entries []changelog.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session Report %s\n\n", st.LastUpdated)

	b.WriteString("## Work Completed\n\n")
	writeBullets(&b, st.ActiveWork)

	b.WriteString("## Decisions\n\n")
	if len(st.Decisions) == 0 {
		b.WriteString("None.\n\n")
	} else {
		tw := table.NewWriter()
		tw.AppendHeader(table.Row{"Topic", "Decision", "Risk"})
		for _, d := range st.Decisions {
			tw.AppendRow(table.Row{d.Topic, d.Decision, d.Risk})
		}
		b.WriteString(tw.RenderMarkdown() + "\n\n")
	}

	b.WriteString("## Issues\n\n")
	if len(st.OutstandingIssues) == 0 {
		b.WriteString("None.\n\n")
	} else {
		tw := table.NewWriter()
		tw.AppendHeader(table.Row{"Issue", "Severity"})
		for _, i := range st.OutstandingIssues {
			tw.AppendRow(table.Row{i.Issue, string(i.Severity)})
		}
		b.WriteString(tw.RenderMarkdown() + "\n\n")
	}

	b.WriteString("## Changelog Entries Added\n\n")
	lines := make([]string, 0, len(entries))
	for _, en := range entries {
		lines = append(lines, changelog.CategoryHeading(en.Category)+": "+en.Description)
	}
	writeBullets(&b, lines)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeBullets(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
	b.WriteString("\n")
}
