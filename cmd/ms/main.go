package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"morningstar/internal/app"
	"morningstar/internal/changelog"
	"morningstar/internal/domain"
	"morningstar/internal/engine"
	"morningstar/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ms",
	Short: "Morningstar session state CLI",
	Long: `Morningstar keeps a hand-editable session state document and a Keep a Changelog
style chronicle in sync across working sessions.
- State: state/current.md holds active work, decisions, issues, vindications and next steps.
- Changelog: CHANGELOG.md gains entries under [Unreleased] as work and decisions land.
- Sessions: 'ms end' stamps the state, inscribes the session and writes a report.
- Backups: snapshots of state and changelog, restorable with a safety backup first.
- Journal: every mutation is recorded in .morningstar/journal.db, view with 'ms journal tail'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(viper.GetString("workspace"))
		if err != nil {
			return err
		}
		levelName := cfg.Log.Level
		if v := viper.GetString("log-level"); v != "" {
			levelName = v
		}
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		format := cfg.Log.Format
		if v := viper.GetString("log-format"); v != "" {
			format = v
		}
		logging.Init(level, format)
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MORNINGSTAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("strict", false, "fail on any state document drift")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	for _, name := range []string{"workspace", "json", "strict", "log-level", "log-format"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(endCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(repairCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(journalCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create morningstar.yml, a fresh state document and the changelog",
		RunE: func(cmd *cobra.Command, args []string) error {
			wrote, err := app.WriteDefaultConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				st, err := e.Init(ctx, force)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				if wrote {
					fmt.Println("Wrote morningstar.yml")
				}
				fmt.Printf("Initialized %s\n", e.State.Path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing state document")
	return cmd
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Begin a session, initializing state when none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				_, created, err := e.Start(ctx)
				if err != nil {
					return err
				}
				if created && !viper.GetBool("json") {
					fmt.Println("No existing session state found. Initialized a new one.")
				}
				status, err := e.Status(ctx)
				if err != nil {
					return err
				}
				return printStatus(status)
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				status, err := e.Status(ctx)
				if err != nil {
					return err
				}
				return printStatus(status)
			})
		},
	}
}

func updateCmd() *cobra.Command {
	var work, decision, issue string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Add work, a decision or an issue to the live state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts engine.UpdateOptions
			opts.Work = work
			if decision != "" {
				d, err := parseDecisionFlag(decision)
				if err != nil {
					return err
				}
				opts.Decision = &d
			}
			if issue != "" {
				is, err := parseIssueFlag(issue)
				if err != nil {
					return err
				}
				opts.Issue = &is
			}
			if opts.Work == "" && opts.Decision == nil && opts.Issue == nil {
				return fmt.Errorf("nothing to update; pass --work, --decision or --issue")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				st, err := e.Update(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				fmt.Printf("Session state updated at %s\n", st.LastUpdated)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&work, "work", "", "work item to add")
	cmd.Flags().StringVar(&decision, "decision", "", "decision as topic:decision:risk[:rationale]")
	cmd.Flags().StringVar(&issue, "issue", "", "issue as issue:severity")
	return cmd
}

func endCmd() *cobra.Command {
	var next []string
	cmd := &cobra.Command{
		Use:   "end",
		Short: "Finish the session: stamp state, inscribe the changelog, write a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.End(ctx, next)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Println("Session finalized.")
				if n := len(res.Entries); n > 0 {
					fmt.Printf("Inscribed %d entries to the changelog.\n", n)
				}
				fmt.Printf("Report saved to %s\n", res.Session.ReportPath)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&next, "next", nil, "next session step (repeatable)")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the state document structure and schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.Validate(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					if err := printJSON(rep); err != nil {
						return err
					}
				} else {
					for _, w := range rep.Warnings {
						fmt.Println("warning:", w)
					}
					for _, v := range rep.Violations {
						fmt.Println("violation:", v)
					}
					if rep.SchemaError != "" {
						fmt.Println("schema:", rep.SchemaError)
					}
				}
				if !rep.OK() {
					return fmt.Errorf("state document is invalid; run ms repair")
				}
				if !viper.GetBool("json") {
					fmt.Println("State document is valid.")
				}
				return nil
			})
		},
	}
}

func repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Rewrite the state document in repaired canonical form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Repair(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("Repaired %s (%d violations, %d warnings)\n", e.State.Path, len(res.Fixed), len(res.Warnings))
				return nil
			})
		},
	}
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Read and write the changelog",
	}
	log.AddCommand(logShowCmd())
	log.AddCommand(logAddCmd())
	log.AddCommand(logDecideCmd())
	log.AddCommand(logVindicateCmd())
	log.AddCommand(logReleaseCmd())
	return log
}

func logShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Summarize the Unreleased section",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sum, err := e.LogShow(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(sum)
				}
				printSummary(sum)
				return nil
			})
		},
	}
}

func logAddCmd() *cobra.Command {
	var category, source string
	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Add an entry under a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				en, err := e.LogAdd(ctx, category, strings.Join(args, " "), source)
				if err != nil {
					return err
				}
				return printEntry(en)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", changelog.Added, "category: "+strings.Join(changelog.Categories, ", "))
	cmd.Flags().StringVar(&source, "source", "", "attribution")
	return cmd
}

func logDecideCmd() *cobra.Command {
	var d domain.Decision
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Record a ruling under Decided",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				en, err := e.LogDecide(ctx, d)
				if err != nil {
					return err
				}
				return printEntry(en)
			})
		},
	}
	cmd.Flags().StringVar(&d.Topic, "topic", "", "decision topic")
	cmd.Flags().StringVar(&d.Decision, "decision", "", "what was decided")
	cmd.Flags().StringVar(&d.Risk, "risk", "", "risk level")
	cmd.Flags().StringVar(&d.Rationale, "rationale", "", "rationale")
	return cmd
}

func logVindicateCmd() *cobra.Command {
	var prediction, outcome string
	cmd := &cobra.Command{
		Use:   "vindicate",
		Short: "Record a warning that came true under Warned",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				en, err := e.LogVindicate(ctx, prediction, outcome)
				if err != nil {
					return err
				}
				return printEntry(en)
			})
		},
	}
	cmd.Flags().StringVar(&prediction, "prediction", "", "what was predicted")
	cmd.Flags().StringVar(&outcome, "outcome", "", "what happened")
	return cmd
}

func logReleaseCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "release <version>",
		Short: "Version the Unreleased section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				err := e.Release(ctx, args[0], date)
				if errors.Is(err, changelog.ErrNoUnreleased) {
					fmt.Println("Nothing to release:", err)
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Printf("Released %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "release date (default today)")
	return cmd
}

func backupCmd() *cobra.Command {
	b := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot and restore state and changelog",
	}
	b.AddCommand(backupCreateCmd())
	b.AddCommand(backupListCmd())
	b.AddCommand(backupRestoreCmd())
	b.AddCommand(backupDeleteCmd())
	b.AddCommand(backupPruneCmd())
	return b
}

func backupCreateCmd() *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.BackupCreate(ctx, desc)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(b)
				}
				fmt.Printf("Backup created: %s (%d files)\n", b.Path, b.FileCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&desc, "description", "d", "", "backup description")
	return cmd
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.BackupList(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				if len(list) == 0 {
					fmt.Println("No backups found.")
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Name", "Created", "Description", "Files"})
				for i, b := range list {
					tw.AppendRow(table.Row{i + 1, b.Name, b.Timestamp, b.Description, b.FileCount})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func backupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name|index>",
		Short: "Restore a backup after taking a safety backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				restored, safety, err := e.BackupRestore(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"restored": restored, "safety_backup": safety})
				}
				fmt.Printf("Safety backup created: %s\n", safety.Path)
				fmt.Printf("Restore complete from: %s\n", restored.Name)
				return nil
			})
		},
	}
}

func backupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name|index>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.BackupDelete(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Backup deleted: %s\n", b.Name)
				return nil
			})
		},
	}
}

func backupPruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				removed, err := e.BackupPrune(ctx, keep)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(removed)
				}
				fmt.Printf("Pruned %d backups.\n", len(removed))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "backups to keep (default from config)")
	return cmd
}

func journalCmd() *cobra.Command {
	j := &cobra.Command{
		Use:   "journal",
		Short: "Mutation journal",
		Long:  "Every state, changelog, session and backup mutation is appended to the journal database.",
	}
	j.AddCommand(journalTailCmd())
	j.AddCommand(journalSessionsCmd())
	return j
}

func journalTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				evs, err := e.JournalTail(ctx, n, evtType, entityKind)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Kind", "Entity", "Payload"})
				for _, ev := range evs {
					tw.AppendRow(table.Row{ev.ID, ev.TS, ev.Type, ev.EntityKind, ev.EntityID, ev.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	return cmd
}

func journalSessionsCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List ended sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				list, err := e.SessionHistory(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(list)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Ended", "Decisions", "Issues", "Entries", "Report"})
				for _, s := range list {
					tw.AppendRow(table.Row{s.EndedAt, s.Decisions, s.Issues, s.Entries, s.ReportPath})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of sessions")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ws, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer ws.Close()
	e := ws.Engine
	if viper.GetBool("strict") {
		e.Strict = true
	}
	return fn(ctx, e)
}

func printStatus(s engine.Status) error {
	if viper.GetBool("json") {
		return printJSON(s)
	}
	st := s.State
	fmt.Printf("Last Updated: %s\n", st.LastUpdated)
	for _, w := range s.Warnings {
		fmt.Println("warning:", w)
	}

	fmt.Println("\n## Active Work")
	for _, w := range st.ActiveWork {
		fmt.Printf("- %s\n", w)
	}

	if len(st.Decisions) > 0 {
		fmt.Println("\n## Decisions")
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Topic", "Decision", "Risk", "Rationale"})
		for _, d := range st.Decisions {
			tw.AppendRow(table.Row{d.Topic, d.Decision, d.Risk, d.Rationale})
		}
		tw.Render()
	}

	fmt.Println("\n## Outstanding Issues")
	for _, is := range st.OutstandingIssues {
		fmt.Printf("- %s (%s)\n", is.Issue, is.Severity)
	}

	if len(st.NextSession) > 0 {
		fmt.Println("\n## Next Session")
		for _, n := range st.NextSession {
			fmt.Printf("- %s\n", n)
		}
	}
	if s.Unreleased.Total() > 0 {
		fmt.Printf("\nUnreleased changelog entries: %d\n", s.Unreleased.Total())
	}
	if s.LastSession != nil {
		fmt.Printf("Last session ended %s (%s)\n", s.LastSession.EndedAt, s.LastSession.ReportPath)
	}
	return nil
}

func printSummary(sum changelog.Summary) {
	if len(sum) == 0 {
		fmt.Println("No unreleased entries.")
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Category", "Entry"})
	for _, c := range sum {
		for _, en := range c.Entries {
			tw.AppendRow(table.Row{c.Category, en})
		}
	}
	tw.Render()
}

func printEntry(en changelog.Entry) error {
	if viper.GetBool("json") {
		return printJSON(en)
	}
	fmt.Printf("Added to %s: %s\n", changelog.CategoryHeading(en.Category), changelog.FormatEntry(en.Description, en.Source))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
