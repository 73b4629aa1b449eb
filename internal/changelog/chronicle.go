package changelog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"morningstar/internal/domain"
	"morningstar/internal/fsutil"
)

// Sources are the attributions written after derived entries.
type Sources struct {
	Court      string `yaml:"court"`
	Prophet    string `yaml:"prophet"`
	Vindicated string `yaml:"vindicated"`
	InProgress string `yaml:"in_progress"`
}

// DefaultSources returns the stock attributions.
func DefaultSources() Sources {
	return Sources{
		Court:      "The Court",
		Prophet:    "The Prophet",
		Vindicated: "The Prophet, Vindicated",
		InProgress: "Session in progress",
	}
}

// Chronicle is a changelog document on disk.
type Chronicle struct {
	Path    string
	Sources Sources
	Now     func() time.Time
}

func New(path string) *Chronicle {
	return &Chronicle{Path: path, Sources: DefaultSources(), Now: time.Now}
}

func (c *Chronicle) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Read returns the changelog text, creating it from Boilerplate when absent.
func (c *Chronicle) Read() (string, error) {
	data, err := os.ReadFile(c.Path)
	if err == nil {
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("read changelog: %w", err)
	}
	if err := c.write(Boilerplate); err != nil {
		return "", err
	}
	return Boilerplate, nil
}

func (c *Chronicle) write(text string) error {
	if err := fsutil.WriteFile(c.Path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write changelog: %w", err)
	}
	return nil
}

// Entry is one pending insertion.
type Entry struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Source      string `json:"source,omitempty"`
}

// Append applies entries in order and writes the document once.
func (c *Chronicle) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	text, err := c.Read()
	if err != nil {
		return err
	}
	for _, e := range entries {
		text = AddEntry(text, e.Category, e.Description, e.Source)
	}
	return c.write(text)
}

// AddEntry records a single entry.
func (c *Chronicle) AddEntry(category, description, source string) error {
	return c.Append(Entry{Category: category, Description: description, Source: source})
}

// AddDecision records a ruling under Decided.
func (c *Chronicle) AddDecision(d domain.Decision) error {
	return c.Append(c.DecisionEntry(d))
}

// AddVindication records a warning that came true under Warned.
func (c *Chronicle) AddVindication(prediction, outcome string) error {
	return c.Append(c.VindicationEntry(prediction, outcome))
}

// AddWorkCompleted records finished work items under Added.
func (c *Chronicle) AddWorkCompleted(items []string, sessionID string) error {
	source := "Session"
	if sessionID != "" {
		source += " " + sessionID
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, Entry{Category: Added, Description: it, Source: source})
	}
	return c.Append(entries...)
}

// Release versions the Unreleased section. An empty date means today.
func (c *Chronicle) Release(version, date string) error {
	if strings.TrimSpace(version) == "" {
		return fmt.Errorf("version is required")
	}
	if date == "" {
		date = c.now().Format(time.DateOnly)
	}
	text, err := c.Read()
	if err != nil {
		return err
	}
	out, err := Release(text, version, date)
	if err != nil {
		return err
	}
	return c.write(out)
}

// Summary returns the Unreleased entries grouped by category.
func (c *Chronicle) Summary() (Summary, error) {
	text, err := c.Read()
	if err != nil {
		return nil, err
	}
	return SummarizeUnreleased(text), nil
}

func (c *Chronicle) DecisionEntry(d domain.Decision) Entry {
	topic, decision, risk := orUnknown(d.Topic), orUnknown(d.Decision), orUnknown(d.Risk)
	desc := fmt.Sprintf("**%s**: %s — *Risk: %s*", topic, decision, risk)
	if r := strings.TrimSpace(d.Rationale); r != "" && r != domain.DefaultRationale {
		desc = fmt.Sprintf("**%s**: %s — *Risk: %s. %s*", topic, decision, risk, r)
	}
	return Entry{Category: Decided, Description: desc, Source: c.Sources.Court}
}

func (c *Chronicle) VindicationEntry(prediction, outcome string) Entry {
	desc := fmt.Sprintf("The Prophet warned of *\"%s\"* — and so it came to pass: %s", prediction, outcome)
	return Entry{Category: Warned, Description: desc, Source: c.Sources.Vindicated}
}

// SessionEntries derives changelog entries from a state at session end:
// every decision, every prophet vindication, and every work item except
// initialization chores.
func (c *Chronicle) SessionEntries(st domain.State) []Entry {
	var entries []Entry
	for _, d := range st.Decisions {
		entries = append(entries, c.DecisionEntry(d))
	}
	for _, v := range st.ProphetVindications {
		if prediction, outcome, ok := strings.Cut(v, " — "); ok {
			entries = append(entries, c.VindicationEntry(prediction, outcome))
			continue
		}
		entries = append(entries, Entry{Category: Warned, Description: v, Source: c.Sources.Prophet})
	}
	marker := st.LastUpdated
	if len(marker) >= 10 {
		marker = marker[:10]
	}
	for _, w := range st.ActiveWork {
		if w == "" || strings.HasPrefix(strings.ToLower(w), "initialize") {
			continue
		}
		entries = append(entries, Entry{Category: Added, Description: w, Source: "Session " + marker})
	}
	return entries
}

// RecordSession appends the session's derived entries and returns them.
func (c *Chronicle) RecordSession(st domain.State) ([]Entry, error) {
	entries := c.SessionEntries(st)
	if err := c.Append(entries...); err != nil {
		return nil, err
	}
	return entries, nil
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return domain.Unknown
	}
	return s
}
