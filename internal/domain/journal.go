package domain

// Event is one row of the mutation journal.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

// Session is an ended working session recorded in the journal.
type Session struct {
	ID         string `json:"id"`
	EndedAt    string `json:"ended_at" format:"date-time"`
	ReportPath string `json:"report_path"`
	Decisions  int    `json:"decisions"`
	Issues     int    `json:"issues"`
	Entries    int    `json:"changelog_entries"`
}

// Backup describes one backup directory.
type Backup struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
	FileCount   int    `json:"file_count"`
}
