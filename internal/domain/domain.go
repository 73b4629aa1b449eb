package domain

// Placeholders written into fields that could not be recovered from a document.
const (
	Unknown          = "Unknown"
	DefaultRationale = "See logs"
	SeedWorkItem     = "Initialize system"
)

// WorkItem is a free-text description of in-progress work.
type WorkItem = string

// Vindication records a prediction that came true.
type Vindication = string

type Dissent struct {
	Participant string `json:"participant"`
	Opinion     string `json:"opinion"`
}

type Decision struct {
	Topic     string            `json:"topic"`
	Decision  string            `json:"decision"`
	Rationale string            `json:"rationale"`
	Risk      string            `json:"risk"`
	Votes     map[string]string `json:"votes,omitempty"`
	Dissents  []Dissent         `json:"dissents,omitempty"`
}

type Issue struct {
	Issue    string   `json:"issue"`
	Severity Severity `json:"severity" enum:"Low,Medium,High,Critical"`
}

// DissentVindication is either a raw line (Raw set) or a structured record.
type DissentVindication struct {
	Raw              string `json:"raw,omitempty"`
	OriginalDecision string `json:"original_decision,omitempty"`
	Dissenter        string `json:"dissenter,omitempty"`
	Prediction       string `json:"prediction,omitempty"`
	Outcome          string `json:"outcome,omitempty"`
}

// Structured reports whether the vindication carries parsed fields rather than raw text.
func (d DissentVindication) Structured() bool {
	return d.Raw == "" && (d.OriginalDecision != "" || d.Dissenter != "" || d.Prediction != "" || d.Outcome != "")
}

// State is the session state document aggregate.
type State struct {
	LastUpdated         string               `json:"lastUpdated" format:"date-time"`
	ActiveWork          []WorkItem           `json:"activeWork"`
	Decisions           []Decision           `json:"decisions"`
	OutstandingIssues   []Issue              `json:"outstandingIssues"`
	ProphetVindications []Vindication        `json:"prophetVindications"`
	DissentVindications []DissentVindication `json:"dissentVindications"`
	NextSession         []string             `json:"nextSession"`
	ParseWarnings       []string             `json:"-"`
}

// NewState returns an empty state with every list present.
func NewState(lastUpdated string) State {
	return State{
		LastUpdated:         lastUpdated,
		ActiveWork:          []WorkItem{},
		Decisions:           []Decision{},
		OutstandingIssues:   []Issue{},
		ProphetVindications: []Vindication{},
		DissentVindications: []DissentVindication{},
		NextSession:         []string{},
	}
}
