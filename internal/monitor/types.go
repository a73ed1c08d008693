package monitor

import "time"

// Observation is one recorded availability count in the history log.
type Observation struct {
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp"`
	URL       string `json:"url"`
}

// Page is the rendered document returned by a Fetcher.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	HTML       []byte
	Duration   time.Duration
	Engine     string
}

// Reading is the result of extracting the availability count from a page.
// Found is false when the marker phrase is absent; a found marker without a
// number yields Found=true and Count=0.
type Reading struct {
	Count int
	Found bool
	Label string
}

// Message is a change notification handed to a Notifier.
type Message struct {
	Subject    string
	Body       string
	Recipients []string
	Previous   int
	Current    int
	URL        string
	ObservedAt time.Time
}

// Outcome classifies what a single poll cycle did.
type Outcome string

// Poll cycle outcomes.
const (
	OutcomeFetchFailed    Outcome = "fetch_failed"
	OutcomeExtractionMiss Outcome = "extraction_miss"
	OutcomeFirstReading   Outcome = "first_reading"
	OutcomeUnchanged      Outcome = "unchanged"
	OutcomeChanged        Outcome = "changed"
	OutcomePanic          Outcome = "panic"
)

// Recorded reports whether the outcome appends an observation to the history.
func (o Outcome) Recorded() bool {
	return o == OutcomeFirstReading || o == OutcomeChanged
}
