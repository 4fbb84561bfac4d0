// Package notam defines the persisted record types and Q-code reference
// tables shared by the parser, classifier, scorer and store.
package notam

import "time"

// Kind distinguishes the three NOTAM message kinds ICAO Annex 15 defines.
type Kind string

const (
	KindNew     Kind = "NEW"
	KindReplace Kind = "REPLACE"
	KindCancel  Kind = "CANCEL"
)

// Flags holds the four boolean predicates the classifier computes once per
// record and the store persists alongside it.
type Flags struct {
	IsClosure      bool
	IsDroneRelated bool
	IsRestriction  bool
	IsTrigger      bool
}

// Notam is the materialized, fully-decoded record persisted by the store.
// Every field is set once during ingestion (parse, classify, score, then
// the store's audit timestamps); nothing is recomputed lazily on read.
type Notam struct {
	// Identity
	ID     string // e.g. "A3097/25"
	Series string // single uppercase letter extracted from ID
	Number int
	Year   int

	// Kind
	Kind       Kind
	ReplacesID string // set iff Kind == KindReplace
	CancelsID  string // set iff Kind == KindCancel

	// Q-line
	FIR         string
	QCode       string
	QSubject    string // decoded letters 2-3
	QCondition  string // decoded letters 4-5
	Traffic     string
	Purpose     string
	Scope       string
	LowerLimit  *int
	UpperLimit  *int
	Coordinates string
	Latitude    *float64
	Longitude   *float64
	RadiusNM    *int

	// Lettered fields
	Location        string // A)
	ValidFrom       time.Time // B)
	ValidTo         *time.Time // C), nil means unknown or PERM
	IsPermanent     bool
	Schedule        string // D)
	Body            string // E), HTML-decoded
	LowerLimitText  string // F)
	UpperLimitText  string // G)

	// Source / envelope passthrough
	AirportCode   string
	AirportName   string
	IssueDate     time.Time
	Source        string
	SourceType    string
	TransactionID string
	HasHistory    bool
	RawICAOMessage string

	// Derived
	SearchTerm    string
	Flags
	PriorityScore int

	// Audit
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchMode is the scheduler mode a SearchRun was taken under.
type SearchMode string

const (
	ModeAerodrome SearchMode = "aerodrome"
	ModeSearch    SearchMode = "search"
)

// SearchRun is one immutable audit row for a completed scheduler cycle.
type SearchRun struct {
	ID           int64
	Mode         SearchMode
	SearchTerm   string // nullable
	AirportCodes string // nullable, comma-separated
	TotalFetched int
	NewInserted  int
	Updated      int
	RunAt        time.Time
}
