package storage

import "context"

// CallRecord is one executed query call and whether it found anything.
type CallRecord struct {
	Text string `json:"text"`
	OK   bool   `json:"ok"`
}

// LocationRecord is one resolved bug location as persisted for audit.
type LocationRecord struct {
	RelFile          string `json:"rel_file"`
	Start            int    `json:"start"`
	End              int    `json:"end"`
	ClassName        string `json:"class_name,omitempty"`
	MethodName       string `json:"method_name,omitempty"`
	IntendedBehavior string `json:"intended_behavior"`
}

// AuditStore persists retrieval sessions for replay and inspection. It is
// observability only: retrieval semantics never depend on what is stored.
type AuditStore interface {
	// BeginSession records a new retrieval session and returns its id.
	BeginSession(ctx context.Context, projectRoot, issue string) (int64, error)

	// SaveRound upserts the serialized transcript as of the given round.
	SaveRound(ctx context.Context, sessionID int64, round int, transcriptJSON string) error

	// SaveCalls records the query calls executed in one round.
	SaveCalls(ctx context.Context, sessionID int64, round int, calls []CallRecord) error

	// SaveLocations records the final resolved bug locations of a session.
	SaveLocations(ctx context.Context, sessionID int64, locations []LocationRecord) error

	Close() error
}
