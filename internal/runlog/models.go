package runlog

import "time"

// Kind identifies what a run produced.
type Kind string

const (
	KindCombinations Kind = "combinations"
	KindMetadata     Kind = "metadata"
)

// Status represents the lifecycle state of a run.
type Status string

const (
	// StatusRunning marks a run in progress.
	StatusRunning Status = "running"
	// StatusCompleted marks a run that walked the whole collection.
	StatusCompleted Status = "completed"
	// StatusHalted marks a run stopped before fetching because the collection was missing.
	StatusHalted Status = "halted"
	// StatusAborted marks a run whose loop ended early on a catalog error or cancellation.
	StatusAborted Status = "aborted"
	// StatusFailed marks a run that could not write its outputs.
	StatusFailed Status = "failed"
	// StatusInterrupted marks a run left running by a process that exited.
	StatusInterrupted Status = "interrupted"
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s != StatusRunning
}

// Outcome classifies what happened to a single catalog track.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Run is one invocation of the combinations or metadata pass.
type Run struct {
	ID              string
	Kind            Kind
	Status          Status
	Collection      string
	OutputPath      string
	StartedAt       time.Time
	FinishedAt      *time.Time
	TracksSeen      int
	TracksProcessed int
	TracksSkipped   int
	TracksFailed    int
	Proposals       int
	ErrorMessage    string
}

// Duration returns the elapsed time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary carries the final counters of a run.
type Summary struct {
	Status          Status
	TracksSeen      int
	TracksProcessed int
	TracksSkipped   int
	TracksFailed    int
	Proposals       int
	ErrorMessage    string
}

// TrackOutcome records the result for one catalog track.
type TrackOutcome struct {
	RunID      string
	TrackID    string
	TrackPath  string
	Outcome    Outcome
	Reason     string
	Candidates int
	Proposals  int
	RecordedAt time.Time
}
