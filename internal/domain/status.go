package domain

// Status tags the outcome of a public learning operation. Component-local
// failures are converted into one of these at the narrowest scope instead of
// propagating raw errors across the orchestrator boundary.
type Status string

const (
	// StatusSuccess - the operation completed and produced a usable result.
	StatusSuccess Status = "success"
	// StatusInsufficientData - too few rows/tasks; the caller may retry with more data.
	StatusInsufficientData Status = "insufficient_data"
	// StatusNoPriorKnowledge - meta/transfer was invoked before any learning happened.
	StatusNoPriorKnowledge Status = "no_meta_knowledge"
	// StatusNoModels - the model pool is empty.
	StatusNoModels Status = "no_models_available"
	// StatusCandidateFailed - a single estimator/architecture candidate errored.
	// Absorbed and logged; never aborts a search.
	StatusCandidateFailed Status = "candidate_evaluation_failure"
	// StatusPersistenceFailed - a model could not be written or read. Surfaced
	// to the caller without corrupting in-memory state.
	StatusPersistenceFailed Status = "persistence_failure"
	// StatusFailed - any other unexpected failure, surfaced with a message.
	StatusFailed Status = "failed"
)

// OK reports whether the status represents a successful outcome.
func (s Status) OK() bool {
	return s == StatusSuccess
}
