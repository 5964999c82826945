package newsletter

import "fmt"

// PlanningError means the model's output could not be reduced to a valid plan
// even after repair. Excerpt carries a bounded slice of the raw output for
// diagnostics.
type PlanningError struct {
	Reason  string
	Excerpt string
	Err     error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("planning failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("planning failed: %s", e.Reason)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// SectionWriteError means one section's generation call failed; the whole
// batch fails with it.
type SectionWriteError struct {
	Title string
	Err   error
}

func (e *SectionWriteError) Error() string {
	return fmt.Sprintf("writing section %q failed: %v", e.Title, e.Err)
}

func (e *SectionWriteError) Unwrap() error { return e.Err }

// ConsolidationError means the final edit call failed; the run aborts and
// nothing is persisted.
type ConsolidationError struct {
	Err error
}

func (e *ConsolidationError) Error() string {
	return fmt.Sprintf("consolidation failed: %v", e.Err)
}

func (e *ConsolidationError) Unwrap() error { return e.Err }
