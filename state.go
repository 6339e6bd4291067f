package jobstatus

import "fmt"

// JobState is the lifecycle phase of a job run.
type JobState string

const (
	StateRunning        JobState = "Running"
	StatePreparing      JobState = "Preparing"
	StateFinished       JobState = "Finished"
	StateFailed         JobState = "Failed"
	StateCanceled       JobState = "Canceled"
	StateDead           JobState = "Dead"
	StateWarning        JobState = "Warning"
	StateSkipped        JobState = "Skipped"
	StateNoActionNeeded JobState = "NoActionNeeded"
)

// JobResult is the terminal-or-projected outcome of a job run.
type JobResult string

const (
	ResultPending JobResult = "Pending"
	ResultSuccess JobResult = "Success"
	ResultFailed  JobResult = "Failed"
)

// States lists every JobState.
var States = []JobState{
	StateRunning,
	StatePreparing,
	StateFinished,
	StateFailed,
	StateCanceled,
	StateDead,
	StateWarning,
	StateSkipped,
	StateNoActionNeeded,
}

// stateResults must stay total over States; adding a state without
// extending this table is rejected at package init.
var stateResults = map[JobState]JobResult{
	StateRunning:        ResultPending,
	StatePreparing:      ResultPending,
	StateFinished:       ResultSuccess,
	StateFailed:         ResultFailed,
	StateCanceled:       ResultFailed,
	StateDead:           ResultFailed,
	StateWarning:        ResultSuccess,
	StateSkipped:        ResultSuccess,
	StateNoActionNeeded: ResultSuccess,
}

func init() {
	if len(stateResults) != len(States) {
		panic(fmt.Sprintf("jobstatus: result table has %d entries for %d states", len(stateResults), len(States)))
	}
	for _, s := range States {
		if _, ok := stateResults[s]; !ok {
			panic(fmt.Sprintf("jobstatus: state %q has no result mapping", s))
		}
	}
}

// ResultFor returns the outcome a state projects to. The mapping is
// total over States; calling it with an unmapped state is a
// configuration defect and panics rather than guessing a default.
func ResultFor(s JobState) JobResult {
	r, ok := stateResults[s]
	if !ok {
		panic(fmt.Sprintf("jobstatus: no result mapping for state %q", s))
	}
	return r
}

// ParseJobState maps a wire tag to its JobState. Exact, case-sensitive.
func ParseJobState(s string) (JobState, bool) {
	st := JobState(s)
	_, ok := stateResults[st]
	return st, ok
}

// ParseJobResult maps a wire tag to its JobResult.
func ParseJobResult(s string) (JobResult, bool) {
	switch r := JobResult(s); r {
	case ResultPending, ResultSuccess, ResultFailed:
		return r, true
	}
	return "", false
}
