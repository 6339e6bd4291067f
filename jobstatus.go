package jobstatus

import (
	"time"

	"github.com/google/uuid"

	"github.com/flowmetal/jobstatus/jobtype"
)

// JobStatus is one immutable status record of a job run. The runtime
// writes a fresh record on every state transition; JobID stays
// constant across all records belonging to one run.
type JobStatus struct {
	TriggerID uuid.UUID
	JobType   jobtype.JobType
	JobID     uuid.UUID
	State     JobState
	Result    JobResult
	StatusTS  time.Time
	Content   any
}

// New builds the status record for a state transition, deriving the
// result from the state table.
func New(triggerID uuid.UUID, jt jobtype.JobType, jobID uuid.UUID, state JobState, ts time.Time, content any) JobStatus {
	return JobStatus{
		TriggerID: triggerID,
		JobType:   jt,
		JobID:     jobID,
		State:     state,
		Result:    ResultFor(state),
		StatusTS:  ts,
		Content:   content,
	}
}

// StartTime is the instant embedded in a time-ordered (v1) job id.
// Reports false when the id carries no timestamp.
func (s JobStatus) StartTime() (time.Time, bool) {
	if s.JobID.Version() != 1 {
		return time.Time{}, false
	}
	sec, nsec := s.JobID.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), true
}

// Duration is the span from the embedded start time to StatusTS.
// Unclamped: clock skew can make it negative.
func (s JobStatus) Duration() (time.Duration, bool) {
	start, ok := s.StartTime()
	if !ok {
		return 0, false
	}
	return s.StatusTS.Sub(start), true
}
