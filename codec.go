package jobstatus

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowmetal/jobstatus/jobtype"
	"github.com/flowmetal/jobstatus/timefmt"
)

// document is the wire shape of a status record. startTime and
// duration are derived at write time and never read back.
type document struct {
	TriggerID   string `json:"triggerId"`
	JobType     string `json:"jobType"`
	JobID       string `json:"jobId"`
	JobState    string `json:"jobState"`
	JobResult   string `json:"jobResult"`
	JobStatusTS string `json:"jobStatusTs"`
	Content     any    `json:"content,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	Duration    string `json:"duration,omitempty"`
}

// rawDocument keeps shape-sensitive fields raw so that missing fields
// and legacy timestamp forms can be told apart after decoding.
type rawDocument struct {
	TriggerID   *string         `json:"triggerId"`
	JobType     *string         `json:"jobType"`
	JobID       *string         `json:"jobId"`
	JobState    *string         `json:"jobState"`
	JobResult   *string         `json:"jobResult"`
	JobStatusTS json.RawMessage `json:"jobStatusTs"`
	Content     json.RawMessage `json:"content"`
}

// Serialize renders a status record as its wire document. When the job
// id is time-ordered the embedded start instant and the elapsed span
// up to StatusTS are emitted as startTime and duration; otherwise both
// fields are absent.
func Serialize(s JobStatus) ([]byte, error) {
	doc := document{
		TriggerID:   s.TriggerID.String(),
		JobType:     s.JobType.Name,
		JobID:       s.JobID.String(),
		JobState:    string(s.State),
		JobResult:   string(s.Result),
		JobStatusTS: timefmt.Write(s.StatusTS),
		Content:     s.Content,
	}
	if start, ok := s.StartTime(); ok {
		doc.StartTime = timefmt.Write(start)
		doc.Duration = timefmt.WriteDuration(s.StatusTS.Sub(start))
	}
	return json.Marshal(doc)
}

// Deserialize decodes a wire document back into a JobStatus. The
// registry recovers the lock type behind the serialized type name.
// Inbound startTime/duration fields are ignored; content, when
// present, is kept as an opaque structured value.
func Deserialize(data []byte, reg jobtype.Registry) (JobStatus, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return JobStatus{}, fmt.Errorf("decode status document: %w", err)
	}

	switch {
	case raw.TriggerID == nil:
		return JobStatus{}, &MissingFieldError{Field: "triggerId"}
	case raw.JobType == nil:
		return JobStatus{}, &MissingFieldError{Field: "jobType"}
	case raw.JobID == nil:
		return JobStatus{}, &MissingFieldError{Field: "jobId"}
	case raw.JobState == nil:
		return JobStatus{}, &MissingFieldError{Field: "jobState"}
	case raw.JobResult == nil:
		return JobStatus{}, &MissingFieldError{Field: "jobResult"}
	case len(raw.JobStatusTS) == 0 || string(raw.JobStatusTS) == "null":
		return JobStatus{}, &MissingFieldError{Field: "jobStatusTs"}
	}

	triggerID, err := uuid.Parse(*raw.TriggerID)
	if err != nil {
		return JobStatus{}, fmt.Errorf("parse triggerId: %w", err)
	}
	jobID, err := uuid.Parse(*raw.JobID)
	if err != nil {
		return JobStatus{}, fmt.Errorf("parse jobId: %w", err)
	}

	jt, ok := reg.Resolve(*raw.JobType)
	if !ok {
		return JobStatus{}, &UnknownJobTypeError{Name: *raw.JobType}
	}
	state, ok := ParseJobState(*raw.JobState)
	if !ok {
		return JobStatus{}, &UnknownEnumValueError{Field: "jobState", Value: *raw.JobState}
	}
	result, ok := ParseJobResult(*raw.JobResult)
	if !ok {
		return JobStatus{}, &UnknownEnumValueError{Field: "jobResult", Value: *raw.JobResult}
	}

	ts, err := timefmt.Read(raw.JobStatusTS)
	if err != nil {
		return JobStatus{}, fmt.Errorf("jobStatusTs: %w", err)
	}

	var content any
	if len(raw.Content) > 0 && string(raw.Content) != "null" {
		if err := json.Unmarshal(raw.Content, &content); err != nil {
			return JobStatus{}, fmt.Errorf("decode content: %w", err)
		}
	}

	return JobStatus{
		TriggerID: triggerID,
		JobType:   jt,
		JobID:     jobID,
		State:     state,
		Result:    result,
		StatusTS:  ts,
		Content:   content,
	}, nil
}
