// Package postgres persists job status records in Postgres. It is a
// reference implementation of the persistence collaborator the status
// core expects around it: one row per status record, content as jsonb.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/flowmetal/jobstatus"
	"github.com/flowmetal/jobstatus/jobtype"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	DB        *sql.DB
	Types     jobtype.Registry
	DefaultTO time.Duration // default timeout per query
}

// NewStore wraps db. Reads resolve job_type through types, so the
// registry must cover every type name persisted in the table.
func NewStore(db *sql.DB, types jobtype.Registry) *Store {
	return &Store{DB: db, Types: types, DefaultTO: 5 * time.Second}
}

func (s *Store) Insert(ctx context.Context, st jobstatus.JobStatus) error {
	ctx, cancel := context.WithTimeout(ctx, s.DefaultTO)
	defer cancel()

	var content any // nil stays NULL
	if st.Content != nil {
		b, err := json.Marshal(st.Content)
		if err != nil {
			return fmt.Errorf("marshal content: %w", err)
		}
		content = string(b)
	}
	q := `
INSERT INTO job_status (trigger_id, job_type, job_id, job_state, job_result, job_status_ts, content)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb);
`
	_, err := s.DB.ExecContext(ctx, q,
		st.TriggerID.String(), st.JobType.Name, st.JobID.String(),
		string(st.State), string(st.Result), st.StatusTS, content)
	return err
}

// ListForJob returns a job run's status history, newest first.
func (s *Store) ListForJob(ctx context.Context, jobID uuid.UUID, limit int) ([]jobstatus.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.DefaultTO)
	defer cancel()

	limit = clampLimit(limit)
	q := `
SELECT trigger_id, job_type, job_id, job_state, job_result, job_status_ts, content
FROM job_status
WHERE job_id = $1
ORDER BY job_status_ts DESC
LIMIT $2;
`
	rows, err := s.DB.QueryContext(ctx, q, jobID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jobstatus.JobStatus
	for rows.Next() {
		st, err := s.scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Latest returns the most recent status record for a job run.
func (s *Store) Latest(ctx context.Context, jobID uuid.UUID) (*jobstatus.JobStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.DefaultTO)
	defer cancel()

	q := `
SELECT trigger_id, job_type, job_id, job_state, job_result, job_status_ts, content
FROM job_status
WHERE job_id = $1
ORDER BY job_status_ts DESC
LIMIT 1;
`
	st, err := s.scanStatus(s.DB.QueryRowContext(ctx, q, jobID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// clampLimit defaults non-positive limits and caps oversized ones so a
// caller asking for more rows never gets fewer than one asking for the
// cap.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanStatus(r rowScanner) (jobstatus.JobStatus, error) {
	var (
		triggerStr, typeName, jobStr string
		stateStr, resultStr          string
		ts                           time.Time
		content                      []byte
	)
	if err := r.Scan(&triggerStr, &typeName, &jobStr, &stateStr, &resultStr, &ts, &content); err != nil {
		return jobstatus.JobStatus{}, err
	}

	triggerID, err := uuid.Parse(triggerStr)
	if err != nil {
		return jobstatus.JobStatus{}, fmt.Errorf("parse trigger_id: %w", err)
	}
	jobID, err := uuid.Parse(jobStr)
	if err != nil {
		return jobstatus.JobStatus{}, fmt.Errorf("parse job_id: %w", err)
	}
	jt, ok := s.Types.Resolve(typeName)
	if !ok {
		return jobstatus.JobStatus{}, &jobstatus.UnknownJobTypeError{Name: typeName}
	}
	state, ok := jobstatus.ParseJobState(stateStr)
	if !ok {
		return jobstatus.JobStatus{}, &jobstatus.UnknownEnumValueError{Field: "job_state", Value: stateStr}
	}
	result, ok := jobstatus.ParseJobResult(resultStr)
	if !ok {
		return jobstatus.JobStatus{}, &jobstatus.UnknownEnumValueError{Field: "job_result", Value: resultStr}
	}

	var c any
	if len(content) > 0 {
		if err := json.Unmarshal(content, &c); err != nil {
			return jobstatus.JobStatus{}, fmt.Errorf("decode content: %w", err)
		}
	}

	return jobstatus.JobStatus{
		TriggerID: triggerID,
		JobType:   jt,
		JobID:     jobID,
		State:     state,
		Result:    result,
		StatusTS:  ts,
		Content:   c,
	}, nil
}
