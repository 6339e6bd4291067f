// Package jobstatus models the status of asynchronous jobs in a
// distributed job-execution system and defines how those records are
// serialized for persistence and transport.
//
// The runtime writes a fresh immutable JobStatus on every state
// transition of a job run. Serialize renders a record as a JSON
// document, deriving the run's start time and elapsed duration from a
// time-ordered (v1) job id. Deserialize reads a document back,
// resolving the serialized type name through an explicitly supplied
// jobtype.Registry to recover the lock type, which is never written to
// the wire.
//
// Everything here is synchronous and side-effect free; values are safe
// to share across goroutines without synchronization.
package jobstatus
