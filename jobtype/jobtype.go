// Package jobtype describes the kinds of jobs the runtime executes and
// resolves wire-level type names back into full descriptors.
package jobtype

// LockType identifies the mutual-exclusion resource a job type needs
// from the lock manager. Opaque to this package; the lock manager
// gives it meaning.
type LockType string

// SupervisorLock is the lock category reserved for the supervisor job.
const SupervisorLock LockType = "job-supervisor"

// JobType pairs a unique type name with the lock its jobs run under.
// Identity is by Name only; Lock is metadata for the lock manager and
// is never serialized.
type JobType struct {
	Name string
	Lock LockType
}

// Supervisor is the reserved built-in type. Every Registry resolves it
// regardless of the candidates it was built from.
var Supervisor = JobType{Name: "supervisor", Lock: SupervisorLock}

// Registry is an immutable set of job types, built once at config-load
// time. Safe for concurrent lookups; there is no mutation API.
type Registry struct {
	types []JobType
}

// NewRegistry builds a registry holding the supplied candidates with
// Supervisor appended last. Construction never fails; duplicate names
// are kept as-is and resolve first-match-wins.
func NewRegistry(candidates ...JobType) Registry {
	types := make([]JobType, 0, len(candidates)+1)
	types = append(types, candidates...)
	types = append(types, Supervisor)
	return Registry{types: types}
}

// Resolve returns the first registered type whose name matches the
// argument exactly (case-sensitive).
func (r Registry) Resolve(name string) (JobType, bool) {
	for _, t := range r.types {
		if t.Name == name {
			return t, true
		}
	}
	return JobType{}, false
}

// All returns a copy of the registered types in resolution order.
func (r Registry) All() []JobType {
	out := make([]JobType, len(r.types))
	copy(out, r.types)
	return out
}
