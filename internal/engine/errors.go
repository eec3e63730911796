package engine

import "fmt"

// ConfigurationError reports invalid construction arguments. It is raised
// before anything runs and is never retried.
type ConfigurationError struct {
	Job    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Job == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Job, e.Reason)
}

// MappingError reports that one source record could not be turned into a
// destination record.
type MappingError struct {
	Field  string
	Record *Record
	Err    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping field %q from %s: %v", e.Field, e.Record, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure of the source, writer or fixup collaborator.
type PersistenceError struct {
	Op    string // count, read, begin, bulk write, commit, fixup
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s on %s failed: %v", e.Op, e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
