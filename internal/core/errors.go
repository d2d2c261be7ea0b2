package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock held by another run")
)

// ExtractionParseError means the oracle answered but not with a usable
// JSON array. The chunk contributes nothing.
type ExtractionParseError struct {
	ChunkID string
	Cause   error
}

func (e *ExtractionParseError) Error() string {
	return fmt.Sprintf("parse extraction for %s: %v", e.ChunkID, e.Cause)
}

func (e *ExtractionParseError) Unwrap() error { return e.Cause }

// OracleCallError wraps transport, quota and timeout failures of the oracle.
type OracleCallError struct {
	ChunkID string
	Cause   error
}

func (e *OracleCallError) Error() string {
	return fmt.Sprintf("oracle call for %s: %v", e.ChunkID, e.Cause)
}

func (e *OracleCallError) Unwrap() error { return e.Cause }

// PersistenceError is a failed write of a single entry or bucket.
type PersistenceError struct {
	Op    string
	Key   string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// SchemaInitError aborts a run before any chunk is processed.
type SchemaInitError struct {
	Cause error
}

func (e *SchemaInitError) Error() string {
	return fmt.Sprintf("schema init: %v", e.Cause)
}

func (e *SchemaInitError) Unwrap() error { return e.Cause }
