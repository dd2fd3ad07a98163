package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrTaskExists   = errors.New("task id already exists")
	ErrEmptyName    = errors.New("assignee name is empty")
	ErrInvalidLead  = errors.New("reminder lead must not be negative")
	ErrServiceClose = errors.New("task service closed")
)

// ConnectionError means remote credentials resolved but the initial handshake failed.
// It is sticky for the session; there is no retry.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("remote connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RemoteWriteError is a failed remote write after an optimistic local change.
// Local state stays as it is.
type RemoteWriteError struct {
	Op     string
	TaskID string
	Err    error
}

func (e *RemoteWriteError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }
