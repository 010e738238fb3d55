package service

import (
	"errors"
	"fmt"

	"notebook-sources-be/internal/repository/contract"

	"github.com/google/uuid"
)

var (
	// ErrUnauthenticated: no caller on the request. Never retried.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrGenerationInProgress is returned by RequestGeneration when another
	// call already holds the notebook. It is expected under racing triggers
	// and is only ever logged.
	ErrGenerationInProgress = errors.New("generation already in progress")

	ErrSourceNotFound = contract.ErrSourceNotFound

	ErrNotebookNotFound = errors.New("notebook not found")

	ErrInvalidSource = errors.New("invalid source")
)

// StoreError wraps a failed read or write against the remote store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// JobInvocationError is a failed generation job. By the time a caller sees it
// the notebook's guard key has been released.
type JobInvocationError struct {
	NotebookId uuid.UUID
	Err        error
}

func (e *JobInvocationError) Error() string {
	return fmt.Sprintf("generation for notebook %s failed: %v", e.NotebookId, e.Err)
}

func (e *JobInvocationError) Unwrap() error {
	return e.Err
}
