package entity

import "github.com/google/uuid"

type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// SourceEvent is one change notification on a notebook's feed. Record is the
// full row after the change; for deletes only Id and NotebookId are set.
type SourceEvent struct {
	Kind   ChangeKind `json:"kind"`
	Record Source     `json:"record"`
}

func (e SourceEvent) NotebookId() uuid.UUID {
	return e.Record.NotebookId
}
