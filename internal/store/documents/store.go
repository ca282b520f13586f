// internal/store/documents/store.go

// Package documents provides a schemaless collection-of-documents store.
// Documents are JSON-like maps addressed by (collection, id); a field
// holding explicit null is distinct from an absent field, and both are
// preserved through every operation.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Document is a schemaless JSON document.
type Document map[string]interface{}

var (
	// ErrNotFound is returned when no document exists for (collection, id).
	ErrNotFound = errors.New("document not found")

	// ErrPermissionDenied is returned when the store rejects the caller's
	// access. Callers treat it specially (see the history cooldown).
	ErrPermissionDenied = errors.New("permission denied")
)

// OpKind discriminates batch operations.
type OpKind string

const (
	OpSet    OpKind = "set"
	OpDelete OpKind = "delete"
)

// BatchOp is one entry of an atomic multi-document write.
type BatchOp struct {
	Kind       OpKind
	Collection string
	ID         string
	Data       Document
}

// Set builds a create-or-replace batch entry.
func Set(collection, id string, data Document) BatchOp {
	return BatchOp{Kind: OpSet, Collection: collection, ID: id, Data: data}
}

// Remove builds a delete batch entry.
func Remove(collection, id string) BatchOp {
	return BatchOp{Kind: OpDelete, Collection: collection, ID: id}
}

// Store is the remote document store collaborator.
type Store interface {
	// Get fetches a document by id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Create inserts a new document.
	Create(ctx context.Context, collection, id string, doc Document) error

	// Patch shallow-merges fields into an existing document. Keys present
	// in fields overwrite; keys absent from fields are untouched; an
	// explicit null value clears the field without removing it.
	Patch(ctx context.Context, collection, id string, fields Document) error

	// SetPath writes value at a nested path inside an existing document,
	// leaving every sibling untouched. A nil value is stored as explicit
	// null, not removed.
	SetPath(ctx context.Context, collection, id string, path []string, value interface{}) error

	// AppendToArray appends value to the array at a nested path,
	// creating the array when absent. The append happens in the store,
	// so concurrent appends to the same array all land.
	AppendToArray(ctx context.Context, collection, id string, path []string, value interface{}) error

	// Delete removes a document by id. Deleting a missing document is not
	// an error.
	Delete(ctx context.Context, collection, id string) error

	// Query returns up to limit documents whose fields equal every entry
	// of filters.
	Query(ctx context.Context, collection string, filters Document, limit int) ([]Document, error)

	// Batch applies all operations atomically: either every op commits or
	// none does.
	Batch(ctx context.Context, ops []BatchOp) error
}

// Encode converts a typed value into a Document via its JSON form.
func Encode(v interface{}) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode converts a Document into a typed value via its JSON form.
func Decode(doc Document, v interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
