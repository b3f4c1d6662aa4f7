package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no document carries the given id.
var ErrNotFound = errors.New("document not found")

// Document is a single record of a collection: a backend-assigned id plus a
// free-form field set.
type Document struct {
	ID     string
	Fields map[string]any
}

// CancelFunc terminates a live subscription. It is idempotent and returns
// synchronously; a notification already in flight may still be delivered
// after it returns, so consumers must guard against late deliveries.
type CancelFunc func()

// Store exposes the collections of a document database.
type Store interface {
	Collection(name string) Collection
}

// Collection is the capability set this application consumes from the
// backend: plain CRUD, a field-equality query, and a live subscription that
// pushes the full collection snapshot on every committed change.
type Collection interface {
	Add(ctx context.Context, fields map[string]any) (string, error)
	Get(ctx context.Context, id string) (map[string]any, error)
	Update(ctx context.Context, id string, partial map[string]any) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, field string, value any) ([]Document, error)

	// Subscribe registers onChange to receive the full snapshot after every
	// committed write to the collection, starting with one initial delivery
	// of the current state. onError receives stream failures.
	Subscribe(onChange func([]Document), onError func(error)) (CancelFunc, error)
}

// Decode unmarshals the document into v, exposing the id under the "id" key
// so tagged structs can pick it up alongside the data fields.
func (d Document) Decode(v any) error {
	m := make(map[string]any, len(d.Fields)+1)
	for k, val := range d.Fields {
		m[k] = val
	}
	m["id"] = d.ID

	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding document[%s]: %w", d.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding document[%s]: %w", d.ID, err)
	}
	return nil
}

// Encode converts a tagged struct into a document field set. An "id" field,
// if present, is stripped: ids are assigned by the backend, never stored in
// the data payload.
func Encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding fields: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}

	delete(m, "id")
	return m, nil
}

// EncodePartial is Encode for update payloads built from pointer-field
// structs: fields left nil are dropped so they do not overwrite remote data.
func EncodePartial(v any) (map[string]any, error) {
	m, err := Encode(v)
	if err != nil {
		return nil, err
	}

	for k, val := range m {
		if val == nil {
			delete(m, k)
		}
	}
	return m, nil
}
