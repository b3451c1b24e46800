// Package store persists the three JSON collections (users, input records,
// structure) behind a small document backend.
//
// Each collection is one JSON document that is read whole and rewritten whole
// on every mutation. A per-collection mutex serializes read-modify-write
// cycles inside the process, so concurrent appends are not lost.
package store

import (
	"context"
	"errors"
)

// Document names.
const (
	DocUsers     = "users"
	DocInputs    = "inputs"
	DocStructure = "structure"
)

// ErrNotExist is returned by a Backend when a document has never been written.
var ErrNotExist = errors.New("document does not exist")

// Backend reads and writes whole JSON documents by name.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Driver() string
}
