package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// document is one JSON collection with its lock.
type document[T any] struct {
	backend Backend
	name    string

	mu sync.Mutex
}

func newDocument[T any](backend Backend, name string) *document[T] {
	return &document[T]{backend: backend, name: name}
}

// seed writes v when the document does not exist yet.
func (d *document[T]) seed(ctx context.Context, v T) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.backend.Read(ctx, d.name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotExist) {
		return err
	}
	return d.write(ctx, v)
}

// load returns the current document.
func (d *document[T]) load(ctx context.Context) (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read(ctx)
}

// update runs fn on the current document and writes the result back. When
// fn returns an error nothing is written.
func (d *document[T]) update(ctx context.Context, fn func(*T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.read(ctx)
	if err != nil {
		return err
	}
	if err := fn(&v); err != nil {
		return err
	}
	return d.write(ctx, v)
}

// replace overwrites the document with v.
func (d *document[T]) replace(ctx context.Context, v T) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(ctx, v)
}

func (d *document[T]) read(ctx context.Context) (T, error) {
	var v T
	data, err := d.backend.Read(ctx, d.name)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", d.name, err)
	}
	return v, nil
}

func (d *document[T]) write(ctx context.Context, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.name, err)
	}
	return d.backend.Write(ctx, d.name, data)
}
