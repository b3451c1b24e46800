package store

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/inputsheet/internal/core"
)

// Stores bundles the three collections over one backend.
type Stores struct {
	Schemas *SchemaStore
	Records *RecordStore
	Users   *UserStore

	backend Backend
}

// Open wraps backend and seeds any collection that was never written: an
// empty record list, the default structure, and a user list holding only
// the bootstrap administrator.
func Open(ctx context.Context, backend Backend, bootstrap core.User) (*Stores, error) {
	s := &Stores{
		Schemas: &SchemaStore{doc: newDocument[core.Schema](backend, DocStructure)},
		Records: &RecordStore{doc: newDocument[[]core.Record](backend, DocInputs)},
		Users:   &UserStore{doc: newDocument[[]core.User](backend, DocUsers)},
		backend: backend,
	}

	if bootstrap.CreatedAt.IsZero() {
		bootstrap.CreatedAt = time.Now().UTC()
	}

	if err := s.Users.doc.seed(ctx, []core.User{bootstrap}); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}
	if err := s.Records.doc.seed(ctx, []core.Record{}); err != nil {
		return nil, fmt.Errorf("seed inputs: %w", err)
	}
	if err := s.Schemas.doc.seed(ctx, core.DefaultSchema()); err != nil {
		return nil, fmt.Errorf("seed structure: %w", err)
	}
	return s, nil
}

// Driver names the backend in use.
func (s *Stores) Driver() string {
	return s.backend.Driver()
}

// SchemaStore holds the single current schema.
type SchemaStore struct {
	doc *document[core.Schema]
}

// Schema returns the current schema.
func (s *SchemaStore) Schema(ctx context.Context) (core.Schema, error) {
	return s.doc.load(ctx)
}

// ReplaceSchema overwrites the current schema.
func (s *SchemaStore) ReplaceSchema(ctx context.Context, schema core.Schema) error {
	return s.doc.replace(ctx, schema)
}

// RecordStore is the append-only list of input records.
type RecordStore struct {
	doc *document[[]core.Record]
}

// Append adds rec at the end of the list.
func (s *RecordStore) Append(ctx context.Context, rec core.Record) error {
	return s.doc.update(ctx, func(records *[]core.Record) error {
		*records = append(*records, rec)
		return nil
	})
}

// ListAll returns every record in append order.
func (s *RecordStore) ListAll(ctx context.Context) ([]core.Record, error) {
	records, err := s.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

// ListByItemA returns the records for one item in append order.
func (s *RecordStore) ListByItemA(ctx context.Context, itemAID string) ([]core.Record, error) {
	records, err := s.doc.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, 0)
	for _, rec := range records {
		if rec.ItemAID == itemAID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// UserStore is the user list keyed by username.
type UserStore struct {
	doc *document[[]core.User]
}

// ListUsers returns users in creation order.
func (s *UserStore) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.doc.load(ctx)
}

// GetUser returns a *core.NotFoundError for an unknown username.
func (s *UserStore) GetUser(ctx context.Context, username string) (core.User, error) {
	users, err := s.doc.load(ctx)
	if err != nil {
		return core.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, &core.NotFoundError{Kind: "user", Key: username}
}

// CreateUser returns a *core.ConflictError when the username is taken.
func (s *UserStore) CreateUser(ctx context.Context, user core.User) error {
	return s.doc.update(ctx, func(users *[]core.User) error {
		for _, u := range *users {
			if u.Username == user.Username {
				return &core.ConflictError{Kind: "user", Key: user.Username}
			}
		}
		*users = append(*users, user)
		return nil
	})
}

// DeleteUser returns a *core.NotFoundError for an unknown username.
func (s *UserStore) DeleteUser(ctx context.Context, username string) error {
	return s.doc.update(ctx, func(users *[]core.User) error {
		for i, u := range *users {
			if u.Username == username {
				*users = append((*users)[:i], (*users)[i+1:]...)
				return nil
			}
		}
		return &core.NotFoundError{Kind: "user", Key: username}
	})
}

// SetPasswordHash returns a *core.NotFoundError for an unknown username.
func (s *UserStore) SetPasswordHash(ctx context.Context, username, hash string) error {
	return s.doc.update(ctx, func(users *[]core.User) error {
		for i := range *users {
			if (*users)[i].Username == username {
				(*users)[i].PasswordHash = hash
				return nil
			}
		}
		return &core.NotFoundError{Kind: "user", Key: username}
	})
}
