package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SchemaStore holds the single current schema.
type SchemaStore interface {
	Schema(ctx context.Context) (Schema, error)
	ReplaceSchema(ctx context.Context, schema Schema) error
}

// RecordStore is the append-only list of input records.
type RecordStore interface {
	Append(ctx context.Context, rec Record) error
	ListAll(ctx context.Context) ([]Record, error)
	ListByItemA(ctx context.Context, itemAID string) ([]Record, error)
}

// UserStore is the user collection keyed by username.
type UserStore interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, user User) error
	DeleteUser(ctx context.Context, username string) error
	SetPasswordHash(ctx context.Context, username, hash string) error
}

// ReportRenderer turns a schema and records into PDF bytes.
type ReportRenderer interface {
	RenderItem(schema Schema, records []Record, itemAID string) ([]byte, error)
	RenderAll(schema Schema, records []Record) ([]byte, error)
}

// SchemaImporter parses an uploaded file into a replacement schema.
type SchemaImporter interface {
	Import(path, filename string) (Schema, error)
}

// Deps are the collaborators a Service is built from.
type Deps struct {
	Schemas  SchemaStore
	Records  RecordStore
	Users    UserStore
	Renderer ReportRenderer
	Importer SchemaImporter
}

// Options tune a Service.
type Options struct {
	OutputDir     string        // where generated PDFs are written
	MaxConcurrent int           // parallel import/render jobs
	MaxWait       time.Duration // wait for a job slot before ErrTooManyJobs
}

// Service provides the business logic behind the HTTP API.
type Service struct {
	schemas  SchemaStore
	records  RecordStore
	users    UserStore
	renderer ReportRenderer
	importer SchemaImporter

	outputDir string
	limiter   *SlotLimiter
	now       func() time.Time
	newID     func() (string, error)
}

// NewService creates a Service and its output directory.
func NewService(deps Deps, opts Options) (*Service, error) {
	if deps.Schemas == nil || deps.Records == nil || deps.Users == nil {
		return nil, fmt.Errorf("new service: stores are required")
	}
	if deps.Renderer == nil || deps.Importer == nil {
		return nil, fmt.Errorf("new service: renderer and importer are required")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("new service: output dir is required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &Service{
		schemas:   deps.Schemas,
		records:   deps.Records,
		users:     deps.Users,
		renderer:  deps.Renderer,
		importer:  deps.Importer,
		outputDir: opts.OutputDir,
		limiter:   NewSlotLimiter(opts.MaxConcurrent, opts.MaxWait),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     newRecordID,
	}, nil
}

// newRecordID returns a time-ordered UUIDv7.
func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	return id.String(), nil
}

// BootstrapAdmin builds the initial main administrator account.
func BootstrapAdmin(password string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return User{
		Username:     BootstrapUsername,
		PasswordHash: hash,
		Role:         RoleMainAdmin,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// =============================================================================
// Users
// =============================================================================

// Authenticate checks credentials and returns the user's public view.
func (s *Service) Authenticate(ctx context.Context, username, password string) (UserInfo, error) {
	user, err := s.users.GetUser(ctx, username)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return UserInfo{}, ErrInvalidCredentials
		}
		return UserInfo{}, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return UserInfo{}, ErrInvalidCredentials
	}
	return user.Info(), nil
}

// ListUsers returns every user without password hashes.
func (s *Service) ListUsers(ctx context.Context) ([]UserInfo, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserInfo, len(users))
	for i, u := range users {
		out[i] = u.Info()
	}
	return out, nil
}

// CreateUser adds an account. An empty role defaults to sub_admin.
func (s *Service) CreateUser(ctx context.Context, username, password string, role Role) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return &ValidationError{Message: "username and password are required"}
	}
	if role == "" {
		role = RoleSubAdmin
	}
	if !role.Valid() {
		return &ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	if err := s.users.CreateUser(ctx, User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}); err != nil {
		return err
	}

	slog.Info("user created", "username", username, "role", role, "actor", actorFromContext(ctx), "ip", GetIPAddressFromContext(ctx))
	return nil
}

// DeleteUser removes an account. The bootstrap administrator is protected.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	if username == BootstrapUsername {
		return ErrProtectedUser
	}
	if err := s.users.DeleteUser(ctx, username); err != nil {
		return err
	}
	slog.Info("user deleted", "username", username, "actor", actorFromContext(ctx), "ip", GetIPAddressFromContext(ctx))
	return nil
}

// ChangePassword replaces a user's password.
func (s *Service) ChangePassword(ctx context.Context, username, password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Message: "password is required"}
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, username, hash); err != nil {
		return err
	}
	slog.Info("password changed", "username", username, "actor", actorFromContext(ctx), "ip", GetIPAddressFromContext(ctx))
	return nil
}

// =============================================================================
// Structure
// =============================================================================

// Structure returns the current schema.
func (s *Service) Structure(ctx context.Context) (Schema, error) {
	return s.schemas.Schema(ctx)
}

// ReplaceStructure stores a manually edited schema as a whole.
func (s *Service) ReplaceStructure(ctx context.Context, schema Schema) error {
	if err := schema.Check(); err != nil {
		return err
	}
	if err := s.schemas.ReplaceSchema(ctx, schema); err != nil {
		return err
	}
	slog.Info("structure replaced",
		"sheet_name", schema.SheetName,
		"items_a", len(schema.ItemsA),
		"items_d", len(schema.ItemsD),
		"actor", actorFromContext(ctx),
		"ip", GetIPAddressFromContext(ctx),
	)
	return nil
}

// ImportStructure parses the uploaded file at tempPath and replaces the
// schema with the result. tempPath is removed whether or not the import
// succeeds.
func (s *Service) ImportStructure(ctx context.Context, tempPath, filename string) (Schema, error) {
	defer func() {
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove upload", "path", tempPath, "error", err)
		}
	}()

	if err := s.limiter.Acquire(ctx); err != nil {
		return Schema{}, err
	}
	defer s.limiter.Release()

	schema, err := s.importer.Import(tempPath, filename)
	if err != nil {
		return Schema{}, err
	}
	if err := s.schemas.ReplaceSchema(ctx, schema); err != nil {
		return Schema{}, &ImportError{Err: err}
	}

	slog.Info("structure imported",
		"file", filename,
		"sheet_name", schema.SheetName,
		"items_a", len(schema.ItemsA),
		"items_d", len(schema.ItemsD),
		"actor", actorFromContext(ctx),
		"ip", GetIPAddressFromContext(ctx),
	)
	return schema, nil
}

// =============================================================================
// Inputs
// =============================================================================

// SaveInput validates a submission against the current schema and appends
// it as a new record.
func (s *Service) SaveInput(ctx context.Context, itemAID string, inputs []Input) (Record, error) {
	schema, err := s.schemas.Schema(ctx)
	if err != nil {
		return Record{}, err
	}
	if err := ValidateInputs(schema, itemAID, inputs); err != nil {
		return Record{}, err
	}

	id, err := s.newID()
	if err != nil {
		return Record{}, err
	}
	if inputs == nil {
		inputs = []Input{}
	}
	rec := Record{
		ID:        id,
		ItemAID:   itemAID,
		Inputs:    inputs,
		CreatedAt: s.now(),
	}
	if err := s.records.Append(ctx, rec); err != nil {
		return Record{}, err
	}

	slog.Info("input saved",
		"input_id", rec.ID,
		"item_a_id", itemAID,
		"inputs", len(inputs),
		"ip", GetIPAddressFromContext(ctx),
	)
	return rec, nil
}

// ListInputs returns every record in append order.
func (s *Service) ListInputs(ctx context.Context) ([]Record, error) {
	return s.records.ListAll(ctx)
}

// ListInputsByItem returns the records for one item in append order.
func (s *Service) ListInputsByItem(ctx context.Context, itemAID string) ([]Record, error) {
	return s.records.ListByItemA(ctx, itemAID)
}

// =============================================================================
// Reports
// =============================================================================

// GenerateItemReport renders the latest record for itemAID and writes it to
// the output area. It returns a *NotFoundError when the item has no record.
func (s *Service) GenerateItemReport(ctx context.Context, itemAID string) (*Artifact, error) {
	name := "input_" + itemAID + ".pdf"
	file := "input_" + url.PathEscape(itemAID) + ".pdf"
	return s.generate(ctx, name, file, func(schema Schema, records []Record) ([]byte, error) {
		return s.renderer.RenderItem(schema, records, itemAID)
	})
}

// GenerateAllReport renders every item into one document.
func (s *Service) GenerateAllReport(ctx context.Context) (*Artifact, error) {
	return s.generate(ctx, "all_inputs.pdf", "all_inputs.pdf", s.renderer.RenderAll)
}

// generate loads both stores, renders, and persists the PDF before
// returning. name is the download name and file the name in the output
// area. The returned Artifact holds the rendered bytes, so the caller
// streams exactly what this call produced even if a later render replaces
// the file.
func (s *Service) generate(ctx context.Context, name, file string, render func(Schema, []Record) ([]byte, error)) (*Artifact, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	var (
		schema  Schema
		records []Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schema, err = s.schemas.Schema(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.records.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &RenderError{Err: err}
	}

	start := time.Now()
	data, err := render(schema, records)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil, err
		}
		return nil, &RenderError{Err: err}
	}

	path, err := s.writeArtifact(file, data)
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	artifact := &Artifact{
		Name:      name,
		Path:      path,
		Size:      int64(len(data)),
		Data:      data,
		CreatedAt: s.now(),
	}

	slog.Info("report generated",
		"file", filepath.Base(path),
		"bytes", artifact.Size,
		"duration_ms", time.Since(start).Milliseconds(),
		"ip", GetIPAddressFromContext(ctx),
	)
	return artifact, nil
}

// writeArtifact durably stores data under name in the output area and
// returns the final path.
func (s *Service) writeArtifact(name string, data []byte) (string, error) {
	path := filepath.Join(s.outputDir, name)

	tmp, err := os.CreateTemp(s.outputDir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write output file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename output file: %w", err)
	}

	return path, nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// LimiterStatus reports import/render slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForJobs blocks until in-flight imports and renders finish.
func (s *Service) WaitForJobs(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
