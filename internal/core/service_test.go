package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// memStore implements SchemaStore, RecordStore and UserStore in memory.
type memStore struct {
	mu      sync.Mutex
	schema  Schema
	records []Record
	users   []User
}

func (m *memStore) Schema(context.Context) (Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schema, nil
}

func (m *memStore) ReplaceSchema(_ context.Context, s Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schema = s
	return nil
}

func (m *memStore) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) ListAll(context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record{}, m.records...), nil
}

func (m *memStore) ListByItemA(_ context.Context, id string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Record{}
	for _, r := range m.records {
		if r.ItemAID == id {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListUsers(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]User{}, m.users...), nil
}

func (m *memStore) GetUser(_ context.Context, name string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == name {
			return u, nil
		}
	}
	return User{}, &NotFoundError{Kind: "user", Key: name}
}

func (m *memStore) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return &ConflictError{Kind: "user", Key: user.Username}
		}
	}
	m.users = append(m.users, user)
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.users {
		if u.Username == name {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return nil
		}
	}
	return &NotFoundError{Kind: "user", Key: name}
}

func (m *memStore) SetPasswordHash(_ context.Context, name, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.users {
		if u.Username == name {
			m.users[i].PasswordHash = hash
			return nil
		}
	}
	return &NotFoundError{Kind: "user", Key: name}
}

// stubRenderer echoes the item id, or the record count in bulk mode.
type stubRenderer struct {
	err error
}

func (r stubRenderer) RenderItem(_ Schema, records []Record, itemAID string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if _, ok := LatestFor(records, itemAID); !ok {
		return nil, &NotFoundError{Kind: "input", Key: itemAID}
	}
	return []byte("%PDF item " + itemAID), nil
}

func (r stubRenderer) RenderAll(Schema, []Record) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF all"), nil
}

type stubImporter struct {
	schema Schema
	err    error
}

func (i stubImporter) Import(string, string) (Schema, error) {
	return i.schema, i.err
}

func newTestService(t *testing.T, renderer ReportRenderer, imp SchemaImporter) (*Service, *memStore) {
	t.Helper()

	admin, err := BootstrapAdmin("admin123")
	if err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	mem := &memStore{schema: DefaultSchema(), users: []User{admin}}

	svc, err := NewService(Deps{
		Schemas:  mem,
		Records:  mem,
		Users:    mem,
		Renderer: renderer,
		Importer: imp,
	}, Options{
		OutputDir:     t.TempDir(),
		MaxConcurrent: 1,
		MaxWait:       50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, mem
}

func TestService_SaveInput(t *testing.T) {
	svc, mem := newTestService(t, stubRenderer{}, stubImporter{})
	ctx := context.Background()

	_, err := svc.SaveInput(ctx, "A1", inputs("d_D1", "5"))
	var valErr *ValidationError
	if !errors.As(err, &valErr) || valErr.Label != "Date" {
		t.Fatalf("SaveInput() error = %v, want Date is required", err)
	}
	if len(mem.records) != 0 {
		t.Fatalf("rejected input was stored")
	}

	before := time.Now().UTC()
	rec, err := svc.SaveInput(ctx, "A1", inputs("d_D1", "5", "d_D3", "2024-05-01"))
	if err != nil {
		t.Fatalf("SaveInput() error = %v", err)
	}
	if rec.ID == "" {
		t.Error("record id is empty")
	}
	if rec.CreatedAt.Location() != time.UTC || rec.CreatedAt.Before(before.Add(-time.Second)) {
		t.Errorf("CreatedAt = %v, want a current UTC time", rec.CreatedAt)
	}

	got, _ := svc.ListInputsByItem(ctx, "A1")
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("ListInputsByItem(A1) = %+v, want the saved record", got)
	}
}

func TestService_SaveInput_UniqueIDs(t *testing.T) {
	svc, _ := newTestService(t, stubRenderer{}, stubImporter{})
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		rec, err := svc.SaveInput(ctx, "A2", inputs("d_D1", "1", "d_D3", "x"))
		if err != nil {
			t.Fatal(err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate record id %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestService_Users(t *testing.T) {
	svc, mem := newTestService(t, stubRenderer{}, stubImporter{})
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, BootstrapUsername, "admin123"); err != nil {
		t.Fatalf("Authenticate(bootstrap) error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, BootstrapUsername, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}

	if err := svc.CreateUser(ctx, "alice", "pw", ""); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	alice, _ := mem.GetUser(ctx, "alice")
	if alice.Role != RoleSubAdmin {
		t.Errorf("default role = %q, want %q", alice.Role, RoleSubAdmin)
	}
	if alice.PasswordHash == "pw" || !CheckPassword(alice.PasswordHash, "pw") {
		t.Error("password was not hashed")
	}

	var conflict *ConflictError
	if err := svc.CreateUser(ctx, "alice", "pw", ""); !errors.As(err, &conflict) {
		t.Errorf("duplicate CreateUser() error = %v, want *ConflictError", err)
	}
	var valErr *ValidationError
	if err := svc.CreateUser(ctx, "bob", "pw", "root"); !errors.As(err, &valErr) {
		t.Errorf("bad role CreateUser() error = %v, want *ValidationError", err)
	}

	if err := svc.ChangePassword(ctx, "alice", "new"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice", "new"); err != nil {
		t.Errorf("Authenticate after ChangePassword error = %v", err)
	}

	if err := svc.DeleteUser(ctx, BootstrapUsername); !errors.Is(err, ErrProtectedUser) {
		t.Errorf("DeleteUser(bootstrap) error = %v, want ErrProtectedUser", err)
	}
	if err := svc.DeleteUser(ctx, "alice"); err != nil {
		t.Errorf("DeleteUser(alice) error = %v", err)
	}
	var notFound *NotFoundError
	if err := svc.DeleteUser(ctx, "alice"); !errors.As(err, &notFound) {
		t.Errorf("second DeleteUser error = %v, want *NotFoundError", err)
	}

	users, _ := svc.ListUsers(ctx)
	if len(users) != 1 || users[0].Username != BootstrapUsername {
		t.Errorf("ListUsers() = %+v, want only the bootstrap admin", users)
	}
}

func TestService_ImportStructure_RemovesTempFile(t *testing.T) {
	imported := Schema{SheetName: "Imported", ItemsD: []FieldDef{{ID: "D1", Label: "X", Type: FieldText}}}

	tests := []struct {
		name    string
		imp     stubImporter
		wantErr bool
	}{
		{"success", stubImporter{schema: imported}, false},
		{"parse failure", stubImporter{err: &ImportError{Err: errors.New("bad file")}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mem := newTestService(t, stubRenderer{}, tt.imp)

			tmp := filepath.Join(t.TempDir(), "upload.xlsx")
			if err := os.WriteFile(tmp, []byte("data"), 0o600); err != nil {
				t.Fatal(err)
			}

			_, err := svc.ImportStructure(context.Background(), tmp, "sheet.xlsx")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ImportStructure() error = %v, wantErr %v", err, tt.wantErr)
			}
			if _, statErr := os.Stat(tmp); !os.IsNotExist(statErr) {
				t.Errorf("temp file still exists after import")
			}

			wantSheet := DefaultSheetName
			if !tt.wantErr {
				wantSheet = "Imported"
			}
			if mem.schema.SheetName != wantSheet {
				t.Errorf("sheet name = %q, want %q", mem.schema.SheetName, wantSheet)
			}
		})
	}
}

func TestService_ReplaceStructure_Checks(t *testing.T) {
	svc, _ := newTestService(t, stubRenderer{}, stubImporter{})

	bad := DefaultSchema()
	bad.ItemsD = append(bad.ItemsD, bad.ItemsD[0])

	var valErr *ValidationError
	if err := svc.ReplaceStructure(context.Background(), bad); !errors.As(err, &valErr) {
		t.Errorf("ReplaceStructure() error = %v, want *ValidationError", err)
	}
}

func TestService_GenerateItemReport(t *testing.T) {
	svc, _ := newTestService(t, stubRenderer{}, stubImporter{})
	ctx := context.Background()

	var notFound *NotFoundError
	if _, err := svc.GenerateItemReport(ctx, "A1"); !errors.As(err, &notFound) {
		t.Fatalf("GenerateItemReport() without records error = %v, want *NotFoundError", err)
	}

	if _, err := svc.SaveInput(ctx, "A1", inputs("d_D1", "5", "d_D3", "x")); err != nil {
		t.Fatal(err)
	}

	artifact, err := svc.GenerateItemReport(ctx, "A1")
	if err != nil {
		t.Fatalf("GenerateItemReport() error = %v", err)
	}
	if artifact.Name != "input_A1.pdf" {
		t.Errorf("Name = %q, want input_A1.pdf", artifact.Name)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("artifact not on disk: %v", err)
	}
	if string(data) != "%PDF item A1" || artifact.Size != int64(len(data)) {
		t.Errorf("artifact = %q (size %d)", data, artifact.Size)
	}

	all, err := svc.GenerateAllReport(ctx)
	if err != nil {
		t.Fatalf("GenerateAllReport() error = %v", err)
	}
	if all.Name != "all_inputs.pdf" {
		t.Errorf("Name = %q, want all_inputs.pdf", all.Name)
	}
}

func TestService_GenerateReport_RenderFailure(t *testing.T) {
	svc, _ := newTestService(t, stubRenderer{err: errors.New("font missing")}, stubImporter{})

	var renderErr *RenderError
	if _, err := svc.GenerateAllReport(context.Background()); !errors.As(err, &renderErr) {
		t.Errorf("GenerateAllReport() error = %v, want *RenderError", err)
	}
}

func TestService_GenerateReport_Busy(t *testing.T) {
	svc, _ := newTestService(t, stubRenderer{}, stubImporter{})

	if err := svc.limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("could not take the only slot: %v", err)
	}
	defer svc.limiter.Release()

	if _, err := svc.GenerateAllReport(context.Background()); !errors.Is(err, ErrTooManyJobs) {
		t.Errorf("GenerateAllReport() error = %v, want ErrTooManyJobs", err)
	}
}

func TestService_PurgeReports(t *testing.T) {
	svc, _ := newTestService(t, stubRenderer{}, stubImporter{})

	old := filepath.Join(svc.outputDir, "input_A1.pdf")
	fresh := filepath.Join(svc.outputDir, "all_inputs.pdf")
	other := filepath.Join(svc.outputDir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	for _, p := range []string{old, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := svc.PurgeReports(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("PurgeReports() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old report was not removed")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should be kept: %v", filepath.Base(p), err)
		}
	}
}

func TestService_GenerateItemReport_DistinctItems(t *testing.T) {
	svc, _ := newTestService(t, stubRenderer{}, stubImporter{})
	ctx := context.Background()

	for _, id := range []string{"A.1", "A_1"} {
		if _, err := svc.SaveInput(ctx, id, inputs("d_D1", "5", "d_D3", "x")); err != nil {
			t.Fatal(err)
		}
	}

	dot, err := svc.GenerateItemReport(ctx, "A.1")
	if err != nil {
		t.Fatalf("GenerateItemReport(A.1) error = %v", err)
	}
	under, err := svc.GenerateItemReport(ctx, "A_1")
	if err != nil {
		t.Fatalf("GenerateItemReport(A_1) error = %v", err)
	}

	if dot.Name != "input_A.1.pdf" || under.Name != "input_A_1.pdf" {
		t.Errorf("names = %q, %q", dot.Name, under.Name)
	}
	if dot.Path == under.Path {
		t.Fatalf("both items were written to %s", dot.Path)
	}
	if string(dot.Data) != "%PDF item A.1" {
		t.Errorf("A.1 data = %q", dot.Data)
	}
	for _, a := range []*Artifact{dot, under} {
		onDisk, err := os.ReadFile(a.Path)
		if err != nil {
			t.Fatalf("artifact not on disk: %v", err)
		}
		if string(onDisk) != string(a.Data) {
			t.Errorf("%s holds %q, want %q", a.Path, onDisk, a.Data)
		}
	}
}

func TestService_GenerateItemReport_StaysInOutputDir(t *testing.T) {
	svc, _ := newTestService(t, stubRenderer{}, stubImporter{})
	ctx := context.Background()

	if _, err := svc.SaveInput(ctx, "../x", inputs("d_D1", "5", "d_D3", "x")); err != nil {
		t.Fatal(err)
	}
	artifact, err := svc.GenerateItemReport(ctx, "../x")
	if err != nil {
		t.Fatalf("GenerateItemReport() error = %v", err)
	}
	if filepath.Dir(artifact.Path) != svc.outputDir {
		t.Errorf("Path = %s, want a file directly in %s", artifact.Path, svc.outputDir)
	}
	if artifact.Name != "input_../x.pdf" {
		t.Errorf("Name = %q", artifact.Name)
	}
}

func TestService_MutationLogsCarryIP(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	svc, _ := newTestService(t, stubRenderer{}, stubImporter{})
	ctx := ContextWithIPAddress(context.Background(), "10.1.2.3")

	if _, err := svc.SaveInput(ctx, "A1", inputs("d_D1", "5", "d_D3", "x")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GenerateItemReport(ctx, "A1"); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	for _, msg := range []string{"input saved", "report generated"} {
		found := false
		for _, line := range lines {
			if strings.Contains(line, `msg="`+msg+`"`) {
				found = true
				if !strings.Contains(line, "ip=10.1.2.3") {
					t.Errorf("%q line has no client ip: %s", msg, line)
				}
			}
		}
		if !found {
			t.Errorf("no %q line in %q", msg, buf.String())
		}
	}
}
