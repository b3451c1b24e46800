package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldPrefix is prepended to an items_d id to form the input id a record
// uses to reference that field ("D1" -> "d_D1").
const FieldPrefix = "d_"

// Default identifiers and labels used by the spreadsheet import and the
// initial structure document.
const (
	DefaultGroupID    = "B1"
	DefaultGroupName  = "Medium item B1"
	DefaultLargeID    = "C1"
	DefaultLargeName  = "Large item C"
	DefaultSheetName  = "Input sheet"
	BootstrapUsername = "main_admin"
)

// FieldType is the advisory data type of a dynamic field.
// It is shown to clients but never enforced by validation.
type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldText   FieldType = "text"
	FieldDate   FieldType = "date"
)

// ItemA is a "small" item. Records are submitted against one of these.
type ItemA struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"` // references ItemB.ID
}

// ItemB is a "medium" group of small items.
type ItemB struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemC is the single "large" label at the top of the hierarchy.
type ItemC struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FieldDef is a dynamic input field definition (an items_d entry).
type FieldDef struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Ref returns the input id records use for this field.
func (f FieldDef) Ref() string {
	return FieldPrefix + f.ID
}

// Schema is the admin-defined form structure. There is exactly one current
// schema; it is always replaced as a whole.
type Schema struct {
	SheetName string     `json:"sheet_name"`
	ItemsA    []ItemA    `json:"items_a"`
	ItemsB    []ItemB    `json:"items_b"`
	ItemC     ItemC      `json:"item_c"`
	ItemsD    []FieldDef `json:"items_d"`
}

// FindItemA returns the small item with the given id.
func (s Schema) FindItemA(id string) (ItemA, bool) {
	for _, item := range s.ItemsA {
		if item.ID == id {
			return item, true
		}
	}
	return ItemA{}, false
}

// Check verifies the structural invariants of a schema: every items_d id is
// present and unique.
func (s Schema) Check() error {
	seen := make(map[string]bool, len(s.ItemsD))
	for i, f := range s.ItemsD {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return &ValidationError{Message: fmt.Sprintf("items_d[%d] has an empty id", i)}
		}
		if seen[id] {
			return &ValidationError{Field: f.ID, Message: fmt.Sprintf("duplicate items_d id %q", f.ID)}
		}
		seen[id] = true
	}
	return nil
}

// DefaultSchema returns the structure document written on first start.
func DefaultSchema() Schema {
	return Schema{
		SheetName: DefaultSheetName,
		ItemsA: []ItemA{
			{ID: "A1", Name: "Item A1", Group: "B1"},
			{ID: "A2", Name: "Item A2", Group: "B1"},
			{ID: "A3", Name: "Item A3", Group: "B2"},
		},
		ItemsB: []ItemB{
			{ID: "B1", Name: "Medium item B1"},
			{ID: "B2", Name: "Medium item B2"},
		},
		ItemC: ItemC{ID: DefaultLargeID, Name: DefaultLargeName},
		ItemsD: []FieldDef{
			{ID: "D1", Label: "Workload", Type: FieldNumber, Required: true},
			{ID: "D2", Label: "Comment", Type: FieldText, Required: false},
			{ID: "D3", Label: "Date", Type: FieldDate, Required: true},
		},
	}
}

// Input is one submitted field value. Value is always held as a string; JSON
// numbers and booleans are accepted on decode and kept in their literal form.
type Input struct {
	ID    string `json:"id"`
	Value string `json:"value"`

	// falsy records that the decoded JSON value was false, null or numeric
	// zero, so the required check can treat it as missing.
	falsy bool
}

// UnmarshalJSON accepts string, number, boolean and null values.
func (in *Input) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string          `json:"id"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	in.ID = raw.ID
	in.Value = ""
	in.falsy = false

	v := bytes.TrimSpace(raw.Value)
	switch {
	case len(v) == 0 || bytes.Equal(v, []byte("null")):
		in.falsy = true
	case v[0] == '"':
		if err := json.Unmarshal(v, &in.Value); err != nil {
			return fmt.Errorf("input %q: %w", raw.ID, err)
		}
	case bytes.Equal(v, []byte("true")), bytes.Equal(v, []byte("false")):
		in.Value = string(v)
		in.falsy = in.Value == "false"
	case v[0] == '-' || (v[0] >= '0' && v[0] <= '9'):
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("input %q: invalid number %s", raw.ID, v)
		}
		in.Value = string(v)
		in.falsy = f == 0
	default:
		return fmt.Errorf("input %q: value must be a string, number or boolean", raw.ID)
	}
	return nil
}

// Blank reports whether the value counts as missing for a required field.
func (in Input) Blank() bool {
	return in.Value == "" || in.falsy
}

// Record is one submitted set of field values for a small item.
type Record struct {
	ID        string    `json:"id"`
	ItemAID   string    `json:"item_a_id"`
	Inputs    []Input   `json:"inputs"`
	CreatedAt time.Time `json:"created_at"`
}

// Lookup returns the first input with the given id.
func (r Record) Lookup(ref string) (Input, bool) {
	for _, in := range r.Inputs {
		if in.ID == ref {
			return in, true
		}
	}
	return Input{}, false
}

// LatestFor returns the last record in append order for the given item.
func LatestFor(records []Record, itemAID string) (Record, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ItemAID == itemAID {
			return records[i], true
		}
	}
	return Record{}, false
}

// Role is a user's permission level.
type Role string

const (
	RoleMainAdmin Role = "main_admin"
	RoleSubAdmin  Role = "sub_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMainAdmin || r == RoleSubAdmin
}

// User is a stored account.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Info strips the password hash.
func (u User) Info() UserInfo {
	return UserInfo{Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

// UserInfo is the public view of a user.
type UserInfo struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Artifact is a generated report file in the output area.
type Artifact struct {
	Name      string // download file name
	Path      string // path in the output area
	Size      int64
	Data      []byte // the rendered document, as written to Path
	CreatedAt time.Time
}
