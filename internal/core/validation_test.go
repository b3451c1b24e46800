package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func inputs(pairs ...string) []Input {
	out := make([]Input, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Input{ID: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func TestValidateRequired(t *testing.T) {
	schema := DefaultSchema() // D1 Workload required, D2 Comment optional, D3 Date required

	tests := []struct {
		name      string
		inputs    []Input
		wantLabel string // "" means valid
	}{
		{"all required present", inputs("d_D1", "5", "d_D3", "2024-01-01"), ""},
		{"optional may be missing", inputs("d_D1", "5", "d_D3", "x"), ""},
		{"missing last required", inputs("d_D1", "5"), "Date"},
		{"first failure wins", nil, "Workload"},
		{"empty string is missing", inputs("d_D1", "", "d_D3", "x"), "Workload"},
		{"string zero counts as present", inputs("d_D1", "0", "d_D3", "x"), ""},
		{"first duplicate is used", inputs("d_D1", "", "d_D1", "5", "d_D3", "x"), "Workload"},
		{"unknown ids are ignored", inputs("d_D9", "x", "d_D1", "5", "d_D3", "x"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequired(schema, tt.inputs)
			if tt.wantLabel == "" {
				if err != nil {
					t.Fatalf("ValidateRequired() error = %v", err)
				}
				return
			}

			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("ValidateRequired() error = %v, want *ValidationError", err)
			}
			if valErr.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", valErr.Label, tt.wantLabel)
			}
			if want := tt.wantLabel + " is required"; valErr.Error() != want {
				t.Errorf("Error() = %q, want %q", valErr.Error(), want)
			}
		})
	}
}

func TestValidateRequired_DecodedFalsyValues(t *testing.T) {
	schema := Schema{ItemsD: []FieldDef{{ID: "D1", Label: "Workload", Required: true}}}

	tests := []struct {
		body      string
		wantValid bool
	}{
		{`[{"id":"d_D1","value":"7"}]`, true},
		{`[{"id":"d_D1","value":7}]`, true},
		{`[{"id":"d_D1","value":true}]`, true},
		{`[{"id":"d_D1","value":"0"}]`, true},
		{`[{"id":"d_D1","value":0}]`, false},
		{`[{"id":"d_D1","value":0.0}]`, false},
		{`[{"id":"d_D1","value":false}]`, false},
		{`[{"id":"d_D1","value":null}]`, false},
		{`[{"id":"d_D1"}]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var in []Input
			if err := json.Unmarshal([]byte(tt.body), &in); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			err := ValidateRequired(schema, in)
			if (err == nil) != tt.wantValid {
				t.Errorf("ValidateRequired() error = %v, wantValid %v", err, tt.wantValid)
			}
		})
	}
}

func TestCheckInputRefs(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []Input
		wantErr bool
	}{
		{"valid", inputs("d_D1", "x", "d_anything", "y"), false},
		{"empty list", nil, false},
		{"missing prefix", inputs("D1", "x"), true},
		{"prefix only", inputs("d_", "x"), true},
		{"empty id", inputs("", "x"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInputRefs(tt.inputs)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckInputRefs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateInputs_RequiresItem(t *testing.T) {
	err := ValidateInputs(DefaultSchema(), "  ", inputs("d_D1", "5", "d_D3", "x"))

	var valErr *ValidationError
	if !errors.As(err, &valErr) || valErr.Field != "item_a_id" {
		t.Fatalf("ValidateInputs() error = %v, want item_a_id validation error", err)
	}
}
