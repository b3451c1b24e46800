package core

// validation.go checks submitted records against the current schema.
//
// Validation happens at two levels:
//  1. Boundary: every input id must reference a field ("d_" + id)
//  2. Required fields: walked in schema order, the first missing one fails
//
// Only presence is checked. The advisory field type (number, text, date) is
// never used to reject a value.

import (
	"fmt"
	"strings"
)

// CheckInputRefs rejects inputs whose id is not of the form "d_<field id>".
// Ids that carry the prefix but name a field missing from the schema are
// accepted; the report renderer skips them.
func CheckInputRefs(inputs []Input) error {
	for i, in := range inputs {
		if !strings.HasPrefix(in.ID, FieldPrefix) || len(in.ID) == len(FieldPrefix) {
			return &ValidationError{
				Field:   in.ID,
				Message: fmt.Sprintf("inputs[%d]: invalid field id %q (expected %s<id>)", i, in.ID, FieldPrefix),
			}
		}
	}
	return nil
}

// ValidateRequired returns a ValidationError naming the first required field,
// in schema order, that has no non-blank value in inputs. It returns nil
// when every required field is present.
func ValidateRequired(schema Schema, inputs []Input) error {
	for _, field := range schema.ItemsD {
		if !field.Required {
			continue
		}
		in, ok := findInput(inputs, field.Ref())
		if !ok || in.Blank() {
			return &ValidationError{
				Field:   field.ID,
				Label:   field.Label,
				Message: fmt.Sprintf("%s is required", field.Label),
			}
		}
	}
	return nil
}

// ValidateInputs runs both the boundary and the required-field checks.
func ValidateInputs(schema Schema, itemAID string, inputs []Input) error {
	if strings.TrimSpace(itemAID) == "" {
		return &ValidationError{Field: "item_a_id", Message: "item_a_id is required"}
	}
	if err := CheckInputRefs(inputs); err != nil {
		return err
	}
	return ValidateRequired(schema, inputs)
}

// findInput returns the first input with the given id.
func findInput(inputs []Input, ref string) (Input, bool) {
	for _, in := range inputs {
		if in.ID == ref {
			return in, true
		}
	}
	return Input{}, false
}
