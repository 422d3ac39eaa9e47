package position

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Input carries the caller-supplied fields of a new position. The id is always generated by the store.
type Input struct {
	Name          string `json:"name" yaml:"name" validate:"required,max=200"`
	Title         string `json:"title" yaml:"title" validate:"max=200"`
	Department    string `json:"department" yaml:"department" validate:"max=200"`
	EmployeeCount int    `json:"employee_count" yaml:"employee_count" validate:"gte=0"`
	Status        Status `json:"status" yaml:"status" validate:"omitempty,oneof=active inactive"`
}

func (i *Input) Normalize() {
	i.Name = strings.TrimSpace(i.Name)
	i.Title = strings.TrimSpace(i.Title)
	i.Department = strings.TrimSpace(i.Department)
	i.Status = Status(strings.ToLower(strings.TrimSpace(string(i.Status))))
	if i.Status == "" {
		i.Status = StatusActive
	}
}

// Validate normalizes the input in place and reports the first offending field.
func (i *Input) Validate() error {
	i.Normalize()
	return toValidationError(validate.Struct(i))
}

// Patch lists the only mutable fields of a position. Nil means "leave unchanged".
type Patch struct {
	Name          *string `json:"name,omitempty" yaml:"name,omitempty" validate:"omitempty,max=200"`
	Title         *string `json:"title,omitempty" yaml:"title,omitempty" validate:"omitempty,max=200"`
	Department    *string `json:"department,omitempty" yaml:"department,omitempty" validate:"omitempty,max=200"`
	EmployeeCount *int    `json:"employee_count,omitempty" yaml:"employee_count,omitempty" validate:"omitempty,gte=0"`
	Status        *Status `json:"status,omitempty" yaml:"status,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Title == nil && p.Department == nil && p.EmployeeCount == nil && p.Status == nil
}

func (p *Patch) Validate() error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return NewValidation("name", "is required")
		}
		p.Name = &name
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.Department != nil {
		department := strings.TrimSpace(*p.Department)
		p.Department = &department
	}
	if p.Status != nil {
		status := Status(strings.ToLower(strings.TrimSpace(string(*p.Status))))
		if !status.Valid() {
			return NewValidation("status", "must be one of: active inactive")
		}
		p.Status = &status
	}
	return toValidationError(validate.Struct(p))
}

// Apply copies the patched fields onto n. Structural fields are never touched.
func (p Patch) Apply(n *Node) {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Department != nil {
		n.Department = *p.Department
	}
	if p.EmployeeCount != nil {
		n.EmployeeCount = *p.EmployeeCount
	}
	if p.Status != nil {
		n.Status = *p.Status
	}
}

var (
	patchableFields = map[string]struct{}{
		"name":           {},
		"title":          {},
		"department":     {},
		"employee_count": {},
		"status":         {},
	}
	structuralFields = map[string]struct{}{
		"id":        {},
		"parent_id": {},
		"child_ids": {},
		"level":     {},
	}
)

// ParsePatch decodes a JSON object into a Patch. Keys that would alter the tree structure
// (id, parent_id, child_ids, level) are rejected rather than ignored, as are unknown keys.
func ParsePatch(raw []byte) (Patch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Patch{}, NewValidation("", "patch must be a JSON object")
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := structuralFields[k]; ok {
			return Patch{}, NewValidation(k, "cannot be changed by an update; use move instead")
		}
		if _, ok := patchableFields[k]; !ok {
			return Patch{}, NewValidation(k, "is not a known field")
		}
	}

	var p Patch
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Patch{}, NewValidation("", fmt.Sprintf("invalid patch: %v", err))
	}
	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// PatchFromMap is ParsePatch for already-decoded documents (YAML scripts, form values).
func PatchFromMap(m map[string]any) (Patch, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return Patch{}, NewValidation("", fmt.Sprintf("invalid patch: %v", err))
	}
	return ParsePatch(raw)
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return NewValidation("", err.Error())
	}
	fe := errs[0]
	return NewValidation(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
