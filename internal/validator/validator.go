package validator

// The validators are the contract guard between the resolver and everything
// downstream of it: renderers, the lint policies and whoever reads the
// record files. A record that does not match the schema stops the run with
// the CUE error rather than turning into a silently wrong header.

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed records_schema.cue lint_output_schema.cue
var schemaFS embed.FS

// schemaValidator checks values against one definition of an embedded
// schema file.
type schemaValidator struct {
	ctx    *cue.Context
	schema cue.Value
	def    string
	what   string
}

func newSchemaValidator(file, def, what string) (*schemaValidator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading embedded %s schema: %w", what, err)
	}

	schema := ctx.CompileBytes(schemaBytes)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", what, schema.Err())
	}

	return &schemaValidator{ctx: ctx, schema: schema, def: def, what: what}, nil
}

func (v *schemaValidator) unify(jsonBytes []byte) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling %s as CUE: %w", v.what, dataValue.Err())
	}

	def := v.schema.LookupPath(cue.ParsePath(v.def))
	if def.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", v.def, def.Err())
	}

	return def.Unify(dataValue), nil
}

func (v *schemaValidator) validate(data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s to JSON: %w", v.what, err)
	}
	return v.validateJSON(jsonBytes)
}

func (v *schemaValidator) validateJSON(jsonBytes []byte) error {
	unified, err := v.unify(jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", v.what, err)
	}
	return nil
}

func (v *schemaValidator) details(data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}
	unified, err := v.unify(jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

// Validator validates record lists against the #Records definition.
type Validator struct {
	v *schemaValidator
}

// New creates a Validator with the embedded record schema.
func New() (*Validator, error) {
	v, err := newSchemaValidator("records_schema.cue", "#Records", "records")
	if err != nil {
		return nil, err
	}
	return &Validator{v: v}, nil
}

// Validate checks a record list. data is usually []records.Record.
func (v *Validator) Validate(data interface{}) error {
	return v.v.validate(data)
}

// ValidateJSON validates a record file's bytes directly.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	return v.v.validateJSON(jsonBytes)
}

// ValidationErrors returns one message per schema violation, or nil.
func (v *Validator) ValidationErrors(data interface{}) []string {
	return v.v.details(data)
}

// OutputValidator validates lint results against #LintOutput.
type OutputValidator struct {
	v *schemaValidator
}

func NewOutputValidator() (*OutputValidator, error) {
	v, err := newSchemaValidator("lint_output_schema.cue", "#LintOutput", "lint output")
	if err != nil {
		return nil, err
	}
	return &OutputValidator{v: v}, nil
}

func (v *OutputValidator) Validate(data interface{}) error {
	return v.v.validate(data)
}
