// Package validator checks fact tables and check results against the
// embedded CUE contract before they leave the process.
//
// A failed validation means a producer and its consumers disagree on the
// shape of the data. Fix the producer or the schema; do not suppress it.
package validator

import (
	"embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaFS embed.FS

const (
	tablesDef = "#Tables"
	resultDef = "#CheckResult"
)

// Validator validates data against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a new Validator with the embedded CUE schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// ValidateTables checks fact tables against #Tables.
func (v *Validator) ValidateTables(tables any) error {
	return v.validate(tables, tablesDef)
}

// ValidateResult checks a check result against #CheckResult.
func (v *Validator) ValidateResult(result any) error {
	return v.validate(result, resultDef)
}

// ValidateJSON validates raw JSON against the named definition.
func (v *Validator) ValidateJSON(jsonBytes []byte, def string) error {
	unified, err := v.unify(jsonBytes, def)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s validation failed: %w", def, err)
	}
	return nil
}

func (v *Validator) validate(data any, def string) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes, def)
}

func (v *Validator) unify(jsonBytes []byte, def string) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}

	schemaDef := v.schema.LookupPath(cue.ParsePath(def))
	if schemaDef.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", def, schemaDef.Err())
	}

	return schemaDef.Unify(dataValue), nil
}

// ValidationErrors returns every validation error for data against the
// named definition, one message per error. It returns nil when data is
// valid.
func (v *Validator) ValidationErrors(data any, def string) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	unified, err := v.unify(jsonBytes, def)
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
