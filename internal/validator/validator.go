package validator

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// State of a validation run.
type State int

const (
	StateUnvalidated State = iota
	StateValidating
	StateValid
	StateCorrectionAttempted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateCorrectionAttempted:
		return "correction_attempted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var transitions = map[State][]State{
	StateUnvalidated:         {StateValidating},
	StateValidating:          {StateValid, StateCorrectionAttempted},
	StateCorrectionAttempted: {StateValid, StateFailed},
}

// Corrector applies one fixed pass of corrections to doc in place, guided
// by the violations of the first validation. It returns a description of
// every correction applied.
type Corrector interface {
	Correct(doc map[string]any, found Violations) []string
}

// CorrectorFunc adapts a function to Corrector.
type CorrectorFunc func(doc map[string]any, found Violations) []string

func (f CorrectorFunc) Correct(doc map[string]any, found Violations) []string {
	return f(doc, found)
}

// Result describes one Validate call.
type Result struct {
	State       State
	Path        []State
	Initial     Violations
	Final       Violations
	Corrections []string
}

func (r *Result) moveTo(next State) {
	for _, allowed := range transitions[r.State] {
		if allowed == next {
			r.State = next
			r.Path = append(r.Path, next)
			return
		}
	}
	panic(fmt.Sprintf("validator: illegal transition %s -> %s", r.State, next))
}

// Corrected reports whether a correction pass ran.
func (r *Result) Corrected() bool {
	for _, s := range r.Path {
		if s == StateCorrectionAttempted {
			return true
		}
	}
	return false
}

// Validator checks documents against a schema, correcting at most once.
type Validator struct {
	name      string
	schema    *Schema
	corrector Corrector
	logger    *zap.Logger
}

// New builds a validator. corrector may be nil, in which case invalid
// documents fail without a correction pass.
func New(name string, schema *Schema, corrector Corrector, logger *zap.Logger) *Validator {
	return &Validator{
		name:      name,
		schema:    schema,
		corrector: corrector,
		logger:    logger.With(zap.String("validator", name)),
	}
}

// Schema returns the schema in use.
func (v *Validator) Schema() *Schema {
	return v.schema
}

// Validate runs validate → correct once → revalidate. On success it
// returns the (possibly corrected) document. On failure it returns the
// original, uncorrected document and an error built from the first
// pass's violations.
func (v *Validator) Validate(doc map[string]any) (map[string]any, *Result, error) {
	res := &Result{State: StateUnvalidated, Path: []State{StateUnvalidated}}
	res.moveTo(StateValidating)

	res.Initial = Check(doc, v.schema)
	if !res.Initial.HasErrors() {
		res.Final = res.Initial
		res.moveTo(StateValid)
		v.logWarnings(res.Initial)
		return doc, res, nil
	}

	v.logger.Warn("Document failed validation, attempting correction",
		zap.Int("error_count", len(res.Initial.Errors)),
		zap.Strings("errors", res.Initial.Messages()),
	)
	res.moveTo(StateCorrectionAttempted)

	if v.corrector == nil {
		res.Final = res.Initial
		res.moveTo(StateFailed)
		return doc, res, fmt.Errorf("%s validation failed: %w", v.name, res.Initial.Error())
	}

	corrected, err := deepCopy(doc)
	if err != nil {
		res.Final = res.Initial
		res.moveTo(StateFailed)
		return doc, res, fmt.Errorf("%s validation failed: copy document: %w", v.name, err)
	}
	res.Corrections = v.corrector.Correct(corrected, res.Initial)
	for _, c := range res.Corrections {
		v.logger.Info("Applied correction", zap.String("correction", c))
	}

	res.Final = Check(corrected, v.schema)
	if res.Final.HasErrors() {
		res.moveTo(StateFailed)
		v.logger.Error("Document still invalid after correction",
			zap.Strings("errors", res.Final.Messages()),
		)
		return doc, res, fmt.Errorf("%s validation failed: %w", v.name, res.Initial.Error())
	}

	res.moveTo(StateValid)
	v.logWarnings(res.Final)
	return corrected, res, nil
}

func (v *Validator) logWarnings(found Violations) {
	for _, w := range found.Warnings {
		v.logger.Warn("Validation warning", zap.String("warning", w.String()))
	}
}

// deepCopy clones a decoded JSON document.
func deepCopy(doc map[string]any) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToDocument converts a typed value into a decoded JSON document.
func ToDocument(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

// FromDocument decodes a document into a typed value.
func FromDocument(doc map[string]any, out any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
