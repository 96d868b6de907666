package validator

import (
	"errors"
	"fmt"
	"strings"
)

// Severity of a violation.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Violation codes.
const (
	CodeRequired       = "required"
	CodeType           = "type"
	CodeRule           = "rule"
	CodeUnknownRule    = "unknown_rule"
	CodeEmptyStructure = "empty_structure"
)

// Violation is one finding against a document.
type Violation struct {
	Severity Severity `json:"-"`
	Code     string   `json:"codigo"`
	Path     string   `json:"campo"`
	Rule     string   `json:"regra,omitempty"`
	Message  string   `json:"mensagem"`
}

func (v Violation) String() string {
	msg := v.Message
	if v.Code != "" {
		msg = fmt.Sprintf("[%s] %s", v.Code, msg)
	}
	if v.Path != "" {
		return v.Path + ": " + msg
	}
	return msg
}

// Violations collects findings of one validation pass.
type Violations struct {
	Errors   []Violation `json:"erros"`
	Warnings []Violation `json:"avisos"`
}

func (v *Violations) AddError(code, path, message string) {
	v.Errors = append(v.Errors, Violation{Severity: SeverityError, Code: code, Path: path, Message: message})
}

func (v *Violations) AddRuleError(path, rule, message string) {
	v.Errors = append(v.Errors, Violation{Severity: SeverityError, Code: CodeRule, Path: path, Rule: rule, Message: message})
}

func (v *Violations) AddWarning(code, path, message string) {
	v.Warnings = append(v.Warnings, Violation{Severity: SeverityWarning, Code: code, Path: path, Message: message})
}

func (v *Violations) HasErrors() bool {
	return len(v.Errors) > 0
}

// Merge appends other's findings.
func (v *Violations) Merge(other Violations) {
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// Has reports whether an error with the given code and path exists.
func (v *Violations) Has(code, path string) bool {
	for _, e := range v.Errors {
		if e.Code == code && e.Path == path {
			return true
		}
	}
	return false
}

// Messages returns the error strings, in order.
func (v *Violations) Messages() []string {
	out := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		out = append(out, e.String())
	}
	return out
}

// Error combines all errors, or returns nil when there are none.
func (v *Violations) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return errors.New(strings.Join(v.Messages(), "; "))
}
