package models

import "strings"

// Operation is the table-level write kind of a command.
type Operation string

const (
	OperationInsert Operation = "INSERT"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// Normalize upper-cases op and reports whether it is a known operation.
// Unknown operations normalize to INSERT.
func (op Operation) Normalize() (Operation, bool) {
	switch Operation(strings.ToUpper(string(op))) {
	case OperationInsert:
		return OperationInsert, true
	case OperationUpdate:
		return OperationUpdate, true
	case OperationDelete:
		return OperationDelete, true
	}
	return OperationInsert, false
}

// Command is one write against a destination table.
type Command struct {
	Table     string         `json:"tabela"`
	Operation Operation      `json:"operacao"`
	Data      map[string]any `json:"dados"`
	Where     map[string]any `json:"where,omitempty"`
}
