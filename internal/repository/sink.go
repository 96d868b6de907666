// Package repository applies table commands to a destination store and
// manages the destination schema.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
)

// SinkStatusSuccess is the only status the executor treats as success.
const (
	SinkStatusSuccess = "success"
	SinkStatusError   = "error"
)

// ErrInvalidCommand marks requests a sink refuses outright. Retrying them
// cannot help.
var ErrInvalidCommand = errors.New("invalid table command")

// SinkResult is the outcome of one table operation.
type SinkResult struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Count   int64  `json:"count"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the operation succeeded.
func (r SinkResult) OK() bool {
	return r.Status == SinkStatusSuccess
}

// TableSink applies table operations.
type TableSink interface {
	Insert(ctx context.Context, table string, rows []map[string]any) (SinkResult, error)
	Update(ctx context.Context, table string, row, filter map[string]any) (SinkResult, error)
	Delete(ctx context.Context, table string, filter map[string]any) (SinkResult, error)
	RunFunction(ctx context.Context, name string, params map[string]any) (SinkResult, error)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// columnValue converts a decoded JSON value into a driver argument:
// integral floats become int64 and nested values are encoded as JSON.
func columnValue(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val), nil
		}
		return val, nil
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	return v, nil
}
