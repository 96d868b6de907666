package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresSink writes commands with parameterized SQL.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSink creates a sink over db.
func NewPostgresSink(db *sql.DB, logger *zap.Logger) *PostgresSink {
	return &PostgresSink{
		db:     db,
		logger: logger,
	}
}

// Insert writes rows, skipping rows that conflict with existing keys.
func (s *PostgresSink) Insert(ctx context.Context, table string, rows []map[string]any) (SinkResult, error) {
	if table == "" {
		return SinkResult{}, fmt.Errorf("%w: empty table name", ErrInvalidCommand)
	}

	var affected int64
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		cols := sortedKeys(row)
		quoted := make([]string, len(cols))
		placeholders := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, col := range cols {
			quoted[i] = pq.QuoteIdentifier(col)
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			v, err := columnValue(row[col])
			if err != nil {
				return SinkResult{}, fmt.Errorf("%w: column %s: %v", ErrInvalidCommand, col, err)
			}
			args[i] = v
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
			pq.QuoteIdentifier(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return SinkResult{Status: SinkStatusError, Message: err.Error()}, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	return SinkResult{Status: SinkStatusSuccess, Count: affected}, nil
}

// Update sets row on the rows matching filter.
func (s *PostgresSink) Update(ctx context.Context, table string, row, filter map[string]any) (SinkResult, error) {
	if table == "" || len(row) == 0 {
		return SinkResult{}, fmt.Errorf("%w: update needs a table and values", ErrInvalidCommand)
	}
	if len(filter) == 0 {
		return SinkResult{}, fmt.Errorf("%w: update without filter on %s", ErrInvalidCommand, table)
	}

	cols := sortedKeys(row)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filter))
	for i, col := range cols {
		v, err := columnValue(row[col])
		if err != nil {
			return SinkResult{}, fmt.Errorf("%w: column %s: %v", ErrInvalidCommand, col, err)
		}
		args = append(args, v)
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args))
	}
	where, args := whereClause(filter, args)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", pq.QuoteIdentifier(table), strings.Join(sets, ", "), where)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return SinkResult{Status: SinkStatusError, Message: err.Error()}, fmt.Errorf("failed to update %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return SinkResult{Status: SinkStatusSuccess, Count: n}, nil
}

// Delete removes the rows matching filter. An empty filter is refused.
func (s *PostgresSink) Delete(ctx context.Context, table string, filter map[string]any) (SinkResult, error) {
	if table == "" || len(filter) == 0 {
		return SinkResult{}, fmt.Errorf("%w: delete needs a table and a filter", ErrInvalidCommand)
	}

	where, args := whereClause(filter, nil)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", pq.QuoteIdentifier(table), where)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return SinkResult{Status: SinkStatusError, Message: err.Error()}, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return SinkResult{Status: SinkStatusSuccess, Count: n}, nil
}

// RunFunction calls a database function taking one jsonb argument.
func (s *PostgresSink) RunFunction(ctx context.Context, name string, params map[string]any) (SinkResult, error) {
	if name == "" {
		return SinkResult{}, fmt.Errorf("%w: empty function name", ErrInvalidCommand)
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return SinkResult{}, fmt.Errorf("%w: encode params: %v", ErrInvalidCommand, err)
	}

	var raw []byte
	query := fmt.Sprintf("SELECT to_jsonb(%s($1::jsonb))", pq.QuoteIdentifier(name))
	if err := s.db.QueryRowContext(ctx, query, string(payload)).Scan(&raw); err != nil {
		return SinkResult{Status: SinkStatusError, Message: err.Error()}, fmt.Errorf("failed to run function %s: %w", name, err)
	}

	var data any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = string(raw)
		}
	}
	return SinkResult{Status: SinkStatusSuccess, Data: data, Count: 1}, nil
}

// Close releases the underlying pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func whereClause(filter map[string]any, args []any) (string, []any) {
	cols := sortedKeys(filter)
	conds := make([]string, len(cols))
	for i, col := range cols {
		v, err := columnValue(filter[col])
		if err != nil {
			v = filter[col]
		}
		args = append(args, v)
		conds[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), len(args))
	}
	return strings.Join(conds, " AND "), args
}
