package models

import "time"

// Status is the outcome of a top-level entry point.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial_success"
	StatusSimulated      Status = "simulated"
	StatusError          Status = "error"
	// StatusWarning is only used by batch migration when there is nothing to do.
	StatusWarning Status = "warning"
)

// Succeeded reports whether the status counts as a processed plan.
func (s Status) Succeeded() bool {
	return s == StatusSuccess || s == StatusSimulated || s == StatusPartialSuccess
}

// TableStats counts command outcomes for one table.
type TableStats struct {
	Total   int `json:"total"`
	Success int `json:"sucesso"`
	Failure int `json:"falha"`
}

// CommandFailure records a command that exhausted its retries.
type CommandFailure struct {
	Table    string `json:"tabela"`
	Attempts int    `json:"tentativas"`
	Error    string `json:"erro"`
}

// ExecutionReport summarizes one executor run.
type ExecutionReport struct {
	Status     Status                 `json:"status"`
	Message    string                 `json:"mensagem,omitempty"`
	Executed   int                    `json:"comandos_executados"`
	Failed     int                    `json:"comandos_falha"`
	Tables     map[string]*TableStats `json:"estatisticas"`
	Elapsed    time.Duration          `json:"-"`
	ElapsedSec float64                `json:"tempo_execucao"`
	Commands   []Command              `json:"comandos,omitempty"`
	Failures   []CommandFailure       `json:"falhas,omitempty"`
}

// CountByTable builds per-table totals for a command list.
func CountByTable(commands []Command) map[string]*TableStats {
	stats := make(map[string]*TableStats)
	for _, cmd := range commands {
		s, ok := stats[cmd.Table]
		if !ok {
			s = &TableStats{}
			stats[cmd.Table] = s
		}
		s.Total++
	}
	return stats
}

// PipelineResult is the outcome of running one plan end to end.
type PipelineResult struct {
	Status     Status             `json:"status"`
	TrainingID string             `json:"treinamento_id"`
	Message    string             `json:"mensagem,omitempty"`
	Commands   int                `json:"comandos_gerados"`
	Report     *ExecutionReport   `json:"relatorio,omitempty"`
	Timings    map[string]float64 `json:"tempos,omitempty"`
}
