package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_SevenMappings(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	assert.Equal(t, []string{Training, Cycles, Microcycles, Sessions, Exercises, MoodAdaptations, TimeAdaptations}, r.Names())
	assert.Equal(t, []string{TableTraining, TableCycle, TableMicrocycle, TableSession, TableExercise, TableAdaptation}, r.Tables())
	assert.Len(t, r.Document(), 7)
}

func TestProject_TrainingUsesDottedPaths(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	doc := map[string]any{
		"treinamento_id": "t-1",
		"timestamp":      "2026-05-01T08:00:00Z",
		"dados": map[string]any{
			"plano_principal": map[string]any{
				"nome":               "Força",
				"duracao_semanas":    8.0,
				"frequencia_semanal": 4.0,
				"periodizacao":       map[string]any{"tipo": "linear"},
			},
			"usuario": map[string]any{"id": "u-1"},
		},
	}

	row := r.Project(doc, Training)

	assert.Equal(t, map[string]any{
		"nome":               "Força",
		"descricao":          nil,
		"duracao_semanas":    8.0,
		"frequencia_semanal": 4.0,
		"treinamento_id":     "t-1",
		"usuario_id":         "u-1",
		"data_criacao":       "2026-05-01T08:00:00Z",
		"tipo_periodizacao":  "linear",
	}, row)
}

func TestProject_FixedValueWins(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	entity := map[string]any{
		"adaptacao_id":           "a-1",
		"sessao_original_id":     "s-1",
		"tipo":                   "ignored",
		"nivel":                  "curto",
		"duracao_alvo":           30.0,
		"estrategia":             "Foco em compostos",
		"exercicios_priorizados": []any{"e-1", "e-2"},
		"exercicios_removidos":   []any{},
	}

	row := r.Project(entity, TimeAdaptations)

	assert.Equal(t, "tempo", row["tipo"])
	assert.Equal(t, 30.0, row["duracao_ajustada"])
	assert.Equal(t, `["e-1","e-2"]`, row["exercicios_priorizados"])
	assert.Equal(t, `[]`, row["exercicios_removidos"])
}

func TestProject_JSONFailureFallsBackToEmptyObject(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	entity := map[string]any{
		"adaptacao_id": "a-1",
		"ajustes":      map[string]any{"bad": make(chan int)},
	}

	row := r.Project(entity, MoodAdaptations)

	assert.Equal(t, "{}", row["ajustes_aplicados"])
	assert.Equal(t, "humor", row["tipo"])
	assert.Nil(t, row["nivel"])
}

func TestProject_UnknownMapping(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	row := r.Project(map[string]any{"a": 1}, "desconhecido")

	require.NotNil(t, row)
	assert.Empty(t, row)
}

func TestColumns_MergesSharedTable(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var names []string
	for _, f := range r.Columns(TableAdaptation) {
		names = append(names, f.Column)
	}

	assert.Equal(t, []string{
		"adaptacao_id", "sessao_original_id", "tipo", "nivel", "duracao_ajustada",
		"nivel_intensidade_ajustado", "ajustes_aplicados", "estrategia",
		"exercicios_priorizados", "exercicios_removidos",
	}, names)
	assert.Empty(t, r.Columns("Fato_Inexistente"))
}
