package validator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedID() string { return "generated-id" }

func validAdaptedDoc() map[string]any {
	humor := map[string]any{}
	for _, k := range moodKeys() {
		humor[k] = []any{}
	}
	tempo := map[string]any{}
	for _, k := range timeKeys() {
		tempo[k] = []any{}
	}
	return map[string]any{
		"treinamento_id": "t-1",
		"versao":         "1.0",
		"data_criacao":   "2026-01-01T00:00:00Z",
		"usuario":        map[string]any{"id": "u-1", "objetivos": []any{}, "restricoes": []any{}},
		"plano_principal": map[string]any{
			"nome":               "Força",
			"duracao_semanas":    float64(8),
			"frequencia_semanal": float64(4),
			"ciclos":             []any{},
		},
		"adaptacoes": map[string]any{"humor": humor, "tempo_disponivel": tempo},
	}
}

func newAdaptedValidator() *Validator {
	return New("adapted_plan", AdaptedPlanSchema(), AdaptedPlanCorrector(fixedID), zap.NewNop())
}

func TestValidate_ValidDocumentIsNoOp(t *testing.T) {
	v := newAdaptedValidator()
	doc := validAdaptedDoc()

	out, res, err := v.Validate(doc)

	require.NoError(t, err)
	assert.Equal(t, validAdaptedDoc(), out)
	assert.Empty(t, res.Corrections)
	assert.False(t, res.Corrected())
	assert.Equal(t, []State{StateUnvalidated, StateValidating, StateValid}, res.Path)

	// running it again changes nothing
	again, res2, err := v.Validate(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assert.Empty(t, res2.Corrections)
}

func TestValidate_BackfillsMissingLevels(t *testing.T) {
	v := newAdaptedValidator()
	doc := validAdaptedDoc()
	delete(doc["adaptacoes"].(map[string]any)["humor"].(map[string]any), "cansado")
	delete(doc["adaptacoes"].(map[string]any), "tempo_disponivel")
	delete(doc["plano_principal"].(map[string]any), "frequencia_semanal")

	out, res, err := v.Validate(doc)

	require.NoError(t, err)
	assert.True(t, res.Corrected())
	assert.Equal(t, StateValid, res.State)
	humor := out["adaptacoes"].(map[string]any)["humor"].(map[string]any)
	assert.Equal(t, []any{}, humor["cansado"])
	tempo := out["adaptacoes"].(map[string]any)["tempo_disponivel"].(map[string]any)
	assert.Len(t, tempo, 5)
	assert.Equal(t, DefaultWeeklyFrequency, out["plano_principal"].(map[string]any)["frequencia_semanal"])

	// the caller's document is not mutated
	_, stillMissing := doc["adaptacoes"].(map[string]any)["tempo_disponivel"]
	assert.False(t, stillMissing)
}

func TestValidate_RuleCorrections(t *testing.T) {
	v := newAdaptedValidator()
	doc := validAdaptedDoc()
	main := doc["plano_principal"].(map[string]any)
	main["duracao_semanas"] = float64(0)
	main["frequencia_semanal"] = float64(9)
	main["nome"] = "  "

	out, res, err := v.Validate(doc)

	require.NoError(t, err)
	assert.Len(t, res.Corrections, 3)
	fixed := out["plano_principal"].(map[string]any)
	assert.Equal(t, DefaultDurationWeeks, fixed["duracao_semanas"])
	assert.Equal(t, DefaultWeeklyFrequency, fixed["frequencia_semanal"])
	assert.Equal(t, CorrectedPlanName, fixed["nome"])
}

func TestValidate_FailureReturnsOriginalError(t *testing.T) {
	v := newAdaptedValidator()
	doc := validAdaptedDoc()
	delete(doc, "versao")

	out, res, err := v.Validate(doc)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "versao")
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []State{StateUnvalidated, StateValidating, StateCorrectionAttempted, StateFailed}, res.Path)
	assert.Equal(t, doc, out)
}

func TestValidate_NoCorrector(t *testing.T) {
	v := New("strict", AdaptedPlanSchema(), nil, zap.NewNop())
	_, res, err := v.Validate(map[string]any{})
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
}

func TestCheck_TypeErrors(t *testing.T) {
	doc := validAdaptedDoc()
	doc["plano_principal"].(map[string]any)["duracao_semanas"] = "doze"

	found := Check(doc, AdaptedPlanSchema())

	assert.True(t, found.Has(CodeType, "plano_principal.duracao_semanas"))
	assert.True(t, found.Has(CodeRule, "plano_principal.duracao_semanas"))
}

func TestCheck_UnknownRule(t *testing.T) {
	schema := &Schema{Required: []string{"a"}, Rules: []Rule{{Path: "a", Name: "positivo_talvez"}}}
	found := Check(map[string]any{"a": 1}, schema)
	assert.True(t, found.Has(CodeUnknownRule, "a"))
}

func TestGeneratedPlanCorrector(t *testing.T) {
	doc := map[string]any{
		"usuario": map[string]any{"objetivos": []any{}},
		"plano_principal": map[string]any{
			"nome":               "Plano",
			"duracao_semanas":    "null",
			"frequencia_semanal": "4",
			"ciclos": []any{map[string]any{
				"microciclos": []any{map[string]any{
					"sessoes": []any{map[string]any{
						"duracao_minutos": nil,
						"exercicios": []any{map[string]any{
							"nome":       "Agachamento",
							"series":     "4",
							"repeticoes": float64(8),
							"ordem":      nil,
						}},
					}},
				}},
			}},
		},
	}

	v := New("generated_plan", GeneratedPlanSchema(), GeneratedPlanCorrector(fixedID), zap.NewNop())
	out, res, err := v.Validate(doc)

	require.NoError(t, err)
	assert.True(t, res.Corrected())

	main := out["plano_principal"].(map[string]any)
	assert.Equal(t, DefaultDurationWeeks, main["duracao_semanas"])
	assert.Equal(t, 4, main["frequencia_semanal"])

	session := main["ciclos"].([]any)[0].(map[string]any)["microciclos"].([]any)[0].(map[string]any)["sessoes"].([]any)[0].(map[string]any)
	assert.Equal(t, DefaultDurationMinutes, session["duracao_minutos"])
	exercise := session["exercicios"].([]any)[0].(map[string]any)
	assert.Equal(t, 4, exercise["series"])
	assert.Equal(t, "8", exercise["repeticoes"])
	assert.Equal(t, DefaultOrder, exercise["ordem"])

	user := out["usuario"].(map[string]any)
	assert.Equal(t, "generated-id", user["id"])
	objectives := user["objetivos"].([]any)
	require.Len(t, objectives, 1)
	assert.Equal(t, DefaultObjective, objectives[0].(map[string]any)["nome"])
	assert.Equal(t, []any{}, user["restricoes"])
}

func TestFillRequired(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	doc := map[string]any{"dados": map[string]any{}}

	applied := FillRequired(doc, fixedID, now)

	assert.Len(t, applied, 5)
	assert.Equal(t, "generated-id", doc["treinamento_id"])
	assert.Equal(t, "2026-03-01T10:00:00Z", doc["timestamp"])
	main := doc["dados"].(map[string]any)["plano_principal"].(map[string]any)
	assert.Equal(t, DefaultPlanName, main["nome"])
	assert.Equal(t, DefaultDurationWeeks, main["duracao_semanas"])
	assert.Equal(t, DefaultWeeklyFrequency, main["frequencia_semanal"])
}

func TestLoad_SearchPath(t *testing.T) {
	empty := t.TempDir()
	dir := t.TempDir()
	corrupt := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(corrupt, "schema_adaptado.yaml"), []byte("required: [unclosed"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema_adaptado.json"), []byte(`{"title": "custom", "required": ["treinamento_id"], "regras": [{"campo": "treinamento_id", "validacao": "nao_vazio"}]}`), 0o644))

	schema := Load([]string{empty, corrupt, dir}, "schema_adaptado", AdaptedPlanSchema(), zap.NewNop())

	assert.Equal(t, "custom", schema.Title)
	assert.False(t, schema.Builtin)
	assert.Equal(t, []string{"treinamento_id"}, schema.Required)
	require.Len(t, schema.Rules, 1)
	assert.Equal(t, RuleNotEmpty, schema.Rules[0].Name)
}

func TestLoad_FallbackToBuiltin(t *testing.T) {
	schema := Load([]string{t.TempDir()}, "schema_adaptado", AdaptedPlanSchema(), zap.NewNop())
	assert.True(t, schema.Builtin)
	assert.ElementsMatch(t,
		[]string{"treinamento_id", "versao", "data_criacao", "usuario", "plano_principal", "adaptacoes"},
		schema.Required)
}

func TestNormalize_CoercesLooseNumbers(t *testing.T) {
	exercise := map[string]any{
		"series":         3.9,
		"repeticoes":     nil,
		"percentual_rm":  "72.5%",
		"tempo_descanso": "1:30",
		"ordem":          true,
	}
	doc := map[string]any{"exercicios": []any{exercise}}

	assert.Equal(t, 5, Normalize(doc))
	assert.Equal(t, 3, exercise["series"])
	assert.Equal(t, DefaultReps, exercise["repeticoes"])
	assert.Equal(t, 72.5, exercise["percentual_rm"])
	assert.Equal(t, 1, exercise["tempo_descanso"])
	assert.Equal(t, DefaultOrder, exercise["ordem"])

	assert.Zero(t, Normalize(doc))
}

func TestShortValue_KeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("ã", 39) + "Sessão única"

	got := shortValue(long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ã", 39)+"S...", got)
	assert.Equal(t, "Exercício", shortValue("Exercício"))
}
