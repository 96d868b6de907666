package models

import "time"

// ExerciseAdjustment describes a change applied to an existing exercise.
type ExerciseAdjustment struct {
	ExerciseID string `json:"exercicio_id"`
	SetsDelta  int    `json:"series_ajuste"`
	RepsDelta  string `json:"repeticoes_ajuste"`
	RestDelta  int    `json:"tempo_descanso_ajuste"`
	Method     string `json:"metodo_ajustado,omitempty"`
}

// AddedExercise is an exercise appended by an adaptation.
type AddedExercise struct {
	ExerciseID  string `json:"exercicio_id"`
	Name        string `json:"nome"`
	Order       int    `json:"ordem"`
	Sets        int    `json:"series"`
	Reps        string `json:"repeticoes"`
	RestSeconds int    `json:"tempo_descanso"`
	Method      string `json:"metodo_ajustado,omitempty"`
}

type MoodAdjustments struct {
	Intensity float64              `json:"intensidade"`
	Volume    float64              `json:"volume"`
	Focus     string               `json:"foco"`
	Removed   []string             `json:"exercicios_removidos"`
	Added     []AddedExercise      `json:"exercicios_adicionados"`
	Modified  []ExerciseAdjustment `json:"exercicios_modificados"`
}

// MoodAdaptation is a session variant for one mood level.
type MoodAdaptation struct {
	ID                string          `json:"adaptacao_id,omitempty"`
	SessionID         string          `json:"sessao_original_id"`
	Level             MoodLevel       `json:"nivel"`
	Adjustments       MoodAdjustments `json:"ajustes"`
	AdjustedDuration  int             `json:"duracao_ajustada"`
	AdjustedIntensity int             `json:"nivel_intensidade_ajustado"`
}

func (a *MoodAdaptation) EnsureID(gen IDGenerator) (string, bool) {
	return ensure(&a.ID, gen)
}

// Circuit groups exercises executed in rounds.
type Circuit struct {
	ID                   string   `json:"circuito_id"`
	Exercises            []string `json:"exercicios"`
	Rounds               int      `json:"repeticoes_circuito"`
	RestBetweenExercises int      `json:"tempo_descanso_entre_exercicios"`
	RestBetweenRounds    int      `json:"tempo_descanso_entre_circuitos"`
}

// TimeAdaptation is a session variant for one time-availability level.
type TimeAdaptation struct {
	ID             string               `json:"adaptacao_id,omitempty"`
	SessionID      string               `json:"sessao_original_id"`
	Level          TimeLevel            `json:"nivel"`
	TargetDuration int                  `json:"duracao_alvo"`
	Strategy       string               `json:"estrategia"`
	Prioritized    []string             `json:"exercicios_priorizados"`
	Removed        []string             `json:"exercicios_removidos"`
	Modified       []ExerciseAdjustment `json:"exercicios_modificados"`
	Circuits       []Circuit            `json:"circuitos"`
	Added          []AddedExercise      `json:"exercicios_adicionados,omitempty"`
}

func (a *TimeAdaptation) EnsureID(gen IDGenerator) (string, bool) {
	return ensure(&a.ID, gen)
}

// Adaptations holds every level of both axes. Maps are never nil once
// produced by the engine and every fixed level is present.
type Adaptations struct {
	Mood map[MoodLevel][]MoodAdaptation `json:"humor"`
	Time map[TimeLevel][]TimeAdaptation `json:"tempo_disponivel"`
}

// EmptyMoodAdaptations returns a map with an empty list for every mood level.
func EmptyMoodAdaptations() map[MoodLevel][]MoodAdaptation {
	out := make(map[MoodLevel][]MoodAdaptation, 5)
	for _, level := range MoodLevels() {
		out[level] = []MoodAdaptation{}
	}
	return out
}

// EmptyTimeAdaptations returns a map with an empty list for every time level.
func EmptyTimeAdaptations() map[TimeLevel][]TimeAdaptation {
	out := make(map[TimeLevel][]TimeAdaptation, 5)
	for _, level := range TimeLevels() {
		out[level] = []TimeAdaptation{}
	}
	return out
}

// AdaptedPlan is the canonical plan plus its adaptations.
type AdaptedPlan struct {
	TrainingID  string      `json:"treinamento_id"`
	Version     string      `json:"versao"`
	CreatedAt   time.Time   `json:"data_criacao"`
	User        User        `json:"usuario"`
	Main        MainPlan    `json:"plano_principal"`
	Adaptations Adaptations `json:"adaptacoes"`
}

// EnsureIDs assigns every missing id of the plan tree and its adaptations
// and returns how many were generated.
func (a *AdaptedPlan) EnsureIDs(gen IDGenerator) int {
	generated := ensureTreeIDs(&a.TrainingID, &a.Main, gen)
	for _, level := range MoodLevels() {
		list := a.Adaptations.Mood[level]
		for i := range list {
			if _, created := list[i].EnsureID(gen); created {
				generated++
			}
		}
	}
	for _, level := range TimeLevels() {
		list := a.Adaptations.Time[level]
		for i := range list {
			if _, created := list[i].EnsureID(gen); created {
				generated++
			}
		}
	}
	return generated
}
