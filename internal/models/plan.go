package models

import "github.com/google/uuid"

// IDGenerator returns a fresh unique identifier.
type IDGenerator func() string

// NewID is the default generator (UUID v4).
func NewID() string {
	return uuid.NewString()
}

// Plan is the canonical training plan produced upstream.
type Plan struct {
	TrainingID string   `json:"treinamento_id,omitempty"`
	Version    string   `json:"versao,omitempty"`
	CreatedAt  string   `json:"data_criacao,omitempty"`
	User       User     `json:"usuario"`
	Main       MainPlan `json:"plano_principal"`
}

// User is the athlete profile attached to a plan.
type User struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"nome,omitempty"`
	Level        string        `json:"nivel,omitempty"`
	Objectives   []Objective   `json:"objetivos"`
	Restrictions []Restriction `json:"restricoes"`
}

type Objective struct {
	ID       string `json:"objetivo_id,omitempty"`
	Name     string `json:"nome"`
	Priority int    `json:"prioridade"`
}

type Restriction struct {
	Name     string `json:"nome,omitempty"`
	Region   string `json:"regiao,omitempty"`
	Severity string `json:"gravidade,omitempty"`
	Notes    string `json:"observacoes,omitempty"`
}

type Periodization struct {
	Type        string `json:"tipo"`
	Description string `json:"descricao,omitempty"`
}

// MainPlan is the plan tree: cycles → microcycles → sessions → exercises.
type MainPlan struct {
	Name            string        `json:"nome"`
	Description     string        `json:"descricao,omitempty"`
	Periodization   Periodization `json:"periodizacao"`
	DurationWeeks   int           `json:"duracao_semanas"`
	WeeklyFrequency int           `json:"frequencia_semanal"`
	Cycles          []Cycle       `json:"ciclos"`
}

type Cycle struct {
	ID            string       `json:"ciclo_id,omitempty"`
	Name          string       `json:"nome"`
	Order         int          `json:"ordem"`
	DurationWeeks int          `json:"duracao_semanas"`
	Objective     string       `json:"objetivo,omitempty"`
	Microcycles   []Microcycle `json:"microciclos"`
}

// Microcycle is one planned week. Volume and Intensity are free-form:
// generators emit either labels ("moderado") or numbers.
type Microcycle struct {
	ID        string    `json:"microciclo_id,omitempty"`
	Week      int       `json:"semana"`
	Volume    any       `json:"volume,omitempty"`
	Intensity any       `json:"intensidade,omitempty"`
	Focus     string    `json:"foco,omitempty"`
	Sessions  []Session `json:"sessoes"`
}

type Session struct {
	ID              string     `json:"sessao_id,omitempty"`
	Name            string     `json:"nome"`
	Type            string     `json:"tipo,omitempty"`
	DurationMinutes int        `json:"duracao_minutos"`
	IntensityLevel  int        `json:"nivel_intensidade"`
	Weekday         int        `json:"dia_semana,omitempty"`
	Exercises       []Exercise `json:"exercicios"`
}

type Exercise struct {
	ID          string  `json:"exercicio_id,omitempty"`
	Name        string  `json:"nome"`
	Order       int     `json:"ordem"`
	Sets        int     `json:"series"`
	Reps        string  `json:"repeticoes"`
	PercentRM   float64 `json:"percentual_rm,omitempty"`
	RestSeconds int     `json:"tempo_descanso"`
	Method      string  `json:"metodo,omitempty"`
	Notes       string  `json:"observacoes,omitempty"`
}

// EnsureID assigns an id if absent and reports whether one was generated.
func (c *Cycle) EnsureID(gen IDGenerator) (string, bool) {
	return ensure(&c.ID, gen)
}

func (m *Microcycle) EnsureID(gen IDGenerator) (string, bool) {
	return ensure(&m.ID, gen)
}

func (s *Session) EnsureID(gen IDGenerator) (string, bool) {
	return ensure(&s.ID, gen)
}

func (e *Exercise) EnsureID(gen IDGenerator) (string, bool) {
	return ensure(&e.ID, gen)
}

// EnsureID assigns the training id if absent.
func (p *Plan) EnsureID(gen IDGenerator) (string, bool) {
	return ensure(&p.TrainingID, gen)
}

func ensure(field *string, gen IDGenerator) (string, bool) {
	if *field != "" {
		return *field, false
	}
	if gen == nil {
		gen = NewID
	}
	*field = gen()
	return *field, true
}

// EnsureIDs walks the tree and assigns every missing id in place.
// It returns how many ids were generated.
func (p *Plan) EnsureIDs(gen IDGenerator) int {
	return ensureTreeIDs(&p.TrainingID, &p.Main, gen)
}

// ensureTreeIDs assigns the training id and every missing id under main.
func ensureTreeIDs(trainingID *string, main *MainPlan, gen IDGenerator) int {
	generated := 0
	count := func(_ string, created bool) {
		if created {
			generated++
		}
	}

	count(ensure(trainingID, gen))
	for ci := range main.Cycles {
		cycle := &main.Cycles[ci]
		count(cycle.EnsureID(gen))
		for mi := range cycle.Microcycles {
			micro := &cycle.Microcycles[mi]
			count(micro.EnsureID(gen))
			for si := range micro.Sessions {
				session := &micro.Sessions[si]
				count(session.EnsureID(gen))
				for ei := range session.Exercises {
					count(session.Exercises[ei].EnsureID(gen))
				}
			}
		}
	}
	return generated
}

// SessionCount counts sessions across the whole tree.
func (p *Plan) SessionCount() int {
	n := 0
	for _, c := range p.Main.Cycles {
		for _, m := range c.Microcycles {
			n += len(m.Sessions)
		}
	}
	return n
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	if s.Exercises != nil {
		out.Exercises = make([]Exercise, len(s.Exercises))
		copy(out.Exercises, s.Exercises)
	}
	return out
}
