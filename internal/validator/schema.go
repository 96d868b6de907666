package validator

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Schema is the declarative shape of a document: required keys, type
// constraints and business rules on dotted paths.
type Schema struct {
	Title      string              `yaml:"title" json:"title"`
	Type       string              `yaml:"type" json:"type"`
	Required   []string            `yaml:"required" json:"required"`
	Properties map[string]Property `yaml:"properties" json:"properties"`
	Rules      []Rule              `yaml:"regras" json:"regras"`
	// Builtin is set when the schema is the in-code fallback.
	Builtin bool `yaml:"-" json:"-"`
}

// Property constrains one key. Nested objects recurse.
type Property struct {
	Type       string              `yaml:"type" json:"type"`
	Required   []string            `yaml:"required" json:"required"`
	Properties map[string]Property `yaml:"properties" json:"properties"`
	Items      *Property           `yaml:"items" json:"items"`
	Nullable   bool                `yaml:"nullable" json:"nullable"`
}

// Rule applies a named business check to a dotted path.
type Rule struct {
	Path string `yaml:"campo" json:"campo"`
	Name string `yaml:"validacao" json:"validacao"`
}

// Parse decodes a YAML or JSON schema document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(s.Required) == 0 && len(s.Properties) == 0 {
		return nil, fmt.Errorf("schema defines neither required keys nor properties")
	}
	if s.Type == "" {
		s.Type = "object"
	}
	return &s, nil
}

// LoadFile reads and parses one schema file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return Parse(data)
}

// Load looks for <name>.yaml, <name>.yml or <name>.json in each directory
// of dirs, in order. The first readable schema wins. When none is found,
// or every candidate is corrupt, fallback is returned.
func Load(dirs []string, name string, fallback *Schema, logger *zap.Logger) *Schema {
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			schema, err := LoadFile(path)
			if err != nil {
				logger.Warn("Ignoring unreadable schema file",
					zap.String("path", path),
					zap.Error(err),
				)
				continue
			}
			logger.Info("Loaded schema", zap.String("path", path), zap.String("title", schema.Title))
			return schema
		}
	}

	logger.Warn("Schema file not found, using built-in schema",
		zap.String("schema", name),
		zap.Strings("search_path", dirs),
	)
	return fallback
}

// AdaptedPlanSchema is the built-in schema for adapted plans.
func AdaptedPlanSchema() *Schema {
	return &Schema{
		Title:    "Plano de Treinamento Adaptado",
		Type:     "object",
		Required: []string{"treinamento_id", "versao", "data_criacao", "usuario", "plano_principal", "adaptacoes"},
		Properties: map[string]Property{
			"treinamento_id": {Type: "string"},
			"versao":         {Type: "string"},
			"usuario":        {Type: "object", Required: []string{"id"}},
			"plano_principal": {
				Type:     "object",
				Required: []string{"nome", "duracao_semanas", "frequencia_semanal", "ciclos"},
				Properties: map[string]Property{
					"duracao_semanas":    {Type: "integer"},
					"frequencia_semanal": {Type: "integer"},
					"ciclos":             {Type: "array"},
				},
			},
			"adaptacoes": {
				Type:     "object",
				Required: []string{"humor", "tempo_disponivel"},
				Properties: map[string]Property{
					"humor":            {Type: "object", Required: moodKeys()},
					"tempo_disponivel": {Type: "object", Required: timeKeys()},
				},
			},
		},
		Rules: []Rule{
			{Path: "plano_principal.duracao_semanas", Name: RulePositiveNumber},
			{Path: "plano_principal.frequencia_semanal", Name: RuleBetween1And7},
			{Path: "plano_principal.nome", Name: RuleNotEmpty},
			{Path: "treinamento_id", Name: RuleUnique},
		},
		Builtin: true,
	}
}

// DistributionSchema is the built-in schema for the database envelope.
func DistributionSchema() *Schema {
	return &Schema{
		Title:    "Plano para Banco de Dados",
		Type:     "object",
		Required: []string{"treinamento_id", "operacao", "timestamp", "dados"},
		Properties: map[string]Property{
			"treinamento_id": {Type: "string"},
			"operacao":       {Type: "string"},
			"timestamp":      {Type: "string"},
			"dados": {
				Type:     "object",
				Required: []string{"plano_principal", "adaptacoes"},
			},
		},
		Rules: []Rule{
			{Path: "dados.plano_principal.duracao_semanas", Name: RulePositiveNumber},
			{Path: "dados.plano_principal.frequencia_semanal", Name: RuleBetween1And7},
			{Path: "dados.plano_principal.nome", Name: RuleNotEmpty},
			{Path: "treinamento_id", Name: RuleUnique},
		},
		Builtin: true,
	}
}

// GeneratedPlanSchema is the built-in schema for raw generator output.
func GeneratedPlanSchema() *Schema {
	return &Schema{
		Title:    "Plano de Treinamento",
		Type:     "object",
		Required: []string{"usuario", "plano_principal"},
		Properties: map[string]Property{
			"usuario": {
				Type:     "object",
				Required: []string{"id", "objetivos", "restricoes"},
				Properties: map[string]Property{
					"objetivos":  {Type: "array"},
					"restricoes": {Type: "array"},
				},
			},
			"plano_principal": {
				Type:     "object",
				Required: []string{"nome", "duracao_semanas", "frequencia_semanal", "ciclos"},
				Properties: map[string]Property{
					"duracao_semanas":    {Type: "integer"},
					"frequencia_semanal": {Type: "integer"},
					"ciclos": {
						Type: "array",
						Items: &Property{
							Type: "object",
							Properties: map[string]Property{
								"microciclos": {Type: "array"},
							},
						},
					},
				},
			},
		},
		Rules: []Rule{
			{Path: "plano_principal.duracao_semanas", Name: RulePositiveNumber},
			{Path: "plano_principal.frequencia_semanal", Name: RuleBetween1And7},
		},
		Builtin: true,
	}
}
