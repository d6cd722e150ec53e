package deploy

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtj0108/dreamteam/internal/model"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// TeamTemplate is the YAML import format for team templates.
type TeamTemplate struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Agents      []AgentTemplate `yaml:"agents"`
}

// AgentTemplate describes one agent within a YAML team template.
type AgentTemplate struct {
	Name        string   `yaml:"name"`
	Role        string   `yaml:"role"`
	Persona     string   `yaml:"persona"`
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model"`
	Tools       []string `yaml:"tools"`
	Rules       []string `yaml:"rules"`
	Skills      []string `yaml:"skills"`
	CanDelegate bool     `yaml:"can_delegate"`
	IsDefault   bool     `yaml:"is_default"`
}

// ParseTemplate decodes a YAML team template and validates the required
// fields.
func ParseTemplate(r io.Reader) (*TeamTemplate, error) {
	var tpl TeamTemplate
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tpl); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	if tpl.Name == "" {
		return nil, fmt.Errorf("template name is required")
	}
	if len(tpl.Agents) == 0 {
		return nil, fmt.Errorf("template %q has no agents", tpl.Name)
	}
	for i, a := range tpl.Agents {
		if a.Name == "" {
			return nil, fmt.Errorf("template %q: agent %d has no name", tpl.Name, i)
		}
	}
	return &tpl, nil
}

// ImportTemplate stores a parsed template as a Team with its TeamAgents.
// The team name must not already exist.
func ImportTemplate(db *gorm.DB, tpl *TeamTemplate) (*model.Team, error) {
	var count int64
	db.Model(&model.Team{}).Where("name = ?", tpl.Name).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("team %q already exists", tpl.Name)
	}

	team := &model.Team{
		Name:        tpl.Name,
		Description: tpl.Description,
		Active:      true,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		for _, a := range tpl.Agents {
			agent := model.TeamAgent{
				TeamID:      team.ID,
				Name:        a.Name,
				Role:        a.Role,
				Persona:     a.Persona,
				Provider:    a.Provider,
				Model:       a.Model,
				Tools:       strings.Join(a.Tools, ","),
				Rules:       strings.Join(a.Rules, "\n"),
				Skills:      strings.Join(a.Skills, "\n"),
				CanDelegate: a.CanDelegate,
				IsDefault:   a.IsDefault,
			}
			if err := tx.Create(&agent).Error; err != nil {
				return fmt.Errorf("create team agent %q: %w", a.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}
