package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/dtj0108/dreamteam/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxPinnedPages bounds how much knowledge base content is injected into
// a single system prompt.
const maxPinnedPages = 10

// Builder assembles agent system prompts from database-backed fragments:
// persona, rules, skills, memories, delegation instructions, and the
// workspace's business context.
type Builder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewBuilder(db *gorm.DB, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{db: db, logger: logger}
}

// BuildSystemPrompt returns the full system prompt for the given agent.
// Missing fragments are skipped; only database errors abort the build.
func (b *Builder) BuildSystemPrompt(agent *model.Agent) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are %s", agent.Name))
	if agent.Role != "" {
		sb.WriteString(fmt.Sprintf(", the %s", agent.Role))
	}
	sb.WriteString(" of this workspace.\n")
	if agent.Persona != "" {
		sb.WriteString("\n" + strings.TrimSpace(agent.Persona) + "\n")
	}
	sb.WriteString(fmt.Sprintf("\nCurrent time: %s\n", time.Now().Format("2006-01-02 15:04 (Monday)")))

	if err := b.appendRules(&sb, agent.ID); err != nil {
		return "", err
	}
	if err := b.appendSkills(&sb, agent.ID); err != nil {
		return "", err
	}
	if err := b.appendMemories(&sb, agent.ID); err != nil {
		return "", err
	}
	if agent.CanDelegate {
		if err := b.appendDelegation(&sb, agent); err != nil {
			return "", err
		}
	}
	if err := b.appendBusinessContext(&sb, agent.WorkspaceID); err != nil {
		return "", err
	}

	return sb.String(), nil
}

func (b *Builder) appendRules(sb *strings.Builder, agentID uint) error {
	var rules []model.AgentRule
	if err := b.db.Where("agent_id = ?", agentID).Order("position asc, id asc").Find(&rules).Error; err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}
	sb.WriteString("\n## Rules\n")
	for _, r := range rules {
		sb.WriteString("- " + strings.TrimSpace(r.Content) + "\n")
	}
	return nil
}

func (b *Builder) appendSkills(sb *strings.Builder, agentID uint) error {
	var skills []model.AgentSkill
	if err := b.db.Where("agent_id = ?", agentID).Order("id asc").Find(&skills).Error; err != nil {
		return fmt.Errorf("load skills: %w", err)
	}
	if len(skills) == 0 {
		return nil
	}
	sb.WriteString("\n## Skills\n")
	for _, s := range skills {
		if s.Description != "" {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", s.Name, strings.TrimSpace(s.Description)))
		} else {
			sb.WriteString("- " + s.Name + "\n")
		}
	}
	return nil
}

func (b *Builder) appendMemories(sb *strings.Builder, agentID uint) error {
	var memories []model.AgentMemory
	if err := b.db.Where("agent_id = ?", agentID).Order("id asc").Find(&memories).Error; err != nil {
		return fmt.Errorf("load memories: %w", err)
	}
	if len(memories) == 0 {
		return nil
	}
	sb.WriteString("\n## Things you remember\n")
	for _, m := range memories {
		sb.WriteString("- " + strings.TrimSpace(m.Content) + "\n")
	}
	return nil
}

// appendDelegation lists active teammates so a delegating agent knows who
// it can hand work to.
func (b *Builder) appendDelegation(sb *strings.Builder, agent *model.Agent) error {
	query := b.db.Where("workspace_id = ? AND active = ? AND id != ?", agent.WorkspaceID, true, agent.ID)
	if agent.DeploymentID != nil {
		query = query.Where("deployment_id = ?", *agent.DeploymentID)
	}
	var teammates []model.Agent
	if err := query.Order("id asc").Find(&teammates).Error; err != nil {
		return fmt.Errorf("load teammates: %w", err)
	}
	if len(teammates) == 0 {
		return nil
	}
	sb.WriteString("\n## Delegation\n")
	sb.WriteString("You may delegate tasks to these teammates when their role fits better:\n")
	for _, t := range teammates {
		if t.Role != "" {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", t.Name, t.Role))
		} else {
			sb.WriteString("- " + t.Name + "\n")
		}
	}
	return nil
}

func (b *Builder) appendBusinessContext(sb *strings.Builder, workspaceID uint) error {
	var ws model.Workspace
	if err := b.db.First(&ws, workspaceID).Error; err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	var pages []model.KnowledgePage
	if err := b.db.Where("workspace_id = ? AND pinned = ?", workspaceID, true).
		Order("id asc").Limit(maxPinnedPages).Find(&pages).Error; err != nil {
		return fmt.Errorf("load pinned pages: %w", err)
	}

	if ws.BusinessContext == "" && len(pages) == 0 {
		return nil
	}

	sb.WriteString("\n## Business context\n")
	if ws.BusinessContext != "" {
		sb.WriteString(strings.TrimSpace(ws.BusinessContext) + "\n")
	}
	for _, p := range pages {
		sb.WriteString(fmt.Sprintf("\n### %s\n%s\n", p.Title, strings.TrimSpace(p.Body)))
	}
	return nil
}
