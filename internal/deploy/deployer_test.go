package deploy

import (
	"errors"
	"testing"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/glebarez/sqlite"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTeam(t *testing.T, db *gorm.DB, name string, agents ...model.TeamAgent) *model.Team {
	t.Helper()
	team := model.Team{Name: name, Active: true}
	if err := db.Create(&team).Error; err != nil {
		t.Fatalf("seed team: %v", err)
	}
	for i := range agents {
		agents[i].TeamID = team.ID
		if err := db.Create(&agents[i]).Error; err != nil {
			t.Fatalf("seed team agent: %v", err)
		}
	}
	return &team
}

func activeDeployment(t *testing.T, db *gorm.DB, workspaceID uint) *model.Deployment {
	t.Helper()
	var deployment model.Deployment
	if err := db.Where("workspace_id = ? AND status = ?", workspaceID, model.DeploymentActive).
		First(&deployment).Error; err != nil {
		t.Fatalf("load active deployment: %v", err)
	}
	return &deployment
}

func TestDeployActivatesClonedAgents(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "sales-team",
		model.TeamAgent{
			Name:      "Closer",
			Role:      "Sales lead",
			Provider:  "openai",
			IsDefault: true,
			Rules:     "Always quote list price\nNever promise discounts",
			Skills:    "negotiation: closes enterprise deals",
		},
		model.TeamAgent{Name: "Researcher", Role: "Market research", Provider: "openai"},
	)

	deployer := NewDeployer(db, nil)
	deployment, err := deployer.Deploy(team.ID, 1, 10)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	if deployment.Status != model.DeploymentActive {
		t.Errorf("status = %q, want active", deployment.Status)
	}
	if deployment.AgentCount != 2 {
		t.Errorf("agent count = %d, want 2", deployment.AgentCount)
	}
	if deployment.ActivatedAt == nil {
		t.Error("activated_at not set")
	}

	var agents []model.Agent
	if err := db.Where("deployment_id = ?", deployment.ID).Find(&agents).Error; err != nil {
		t.Fatalf("load agents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("cloned %d agents, want 2", len(agents))
	}
	for _, a := range agents {
		if !a.Active {
			t.Errorf("agent %q inactive after activation", a.Name)
		}
		if a.WorkspaceID != 1 {
			t.Errorf("agent %q workspace = %d, want 1", a.Name, a.WorkspaceID)
		}
	}

	var rules []model.AgentRule
	db.Where("agent_id = ?", agents[0].ID).Order("position asc").Find(&rules)
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rules))
	}
	if rules[0].Content != "Always quote list price" || rules[0].Position != 0 {
		t.Errorf("unexpected first rule: %+v", rules[0])
	}

	var skills []model.AgentSkill
	db.Where("agent_id = ?", agents[0].ID).Find(&skills)
	if len(skills) != 1 || skills[0].Name != "negotiation" {
		t.Fatalf("unexpected skills: %+v", skills)
	}
	if skills[0].Description != "closes enterprise deals" {
		t.Errorf("skill description = %q", skills[0].Description)
	}
}

func TestRedeploySupersedesPrevious(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "ops-team", model.TeamAgent{Name: "Operator", Provider: "openai"})

	deployer := NewDeployer(db, nil)
	first, err := deployer.Deploy(team.ID, 1, 10)
	if err != nil {
		t.Fatalf("first deploy: %v", err)
	}
	second, err := deployer.Deploy(team.ID, 1, 10)
	if err != nil {
		t.Fatalf("second deploy: %v", err)
	}

	var reloaded model.Deployment
	if err := db.First(&reloaded, first.ID).Error; err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if reloaded.Status != model.DeploymentSuperseded {
		t.Errorf("first deployment status = %q, want superseded", reloaded.Status)
	}

	if got := activeDeployment(t, db, 1).ID; got != second.ID {
		t.Errorf("active deployment = %d, want %d", got, second.ID)
	}

	// Agents of the superseded deployment must be off.
	var count int64
	db.Model(&model.Agent{}).Where("deployment_id = ? AND active = ?", first.ID, true).Count(&count)
	if count != 0 {
		t.Errorf("%d agents of superseded deployment still active", count)
	}
}

func TestDeploymentsIsolatedPerWorkspace(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "shared-team", model.TeamAgent{Name: "Helper", Provider: "openai"})

	deployer := NewDeployer(db, nil)
	if _, err := deployer.Deploy(team.ID, 1, 10); err != nil {
		t.Fatalf("deploy to workspace 1: %v", err)
	}
	if _, err := deployer.Deploy(team.ID, 2, 10); err != nil {
		t.Fatalf("deploy to workspace 2: %v", err)
	}

	// Both workspaces keep an active deployment; neither superseded the other.
	activeDeployment(t, db, 1)
	activeDeployment(t, db, 2)
}

func TestRollbackRestoresPrevious(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "support-team", model.TeamAgent{Name: "Agent One", Provider: "openai"})

	deployer := NewDeployer(db, nil)
	first, err := deployer.Deploy(team.ID, 1, 10)
	if err != nil {
		t.Fatalf("first deploy: %v", err)
	}
	second, err := deployer.Deploy(team.ID, 1, 10)
	if err != nil {
		t.Fatalf("second deploy: %v", err)
	}

	restored, err := deployer.Rollback(1)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if restored == nil || restored.ID != first.ID {
		t.Fatalf("restored = %+v, want deployment %d", restored, first.ID)
	}

	var rolled model.Deployment
	if err := db.First(&rolled, second.ID).Error; err != nil {
		t.Fatalf("reload second: %v", err)
	}
	if rolled.Status != model.DeploymentRolledBack {
		t.Errorf("second deployment status = %q, want rolled_back", rolled.Status)
	}

	// First deployment's agents are back on, second's are off.
	var count int64
	db.Model(&model.Agent{}).Where("deployment_id = ? AND active = ?", first.ID, true).Count(&count)
	if count != 1 {
		t.Errorf("restored deployment has %d active agents, want 1", count)
	}
	db.Model(&model.Agent{}).Where("deployment_id = ? AND active = ?", second.ID, true).Count(&count)
	if count != 0 {
		t.Errorf("rolled back deployment still has %d active agents", count)
	}
}

func TestRollbackWithoutPredecessor(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "solo-team", model.TeamAgent{Name: "Solo", Provider: "openai"})

	deployer := NewDeployer(db, nil)
	deployment, err := deployer.Deploy(team.ID, 1, 10)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	restored, err := deployer.Rollback(1)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if restored != nil {
		t.Errorf("restored = %+v, want nil with nothing to restore", restored)
	}

	var rolled model.Deployment
	if err := db.First(&rolled, deployment.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if rolled.Status != model.DeploymentRolledBack {
		t.Errorf("status = %q, want rolled_back", rolled.Status)
	}
}

func TestRollbackNoActiveDeployment(t *testing.T) {
	db := newTestDB(t)
	deployer := NewDeployer(db, nil)

	if _, err := deployer.Rollback(1); !errors.Is(err, ErrNoActiveDeployment) {
		t.Fatalf("err = %v, want ErrNoActiveDeployment", err)
	}
}

func TestDeployEmptyTeam(t *testing.T) {
	db := newTestDB(t)
	team := seedTeam(t, db, "empty-team")

	deployer := NewDeployer(db, nil)
	if _, err := deployer.Deploy(team.ID, 1, 10); !errors.Is(err, ErrTeamEmpty) {
		t.Fatalf("err = %v, want ErrTeamEmpty", err)
	}
}

func TestSplitSkill(t *testing.T) {
	cases := []struct {
		in, name, desc string
	}{
		{"negotiation: closes deals", "negotiation", "closes deals"},
		{"plain-skill", "plain-skill", ""},
		{"a: b: c", "a", "b: c"},
	}
	for _, tc := range cases {
		name, desc := splitSkill(tc.in)
		if name != tc.name || desc != tc.desc {
			t.Errorf("splitSkill(%q) = (%q, %q), want (%q, %q)", tc.in, name, desc, tc.name, tc.desc)
		}
	}
}
