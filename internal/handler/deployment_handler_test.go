package handler

import (
	"encoding/json"
	"testing"

	"github.com/dtj0108/dreamteam/internal/deploy"
	"github.com/dtj0108/dreamteam/internal/model"
	"gorm.io/gorm"
)

func seedDeployableTeam(t *testing.T, db *gorm.DB) *model.Team {
	t.Helper()
	team := model.Team{Name: "sales-team", Active: true}
	if err := db.Create(&team).Error; err != nil {
		t.Fatal(err)
	}
	agent := model.TeamAgent{TeamID: team.ID, Name: "Closer", Provider: "openai", IsDefault: true}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatal(err)
	}
	return &team
}

func TestDeployTeamEndpoint(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	team := seedDeployableTeam(t, db)
	InitDeploymentHandler(deploy.NewDeployer(db, nil))

	c, rec := newAuthedContext(t, "POST", "/api/deployments",
		`{"team_id":`+jsonUint(team.ID)+`}`, workspace, user, "admin")
	if err := DeployTeam(c); err != nil {
		t.Fatalf("DeployTeam: %v", err)
	}
	if rec.Code != 201 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var deployment model.Deployment
	if err := json.Unmarshal(rec.Body.Bytes(), &deployment); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if deployment.Status != model.DeploymentActive {
		t.Errorf("status = %q, want active", deployment.Status)
	}
	if deployment.AgentCount != 1 {
		t.Errorf("agent count = %d", deployment.AgentCount)
	}
}

func TestDeployTeamRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	team := seedDeployableTeam(t, db)
	InitDeploymentHandler(deploy.NewDeployer(db, nil))

	c, rec := newAuthedContext(t, "POST", "/api/deployments",
		`{"team_id":`+jsonUint(team.ID)+`}`, workspace, user, "member")
	if err := DeployTeam(c); err != nil {
		t.Fatalf("DeployTeam: %v", err)
	}
	if rec.Code != 403 {
		t.Errorf("status = %d, want 403 for non-admin", rec.Code)
	}
}

func TestDeployEmptyTeamBadRequest(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	team := model.Team{Name: "empty", Active: true}
	if err := db.Create(&team).Error; err != nil {
		t.Fatal(err)
	}
	InitDeploymentHandler(deploy.NewDeployer(db, nil))

	c, rec := newAuthedContext(t, "POST", "/api/deployments",
		`{"team_id":`+jsonUint(team.ID)+`}`, workspace, user, "admin")
	if err := DeployTeam(c); err != nil {
		t.Fatalf("DeployTeam: %v", err)
	}
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400 for empty team", rec.Code)
	}
}

func TestRollbackEndpoint(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	team := seedDeployableTeam(t, db)
	deployer := deploy.NewDeployer(db, nil)
	InitDeploymentHandler(deployer)

	if _, err := deployer.Deploy(team.ID, workspace.ID, user.ID); err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if _, err := deployer.Deploy(team.ID, workspace.ID, user.ID); err != nil {
		t.Fatalf("redeploy: %v", err)
	}

	c, rec := newAuthedContext(t, "POST", "/api/deployments/rollback", "", workspace, user, "admin")
	if err := RollbackDeployment(c); err != nil {
		t.Fatalf("RollbackDeployment: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Restored *model.Deployment `json:"restored"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Restored == nil || resp.Restored.Status != model.DeploymentActive {
		t.Errorf("restored = %+v", resp.Restored)
	}
}

func TestRollbackNothingActive(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	InitDeploymentHandler(deploy.NewDeployer(db, nil))

	c, rec := newAuthedContext(t, "POST", "/api/deployments/rollback", "", workspace, user, "admin")
	if err := RollbackDeployment(c); err != nil {
		t.Fatalf("RollbackDeployment: %v", err)
	}
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
