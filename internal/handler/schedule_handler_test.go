package handler

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/dtj0108/dreamteam/internal/model"
	"gorm.io/gorm"
)

func seedScheduleAgent(t *testing.T, db *gorm.DB, workspaceID uint) *model.Agent {
	t.Helper()
	agent := model.Agent{WorkspaceID: workspaceID, Name: "Reporter", Provider: "openai", Active: true}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatal(err)
	}
	return &agent
}

func TestCreateSchedule(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	agent := seedScheduleAgent(t, db, workspace.ID)

	body := `{"name":"daily-report","agent_id":` + jsonUint(agent.ID) +
		`,"prompt":"Summarize yesterday","interval_seconds":3600}`
	c, rec := newAuthedContext(t, "POST", "/api/schedules", body, workspace, user, "member")
	if err := CreateSchedule(c); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if rec.Code != 201 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var schedule model.Schedule
	if err := json.Unmarshal(rec.Body.Bytes(), &schedule); err != nil {
		t.Fatal(err)
	}
	if !schedule.Active {
		t.Error("new schedule should be active")
	}
	wantEarliest := time.Now().Add(55 * time.Minute)
	if schedule.NextRunAt.Before(wantEarliest) {
		t.Errorf("next_run_at = %v, expected roughly one interval out", schedule.NextRunAt)
	}
}

func TestCreateScheduleIntervalTooShort(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	agent := seedScheduleAgent(t, db, workspace.ID)

	body := `{"name":"spam","agent_id":` + jsonUint(agent.ID) +
		`,"prompt":"go","interval_seconds":5}`
	c, rec := newAuthedContext(t, "POST", "/api/schedules", body, workspace, user, "member")
	if err := CreateSchedule(c); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateScheduleForeignAgent(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	foreign := seedScheduleAgent(t, db, workspace.ID+99)

	body := `{"name":"sneaky","agent_id":` + jsonUint(foreign.ID) +
		`,"prompt":"go","interval_seconds":600}`
	c, rec := newAuthedContext(t, "POST", "/api/schedules", body, workspace, user, "member")
	if err := CreateSchedule(c); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateScheduleIntervalResetsNextRun(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)
	agent := seedScheduleAgent(t, db, workspace.ID)

	schedule := model.Schedule{
		WorkspaceID:     workspace.ID,
		AgentID:         agent.ID,
		Name:            "weekly",
		Prompt:          "report",
		IntervalSeconds: 3600,
		Active:          true,
		NextRunAt:       time.Now().Add(time.Hour),
	}
	if err := db.Create(&schedule).Error; err != nil {
		t.Fatal(err)
	}

	c, rec := newAuthedContext(t, "PUT", "/api/schedules/x",
		`{"interval_seconds":120}`, workspace, user, "member")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(schedule.ID)))
	if err := UpdateSchedule(c); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var updated model.Schedule
	if err := db.First(&updated, schedule.ID).Error; err != nil {
		t.Fatal(err)
	}
	if updated.IntervalSeconds != 120 {
		t.Errorf("interval = %d", updated.IntervalSeconds)
	}
	if !updated.NextRunAt.Before(time.Now().Add(3 * time.Minute)) {
		t.Errorf("next_run_at = %v, should have been pulled in to the new interval", updated.NextRunAt)
	}
}

func TestDeleteScheduleNotFound(t *testing.T) {
	db := newTestDB(t)
	workspace, user := seedWorkspaceUser(t, db)

	c, rec := newAuthedContext(t, "DELETE", "/api/schedules/x", "", workspace, user, "member")
	c.SetParamNames("id")
	c.SetParamValues("12345")
	if err := DeleteSchedule(c); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
