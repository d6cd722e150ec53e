package scheduler

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/internal/prompt"
	"github.com/dtj0108/dreamteam/internal/provider"
	"github.com/dtj0108/dreamteam/pkg/config"
	"github.com/dtj0108/dreamteam/prometheus"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.MetricsConfig{Prefix: "test"})
	os.Exit(m.Run())
}

type stubProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (s *stubProvider) Name() string              { return s.name }
func (s *stubProvider) Models() []string          { return nil }
func (s *stubProvider) SupportsToolCalling() bool { return false }
func (s *stubProvider) Healthy(context.Context) error {
	return s.err
}
func (s *stubProvider) Chat(context.Context, provider.ChatRequest) (*provider.ChatResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &provider.ChatResponse{
		Content: s.reply,
		Usage:   provider.Usage{PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10},
	}, nil
}

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

func newTestScheduler(t *testing.T, db *gorm.DB, stub *stubProvider) *Scheduler {
	t.Helper()
	factory := provider.NewFactory(&config.LLMConfig{
		DefaultProvider: "stub",
		Providers:       map[string]config.ProviderConfig{"stub": {}},
	}, zap.NewNop())
	factory.RegisterConstructor("stub", func(config.ProviderConfig, *zap.Logger) provider.Provider {
		return stub
	})
	return New(db, factory, prompt.NewBuilder(db, zap.NewNop()),
		&config.SchedulerConfig{TickInterval: time.Second}, zap.NewNop())
}

func seedSchedule(t *testing.T, db *gorm.DB, nextRunAt time.Time) (*model.Schedule, *model.Agent) {
	t.Helper()
	workspace := model.Workspace{Name: "acme", OwnerID: 1, Active: true}
	if err := db.Create(&workspace).Error; err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
	agent := model.Agent{WorkspaceID: workspace.ID, Name: "Reporter", Provider: "stub", Active: true}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	schedule := model.Schedule{
		WorkspaceID:     workspace.ID,
		AgentID:         agent.ID,
		Name:            "daily-report",
		Prompt:          "Summarize yesterday.",
		IntervalSeconds: 3600,
		Active:          true,
		NextRunAt:       nextRunAt,
	}
	if err := db.Create(&schedule).Error; err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	return &schedule, &agent
}

func TestRunDueExecutesAndAdvances(t *testing.T) {
	db := newTestDB(t)
	stub := &stubProvider{name: "stub", reply: "Yesterday was quiet."}
	s := newTestScheduler(t, db, stub)

	schedule, agent := seedSchedule(t, db, time.Now().Add(-time.Minute))
	s.runDue(context.Background())

	if stub.calls != 1 {
		t.Fatalf("provider called %d times, want 1", stub.calls)
	}

	var reloaded model.Schedule
	if err := db.First(&reloaded, schedule.ID).Error; err != nil {
		t.Fatalf("reload schedule: %v", err)
	}
	if reloaded.LastRunAt == nil {
		t.Error("last_run_at not set")
	}
	if reloaded.LastError != "" {
		t.Errorf("last_error = %q", reloaded.LastError)
	}
	if !reloaded.NextRunAt.After(time.Now().Add(30 * time.Minute)) {
		t.Errorf("next_run_at not advanced: %v", reloaded.NextRunAt)
	}

	// The run's output lands in a new conversation.
	var conversation model.Conversation
	if err := db.Where("agent_id = ?", agent.ID).First(&conversation).Error; err != nil {
		t.Fatalf("load conversation: %v", err)
	}
	var messages []model.Message
	if err := db.Where("conversation_id = ?", conversation.ID).Order("id asc").Find(&messages).Error; err != nil {
		t.Fatalf("load messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].Role != "user" || messages[0].Content != "Summarize yesterday." {
		t.Errorf("user message = %+v", messages[0])
	}
	if messages[1].Role != "assistant" || messages[1].Content != "Yesterday was quiet." {
		t.Errorf("assistant message = %+v", messages[1])
	}
	if messages[1].CompletionTokens != 6 {
		t.Errorf("completion tokens = %d, want 6", messages[1].CompletionTokens)
	}
}

func TestRunDueSkipsFutureAndInactive(t *testing.T) {
	db := newTestDB(t)
	stub := &stubProvider{name: "stub", reply: "nope"}
	s := newTestScheduler(t, db, stub)

	future, _ := seedSchedule(t, db, time.Now().Add(time.Hour))
	if err := db.Model(&model.Schedule{}).Where("id = ?", future.ID).
		Update("name", "future").Error; err != nil {
		t.Fatal(err)
	}

	s.runDue(context.Background())
	if stub.calls != 0 {
		t.Errorf("provider called %d times for future schedule", stub.calls)
	}
}

func TestFailedRunRecordsErrorAndAdvances(t *testing.T) {
	db := newTestDB(t)
	stub := &stubProvider{name: "stub", err: errors.New("provider down")}
	s := newTestScheduler(t, db, stub)

	schedule, _ := seedSchedule(t, db, time.Now().Add(-time.Minute))
	before := time.Now()
	s.runDue(context.Background())

	var reloaded model.Schedule
	if err := db.First(&reloaded, schedule.ID).Error; err != nil {
		t.Fatalf("reload schedule: %v", err)
	}
	if reloaded.LastError == "" {
		t.Error("last_error empty after failed run")
	}
	if !reloaded.NextRunAt.After(before) {
		t.Error("next_run_at must advance even on failure")
	}
}

func TestInactiveAgentFailsRun(t *testing.T) {
	db := newTestDB(t)
	stub := &stubProvider{name: "stub", reply: "x"}
	s := newTestScheduler(t, db, stub)

	schedule, agent := seedSchedule(t, db, time.Now().Add(-time.Minute))
	if err := db.Model(agent).Update("active", false).Error; err != nil {
		t.Fatal(err)
	}

	s.runDue(context.Background())
	if stub.calls != 0 {
		t.Error("provider should not be called for inactive agent")
	}

	var reloaded model.Schedule
	if err := db.First(&reloaded, schedule.ID).Error; err != nil {
		t.Fatalf("reload schedule: %v", err)
	}
	if reloaded.LastError == "" {
		t.Error("expected last_error for inactive agent")
	}
}
