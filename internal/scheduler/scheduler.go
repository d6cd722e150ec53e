package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/internal/prompt"
	"github.com/dtj0108/dreamteam/internal/provider"
	"github.com/dtj0108/dreamteam/pkg/config"
	"github.com/dtj0108/dreamteam/prometheus"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Scheduler runs due schedules against their agents at a fixed tick. Each
// run is a one-shot non-streaming completion whose result lands in a fresh
// conversation, so scheduled output shows up in the normal conversation
// list.
type Scheduler struct {
	db       *gorm.DB
	factory  *provider.Factory
	prompts  *prompt.Builder
	interval time.Duration
	logger   *zap.Logger
}

// New builds a scheduler from the shared DB handle and provider factory
func New(db *gorm.DB, factory *provider.Factory, prompts *prompt.Builder, cfg *config.SchedulerConfig, log *zap.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		factory:  factory,
		prompts:  prompts,
		interval: cfg.TickInterval,
		logger:   log,
	}
}

// Run ticks until the context is cancelled. Call it from a goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started", zap.Duration("tick_interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue executes every schedule whose next_run_at has passed
func (s *Scheduler) runDue(ctx context.Context) {
	var due []model.Schedule
	if err := s.db.Where("active = ? AND next_run_at <= ?", true, time.Now()).
		Find(&due).Error; err != nil {
		s.logger.Error("Failed to query due schedules", zap.Error(err))
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		s.runOne(ctx, &due[i])
	}
}

func (s *Scheduler) runOne(ctx context.Context, schedule *model.Schedule) {
	log := s.logger.With(
		zap.Uint("schedule_id", schedule.ID),
		zap.Uint("agent_id", schedule.AgentID),
		zap.String("schedule", schedule.Name))

	err := s.execute(ctx, schedule)
	now := time.Now()
	schedule.LastRunAt = &now
	schedule.NextRunAt = now.Add(time.Duration(schedule.IntervalSeconds) * time.Second)
	if err != nil {
		schedule.LastError = err.Error()
		prometheus.ScheduleRunsCounter.WithLabelValues("error").Inc()
		log.Warn("Schedule run failed", zap.Error(err))
	} else {
		schedule.LastError = ""
		prometheus.ScheduleRunsCounter.WithLabelValues("ok").Inc()
		log.Info("Schedule run completed")
	}

	// next_run_at must advance even when the run failed, otherwise a
	// broken schedule would fire on every tick.
	if err := s.db.Save(schedule).Error; err != nil {
		log.Error("Failed to persist schedule state", zap.Error(err))
	}
}

// execute runs the schedule's prompt against its agent and stores the
// exchange as a new conversation
func (s *Scheduler) execute(ctx context.Context, schedule *model.Schedule) error {
	var agent model.Agent
	if err := s.db.Where("id = ? AND workspace_id = ?", schedule.AgentID, schedule.WorkspaceID).
		First(&agent).Error; err != nil {
		return fmt.Errorf("load agent %d: %w", schedule.AgentID, err)
	}
	if !agent.Active {
		return fmt.Errorf("agent %d is inactive", agent.ID)
	}

	systemPrompt, err := s.prompts.BuildSystemPrompt(&agent)
	if err != nil {
		return fmt.Errorf("build prompt: %w", err)
	}

	p, err := s.factory.Get(agent.Provider)
	if err != nil {
		return fmt.Errorf("provider %s: %w", agent.Provider, err)
	}

	resp, err := p.Chat(ctx, provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: schedule.Prompt},
		},
		Model: agent.Model,
	})
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	prometheus.RecordTokens(p.Name(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	conversation := model.Conversation{
		Ref:         uuid.New().String(),
		WorkspaceID: schedule.WorkspaceID,
		AgentID:     agent.ID,
		Title:       fmt.Sprintf("[scheduled] %s", schedule.Name),
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}
		messages := []model.Message{
			{ConversationID: conversation.ID, Role: "user", Content: schedule.Prompt},
			{
				ConversationID:   conversation.ID,
				Role:             "assistant",
				Content:          resp.Content,
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
			},
		}
		return tx.Create(&messages).Error
	})
}
