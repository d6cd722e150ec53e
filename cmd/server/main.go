package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtj0108/dreamteam/internal/deploy"
	"github.com/dtj0108/dreamteam/internal/handler"
	"github.com/dtj0108/dreamteam/internal/middleware"
	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/internal/prompt"
	"github.com/dtj0108/dreamteam/internal/provider"
	"github.com/dtj0108/dreamteam/internal/scheduler"
	"github.com/dtj0108/dreamteam/pkg/config"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/jwtutil"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/dtj0108/dreamteam/prometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load("dreamteam")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting DreamTeam API...", cfg.LogConfig()...)

	// Initialize database and run migrations
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(model.All()...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed")

	// Wire shared components
	jwt := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	middleware.InitAuth(jwt)
	handler.InitAuthHandler(jwt)

	factory := provider.NewFactory(&cfg.LLM, log)
	prompts := prompt.NewBuilder(db, log)
	handler.InitChatHandler(factory, prompts)
	handler.InitDeploymentHandler(deploy.NewDeployer(db, log))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(&cfg.Metrics)
	log.Info("Prometheus metrics initialized")

	// Run the schedule ticker until shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Scheduler.Enabled {
		go scheduler.New(db, factory, prompts, &cfg.Scheduler, log).Run(ctx)
	}

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", prometheus.HandlerFunc())

	// Auth routes
	auth := e.Group("/auth")
	auth.POST("/signup", handler.Signup)
	auth.POST("/login", handler.Login)

	// Protected API routes - all require a valid JWT
	api := e.Group("/api", middleware.AuthMiddleware)
	api.GET("/me", handler.Me)

	// Workspaces
	api.POST("/workspaces", handler.CreateWorkspace)
	api.GET("/workspaces", handler.ListWorkspaces)
	api.GET("/workspaces/:id", handler.GetWorkspace)
	api.PUT("/workspaces/:id", handler.UpdateWorkspace)
	api.GET("/workspaces/:id/members", handler.ListMembers)
	api.POST("/workspaces/:id/members", handler.AddMember)
	api.DELETE("/workspaces/:id/members/:user_id", handler.RemoveMember)

	// Agents and their prompt inputs
	api.GET("/agents", handler.ListAgents)
	api.POST("/agents", handler.CreateAgent)
	api.GET("/agents/:id", handler.GetAgent)
	api.PUT("/agents/:id", handler.UpdateAgent)
	api.DELETE("/agents/:id", handler.DeleteAgent)
	api.GET("/agents/:id/rules", handler.ListAgentRules)
	api.POST("/agents/:id/rules", handler.CreateAgentRule)
	api.DELETE("/agents/:id/rules/:rule_id", handler.DeleteAgentRule)
	api.GET("/agents/:id/skills", handler.ListAgentSkills)
	api.POST("/agents/:id/skills", handler.CreateAgentSkill)
	api.DELETE("/agents/:id/skills/:skill_id", handler.DeleteAgentSkill)
	api.GET("/agents/:id/memories", handler.ListAgentMemories)
	api.POST("/agents/:id/memories", handler.CreateAgentMemory)
	api.DELETE("/agents/:id/memories/:memory_id", handler.DeleteAgentMemory)

	// Teams and deployments
	api.GET("/teams", handler.ListTeams)
	api.POST("/teams", handler.CreateTeam)
	api.POST("/teams/import", handler.ImportTeam)
	api.GET("/teams/:id", handler.GetTeam)
	api.PUT("/teams/:id", handler.UpdateTeam)
	api.DELETE("/teams/:id", handler.DeleteTeam)
	api.GET("/deployments", handler.ListDeployments)
	api.POST("/deployments", handler.DeployTeam)
	api.POST("/deployments/rollback", handler.RollbackDeployment)

	// Chat and conversations
	api.POST("/chat", handler.Chat)
	api.GET("/conversations", handler.ListConversations)
	api.GET("/conversations/:id", handler.GetConversation)
	api.GET("/conversations/:id/messages", handler.ListMessages)
	api.DELETE("/conversations/:id", handler.DeleteConversation)

	// Schedules
	api.GET("/schedules", handler.ListSchedules)
	api.POST("/schedules", handler.CreateSchedule)
	api.PUT("/schedules/:id", handler.UpdateSchedule)
	api.DELETE("/schedules/:id", handler.DeleteSchedule)

	// Finance
	api.GET("/finance/accounts", handler.ListAccounts)
	api.POST("/finance/accounts", handler.CreateAccount)
	api.PUT("/finance/accounts/:id", handler.UpdateAccount)
	api.GET("/finance/categories", handler.ListCategories)
	api.POST("/finance/categories", handler.CreateCategory)
	api.GET("/finance/transactions", handler.ListTransactions)
	api.POST("/finance/transactions", handler.CreateTransaction)
	api.PUT("/finance/transactions/:id", handler.UpdateTransaction)
	api.DELETE("/finance/transactions/:id", handler.DeleteTransaction)
	api.GET("/finance/summary", handler.FinanceSummary)

	// Knowledge base
	api.GET("/knowledge/categories", handler.ListKnowledgeCategories)
	api.POST("/knowledge/categories", handler.CreateKnowledgeCategory)
	api.GET("/knowledge/pages", handler.ListPages)
	api.POST("/knowledge/pages", handler.CreatePage)
	api.GET("/knowledge/pages/:id", handler.GetPage)
	api.PUT("/knowledge/pages/:id", handler.UpdatePage)
	api.DELETE("/knowledge/pages/:id", handler.DeletePage)

	// Messaging
	api.GET("/channels", handler.ListChannels)
	api.POST("/channels", handler.CreateChannel)
	api.DELETE("/channels/:id", handler.DeleteChannel)
	api.GET("/channels/:id/messages", handler.ListChannelMessages)
	api.POST("/channels/:id/messages", handler.PostChannelMessage)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
