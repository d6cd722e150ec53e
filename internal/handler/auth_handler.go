package handler

import (
	"net/http"
	"time"

	"github.com/dtj0108/dreamteam/internal/model"
	"github.com/dtj0108/dreamteam/pkg/database"
	"github.com/dtj0108/dreamteam/pkg/jwtutil"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/dtj0108/dreamteam/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var jwtUtil *jwtutil.JWTUtil

// InitAuthHandler wires the JWT utility used by the auth endpoints.
func InitAuthHandler(util *jwtutil.JWTUtil) {
	jwtUtil = util
}

// Signup registers a new user
func Signup(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse signup request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("Email already registered", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	user := model.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "signup failed"})
	}

	log.Info("User registered", zap.String("email", user.Email), zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "user registered successfully",
		"user":    user,
	})
}

// Login authenticates a user and issues a JWT with workspace context.
// If workspace_id is provided the user's membership is verified; otherwise
// the user's default workspace is used when set.
func Login(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		WorkspaceID *uint  `json:"workspace_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&user); result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	// Workspace selection
	var selectedWorkspaceID *uint
	var workspaceName, role string

	if req.WorkspaceID != nil {
		var member model.WorkspaceMember
		result := database.GetDB().
			Where("user_id = ? AND workspace_id = ? AND active = ?", user.ID, *req.WorkspaceID, true).
			First(&member)
		if result.Error != nil {
			log.Warn("User has no access to workspace",
				zap.String("email", req.Email),
				zap.Uint("workspace_id", *req.WorkspaceID))
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied to the specified workspace"})
		}
		selectedWorkspaceID = req.WorkspaceID
		role = member.Role
	} else if user.WorkspaceID != nil {
		selectedWorkspaceID = user.WorkspaceID
		var member model.WorkspaceMember
		if result := database.GetDB().Select("role").
			Where("user_id = ? AND workspace_id = ?", user.ID, *user.WorkspaceID).
			First(&member); result.Error == nil {
			role = member.Role
		}
	}

	if selectedWorkspaceID != nil {
		var ws model.Workspace
		if result := database.GetDB().Select("name").First(&ws, *selectedWorkspaceID); result.Error == nil {
			workspaceName = ws.Name
		}
	}

	token, err := jwtUtil.GenerateTokenWithWorkspace(user.Email, user.ID, selectedWorkspaceID, workspaceName, role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	if selectedWorkspaceID != nil {
		log.Info("User logged in with workspace context",
			zap.String("email", user.Email),
			zap.Uint("workspace_id", *selectedWorkspaceID),
			zap.String("role", role))
	} else {
		log.Info("User logged in", zap.String("email", user.Email))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user's profile and memberships
func Me(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var user model.User
	if result := database.GetDB().First(&user, claims.UserID); result.Error != nil {
		log.Error("User not found", zap.Uint("user_id", claims.UserID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	var memberships []model.WorkspaceMember
	database.GetDB().Where("user_id = ? AND active = ?", user.ID, true).Find(&memberships)

	return c.JSON(http.StatusOK, echo.Map{
		"user":        user,
		"memberships": memberships,
	})
}
