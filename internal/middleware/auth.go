package middleware

import (
	"net/http"
	"strings"

	"github.com/dtj0108/dreamteam/pkg/jwtutil"
	"github.com/dtj0108/dreamteam/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var jwtUtil *jwtutil.JWTUtil

// InitAuth wires the JWT utility used by the auth middleware.
func InitAuth(util *jwtutil.JWTUtil) {
	jwtUtil = util
}

// AuthMiddleware validates the JWT bearer token from the Authorization header
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		claims, err := jwtUtil.ValidateToken(parts[1])
		if err != nil {
			log.Warn("Invalid JWT token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store user info in context for later use
		c.Set("user", claims)
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		if claims.WorkspaceID != nil {
			c.Set("workspace_id", *claims.WorkspaceID)
		}

		// Enrich the request logger with identity
		log = log.With(zap.Uint("user_id", claims.UserID))
		if claims.WorkspaceID != nil {
			log = log.With(zap.Uint("workspace_id", *claims.WorkspaceID))
		}
		c.Set("logger", log)

		return next(c)
	}
}

// WorkspaceClaims extracts the authenticated claims and enforces that the
// token carries a workspace. Handlers operating on workspace-scoped data
// call this first.
func WorkspaceClaims(c echo.Context) (*jwtutil.UserClaims, uint, error) {
	claims, ok := c.Get("user").(*jwtutil.UserClaims)
	if !ok {
		return nil, 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if claims.WorkspaceID == nil {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, "workspace context required")
	}
	return claims, *claims.WorkspaceID, nil
}
