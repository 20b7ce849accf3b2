// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"luckylogic-crm/internal/domain/auth"
	"luckylogic-crm/internal/middleware"
	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/response"
	authUsecase "luckylogic-crm/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles admin login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		status := xerrors.HTTPStatus(err)
		if status == http.StatusTooManyRequests {
			c.Header("Retry-After", "900")
			response.Error(c, status, xerrors.MsgLoginLocked, err)
			return
		}
		response.Error(c, status, "login failed", err)
		return
	}

	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// Logout ends the current session (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.logger.Error("logout failed",
			zap.String("identity_id", claims.Subject),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "logout failed", err)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// GetMe returns the session behind the bearer token
func (h *AuthHandler) GetMe(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	sess, err := h.authService.GetSession(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "session not found", err)
		return
	}

	response.Success(c, http.StatusOK, "session retrieved", sess)
}
