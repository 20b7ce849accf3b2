// internal/handlers/dashboard/dashboard_handler.go
package dashboard

import (
	"net/http"

	xerrors "luckylogic-crm/internal/pkg/errors"
	"luckylogic-crm/internal/pkg/response"
	service "luckylogic-crm/internal/service/dashboard"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, logger: logger}
}

// GetSummary handles GET /api/v1/dashboard.
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.dashboardService.GetSummary(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to build dashboard", zap.Error(err))
		response.Error(c, xerrors.HTTPStatus(err), "failed to load dashboard", err)
		return
	}
	response.Success(c, http.StatusOK, "dashboard retrieved", summary)
}
