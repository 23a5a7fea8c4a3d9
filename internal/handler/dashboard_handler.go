package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
)

// DashboardHandler serves the admin overview of all sessions.
type DashboardHandler struct {
	adminService *service.AdminService
	log          zerolog.Logger
}

func NewDashboardHandler(adminService *service.AdminService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		adminService: adminService,
		log:          logger.Component(log, "dashboard_handler"),
	}
}

// GetDashboardData godoc
// GET /api/v1/admin/dashboard
// Returns session and completion counts, questions answered, attempts and
// the average tries a correct question took.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	summary, err := h.adminService.GetDashboard(c.Request.Context())
	if err != nil {
		log := response.Logger(c, h.log)
		log.Error().Err(err).Msg("Dashboard summary failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, summary)
}
