package controllers

import (
	"log/slog"
	"net/http"

	"eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/domain"
)

// CleanupController exposes the retention sweeper to an external cron.
type CleanupController struct {
	Logger  *slog.Logger
	Service domain.CleanupService
}

func NewCleanupController(logger *slog.Logger, svc domain.CleanupService) *CleanupController {
	return &CleanupController{
		Logger:  logger,
		Service: svc,
	}
}

// RunCleanup godoc
// @Summary Run the retention sweeper
// @Description Purges expired rows. categories is a comma-separated subset of expiredUserRoles, oldAuditLogs, failedPayments, expiredWaitingList, cancelledRegistrations, oldNotificationLogs; empty runs all. Per-category failures are reported in errors and do not fail the request.
// @Tags cron
// @Produce json
// @Security CronSecret
// @Param categories query string false "Comma-separated categories"
// @Success 200 {object} helpers.APIResponse{data=domain.CleanupSummary}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (unknown category)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error (database unreachable)"
// @Router /cron/cleanup [post]
func (c *CleanupController) RunCleanup(w http.ResponseWriter, r *http.Request) {
	selection, err := domain.ParseCleanupSelection(r.URL.Query()["categories"])
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	summary, err := c.Service.Run(r.Context(), selection)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, summary)
}
