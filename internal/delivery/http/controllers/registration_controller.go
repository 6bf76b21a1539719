package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/domain"
)

// RegistrationController serves the registration state machine endpoints.
type RegistrationController struct {
	Logger        *slog.Logger
	Registrations domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, regs domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:        logger,
		Registrations: regs,
	}
}

// RegistrationSuccessResponse is the success response envelope for a single registration.
type RegistrationSuccessResponse struct {
	Success bool                 `json:"success"`
	Data    *domain.Registration `json:"data"`
	Error   *helpers.APIError    `json:"error"`
}

// RegisterSuccessResponse is the success response envelope for POST /events/{eventID}/registrations.
type RegisterSuccessResponse struct {
	Success bool                      `json:"success"`
	Data    domain.RegistrationResult `json:"data"`
	Error   *helpers.APIError         `json:"error"`
}

// Register godoc
// @Summary Register the current user for an event
// @Description Takes a free seat (confirmed for free events, pending payment for paid ones) or joins the waiting list when the event is full.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RegisterSuccessResponse "outcome registered"
// @Success 202 {object} controllers.RegisterSuccessResponse "outcome waitlisted, with queue position"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already registered or queued)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) Register(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	result, err := c.Registrations.Register(r.Context(), userID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	status := http.StatusCreated
	if result.Outcome == domain.OutcomeWaitlisted {
		status = http.StatusAccepted
	}
	helpers.WriteJSONSuccess(w, status, result)
}

// ListEventRegistrations godoc
// @Summary List the registrations of an event
// @Description Only the event manager or an admin. Optional status filter.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "PENDING, CONFIRMED, CANCELLED or REJECTED"
// @Success 200 {object} helpers.APIResponse{data=[]domain.Registration}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations [get]
func (c *RegistrationController) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	status := domain.RegistrationStatus(r.URL.Query().Get("status"))
	regs, err := c.Registrations.ListByEvent(r.Context(), eventID, userID, status)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, regs)
}

// ListMyRegistrations godoc
// @Summary List the current user's registrations
// @Description Newest first, including cancelled and rejected ones.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse{data=[]domain.Registration}
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me/registrations [get]
func (c *RegistrationController) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	regs, err := c.Registrations.ListByUser(r.Context(), userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if regs == nil {
		regs = []*domain.Registration{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, regs)
}

// GetRegistration godoc
// @Summary Get a registration
// @Description Visible to the registrant, the event manager and admins.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /registrations/{registrationID} [get]
func (c *RegistrationController) GetRegistration(w http.ResponseWriter, r *http.Request) {
	c.withRegistration(w, r, c.Registrations.Get, http.StatusOK)
}

// CancelRegistration godoc
// @Summary Cancel a registration
// @Description The registrant, the event manager or an admin may cancel. The freed seat goes to the head of the waiting list. Cancelling twice fails with conflict.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (invalid transition)"
// @Router /registrations/{registrationID}/cancel [post]
func (c *RegistrationController) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	c.withRegistration(w, r, c.Registrations.Cancel, http.StatusOK)
}

// RejectRegistration godoc
// @Summary Reject a pending registration
// @Description Only the event manager or an admin. The freed seat goes to the head of the waiting list.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (invalid transition)"
// @Router /registrations/{registrationID}/reject [post]
func (c *RegistrationController) RejectRegistration(w http.ResponseWriter, r *http.Request) {
	c.withRegistration(w, r, c.Registrations.Reject, http.StatusOK)
}

func (c *RegistrationController) withRegistration(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, registrationID, actorID string) (*domain.Registration, error), status int) {
	registrationID, ok := helpers.PathUUID(w, r, "registrationID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	reg, err := op(r.Context(), registrationID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, status, reg)
}
