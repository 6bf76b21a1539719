package controllers

import (
	"log/slog"
	"net/http"

	"eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/domain"
)

// WaitlistController serves the waiting-list endpoints.
type WaitlistController struct {
	Logger  *slog.Logger
	Service domain.WaitlistService
}

func NewWaitlistController(logger *slog.Logger, svc domain.WaitlistService) *WaitlistController {
	return &WaitlistController{
		Logger:  logger,
		Service: svc,
	}
}

// ListWaitlistResponse is the data payload for GET /events/{eventID}/waitlist (200).
type ListWaitlistResponse struct {
	Items      []*domain.WaitlistEntry `json:"items"`
	Pagination helpers.PaginationMeta  `json:"pagination"`
}

// ListWaitlist godoc
// @Summary List the waiting list of an event
// @Description Entries in promotion order. Only the event manager or an admin.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size (default 50, max 500)"
// @Success 200 {object} helpers.APIResponse{data=controllers.ListWaitlistResponse}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/waitlist [get]
func (c *WaitlistController) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	params, ok := helpers.ParsePagination(w, r, helpers.WaitlistPages)
	if !ok {
		return
	}
	entries, total, err := c.Service.List(r.Context(), eventID, userID, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if entries == nil {
		entries = []*domain.WaitlistEntry{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListWaitlistResponse{Items: entries, Pagination: meta})
}

// LeaveWaitlistResponse is the data payload for DELETE /events/{eventID}/waitlist (200).
type LeaveWaitlistResponse struct {
	Status string `json:"status"`
}

// LeaveWaitlist godoc
// @Summary Leave the waiting list
// @Description Removes the current user's entry.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=controllers.LeaveWaitlistResponse}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/waitlist [delete]
func (c *WaitlistController) LeaveWaitlist(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.Leave(r.Context(), userID, eventID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, LeaveWaitlistResponse{Status: "removed"})
}

// WaitlistPositionResponse is the data payload for GET /events/{eventID}/waitlist/position.
type WaitlistPositionResponse struct {
	EventID  string `json:"event_id"`
	Position int    `json:"position"`
}

// WaitlistPosition godoc
// @Summary Get the current user's queue position
// @Description 1-based position in the waiting list.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=controllers.WaitlistPositionResponse}
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (not queued)"
// @Router /events/{eventID}/waitlist/position [get]
func (c *WaitlistController) WaitlistPosition(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	pos, err := c.Service.Position(r.Context(), userID, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, WaitlistPositionResponse{EventID: eventID, Position: pos})
}

// PromoteResponse is the data payload for POST /events/{eventID}/waitlist/promote.
// Promotion is null when the waiting list was empty.
type PromoteResponse struct {
	Promotion *domain.Promotion `json:"promotion"`
}

// PromoteNext godoc
// @Summary Promote the head of the waiting list
// @Description Admits the earliest waiting user into a free seat. Fails with conflict when no seat is free. Only the event manager or an admin.
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=controllers.PromoteResponse}
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (no free seat)"
// @Router /events/{eventID}/waitlist/promote [post]
func (c *WaitlistController) PromoteNext(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	promotion, err := c.Service.PromoteNext(r.Context(), eventID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, PromoteResponse{Promotion: promotion})
}
