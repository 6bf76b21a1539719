package controllers

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/domain"
)

var currencyRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

// CreateEventRequest is the request body for POST /events. A missing or null
// capacity creates an event without a seat limit.
type CreateEventRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Capacity        *int      `json:"capacity"`
	RequiresPayment bool      `json:"requires_payment"`
	PriceCents      int64     `json:"price_cents"`
	Currency        string    `json:"currency"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	errs := helpers.ValidationMessages(validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Description, validation.Length(0, 5000)),
		validation.Field(&c.Category, validation.Length(0, 100)),
		validation.Field(&c.StartsAt, validation.Required),
		validation.Field(&c.EndsAt, validation.Required),
		validation.Field(&c.Capacity, validation.Min(0)),
		validation.Field(&c.PriceCents, validation.Min(0)),
		validation.Field(&c.Currency, validation.Match(currencyRegex)),
	))
	if !c.StartsAt.IsZero() && c.EndsAt.Before(c.StartsAt) {
		errs = append(errs, "ends_at: must not be before starts_at")
	}
	if c.RequiresPayment && (c.PriceCents == 0 || c.Currency == "") {
		errs = append(errs, "price_cents: paid events need a price and currency")
	}
	return errs
}

func (c CreateEventRequest) input() domain.CreateEventInput {
	capacity := domain.UnlimitedCapacity()
	if c.Capacity != nil {
		capacity = domain.MustBoundedCapacity(*c.Capacity)
	}
	return domain.CreateEventInput{
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		StartsAt:        c.StartsAt,
		EndsAt:          c.EndsAt,
		Capacity:        capacity,
		RequiresPayment: c.RequiresPayment,
		PriceCents:      c.PriceCents,
		Currency:        strings.ToUpper(c.Currency),
	}
}

// EventSuccessResponse is the success response envelope for a single event.
type EventSuccessResponse struct {
	Success bool              `json:"success"`
	Data    *domain.Event     `json:"data"`
	Error   *helpers.APIError `json:"error"`
}

// EventController serves the event and capacity endpoints.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Create an event. Omit capacity (or send null) for an unlimited event. Requires the manager or admin role; the caller becomes the event manager.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), userID, req.input())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEventsResponse is the data payload for GET /events (200).
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Success bool               `json:"success"`
	Data    ListEventsResponse `json:"data"`
	Error   *helpers.APIError  `json:"error"`
}

// ListEvents godoc
// @Summary List events
// @Description Returns a page of events ordered by start time. Use page and page_size query params.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (1-based)"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	params, ok := helpers.ParsePagination(w, r, helpers.EventPages)
	if !ok {
		return
	}
	events, total, err := c.Service.ListEvents(r.Context(), params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	meta := helpers.NewPaginationMeta(params, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Items: events, Pagination: meta})
}

// GetEventSuccessResponse is the success response envelope for GET /events/{eventID} (200).
type GetEventSuccessResponse struct {
	Success bool                  `json:"success"`
	Data    domain.EventWithSlots `json:"data"`
	Error   *helpers.APIError     `json:"error"`
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event with its available slots ("unlimited" when there is no seat limit) and waiting-list length.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.GetEventSuccessResponse "data contains event and availability"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// AvailableSlotsResponse is the data payload for GET /events/{eventID}/slots.
// AvailableSlots is the string "unlimited" when the event has no seat limit.
type AvailableSlotsResponse struct {
	EventID        string       `json:"event_id"`
	AvailableSlots domain.Slots `json:"available_slots" swaggertype:"integer"`
	Unlimited      bool         `json:"unlimited"`
}

// AvailableSlots godoc
// @Summary Get the free seats of an event
// @Description Capacity minus active (pending or confirmed) registrations.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=controllers.AvailableSlotsResponse}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/slots [get]
func (c *EventController) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	slots, err := c.Service.AvailableSlots(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, AvailableSlotsResponse{
		EventID:        eventID,
		AvailableSlots: slots,
		Unlimited:      slots.IsUnlimited(),
	})
}

// UpdateCapacityRequest is the request body for PATCH /events/{eventID}/capacity.
// Send either capacity or unlimited=true.
type UpdateCapacityRequest struct {
	Capacity  *int `json:"capacity"`
	Unlimited bool `json:"unlimited"`
}

// Validate implements Validator.
func (u UpdateCapacityRequest) Validate() []string {
	switch {
	case u.Unlimited && u.Capacity != nil:
		return []string{"capacity: must be empty when unlimited is set"}
	case !u.Unlimited && u.Capacity == nil:
		return []string{"capacity: is required unless unlimited is set"}
	}
	return helpers.ValidationMessages(validation.ValidateStruct(&u,
		validation.Field(&u.Capacity, validation.Min(0)),
	))
}

func (u UpdateCapacityRequest) capacity() domain.Capacity {
	if u.Unlimited {
		return domain.UnlimitedCapacity()
	}
	return domain.MustBoundedCapacity(*u.Capacity)
}

// UpdateCapacityResponse is the data payload for PATCH /events/{eventID}/capacity.
type UpdateCapacityResponse struct {
	Event    *domain.Event          `json:"event"`
	Promoted []*domain.Registration `json:"promoted"`
}

// UpdateCapacity godoc
// @Summary Change the capacity of an event
// @Description Lowering below the seats already held fails with conflict. Added seats are handed to the waiting list in FIFO order; the promoted registrations are returned. Only the event manager or an admin.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateCapacityRequest true "New capacity"
// @Success 200 {object} helpers.APIResponse{data=controllers.UpdateCapacityResponse}
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID}/capacity [patch]
func (c *EventController) UpdateCapacity(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateCapacityRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	event, promoted, err := c.Service.UpdateCapacity(r.Context(), eventID, userID, req.capacity())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if promoted == nil {
		promoted = []*domain.Registration{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UpdateCapacityResponse{Event: event, Promoted: promoted})
}

// DeleteEventResponse is the data payload for DELETE /events/{eventID} (200).
type DeleteEventResponse struct {
	Status string `json:"status"`
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes an event that has no registrations. Only the event manager or an admin.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse{data=controllers.DeleteEventResponse}
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (event has registrations)"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID, userID); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{Status: "deleted"})
}
