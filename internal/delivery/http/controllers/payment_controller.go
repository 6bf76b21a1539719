package controllers

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/domain"
)

// PaymentController serves payment creation for registrants and the
// correlation endpoints called by the payment provider.
type PaymentController struct {
	Logger  *slog.Logger
	Service domain.PaymentService
}

func NewPaymentController(logger *slog.Logger, svc domain.PaymentService) *PaymentController {
	return &PaymentController{
		Logger:  logger,
		Service: svc,
	}
}

// PaymentSuccessResponse is the success response envelope for a single payment.
type PaymentSuccessResponse struct {
	Success bool              `json:"success"`
	Data    *domain.Payment   `json:"data"`
	Error   *helpers.APIError `json:"error"`
}

// CreatePayment godoc
// @Summary Create the payment for a pending registration
// @Description Creates a pending payment for the event price with a unique 10-digit variable symbol and links it to the registration. The registrant, the event manager or an admin.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 201 {object} controllers.PaymentSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /registrations/{registrationID}/payments [post]
func (c *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := helpers.PathUUID(w, r, "registrationID")
	if !ok {
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := c.Service.CreatePayment(r.Context(), registrationID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, p)
}

// LinkPayment godoc
// @Summary Link an existing payment to a registration
// @Description Called by the payment integration. A payment and a registration are linked at most once. Linking a settled payment confirms a pending registration.
// @Tags payments
// @Produce json
// @Security WebhookSecret
// @Param registrationID path string true "Registration ID (UUID)"
// @Param paymentID path string true "Payment ID (UUID)"
// @Success 200 {object} controllers.PaymentSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already linked)"
// @Router /registrations/{registrationID}/payments/{paymentID} [post]
func (c *PaymentController) LinkPayment(w http.ResponseWriter, r *http.Request) {
	registrationID, ok := helpers.PathUUID(w, r, "registrationID")
	if !ok {
		return
	}
	paymentID, ok := helpers.PathUUID(w, r, "paymentID")
	if !ok {
		return
	}
	p, err := c.Service.LinkPayment(r.Context(), registrationID, paymentID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}

// PaymentStatusRequest is the request body for POST /payments/{paymentID}/status.
type PaymentStatusRequest struct {
	Status string `json:"status"`
}

// Validate implements Validator.
func (p PaymentStatusRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&p,
		validation.Field(&p.Status, validation.Required, validation.In(
			string(domain.PaymentPending),
			string(domain.PaymentConfirmed),
			string(domain.PaymentFailed),
			string(domain.PaymentCancelled),
		)),
	))
}

// UpdateStatus godoc
// @Summary Payment status webhook
// @Description Records a status reported by the payment provider. A settled payment confirms its pending registration; a failed or cancelled one cancels it and promotes the waiting list. Repeating the current status is a no-op.
// @Tags payments
// @Accept json
// @Produce json
// @Security WebhookSecret
// @Param paymentID path string true "Payment ID (UUID)"
// @Param body body PaymentStatusRequest true "New status"
// @Success 200 {object} controllers.PaymentSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (invalid transition)"
// @Router /payments/{paymentID}/status [post]
func (c *PaymentController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := helpers.PathUUID(w, r, "paymentID")
	if !ok {
		return
	}
	var req PaymentStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, err := c.Service.OnPaymentStatusChange(r.Context(), paymentID, domain.PaymentStatus(req.Status))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, p)
}
