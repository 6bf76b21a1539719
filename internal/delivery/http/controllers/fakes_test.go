package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/delivery/http/middleware"
	"eventregistry/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testEventID        = "6f1c2f62-9d0e-4b4f-8a59-1f7d2c3e4a10"
	testRegistrationID = "0b9a7e55-3c7d-4e1f-9a2b-8c6d5e4f3a21"
	testPaymentID      = "c4d3e2f1-a0b9-4c8d-8e7f-6a5b4c3d2e32"
	testUserID         = "user-1"
)

// serve routes a single request through a ServeMux so path values are populated.
func serve(t *testing.T, pattern string, handler http.HandlerFunc, method, target, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), domain.Principal{UserID: userID}))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// decodeEnvelope decodes the response envelope, unmarshalling data into dest when non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var raw struct {
		Success bool              `json:"success"`
		Data    json.RawMessage   `json:"data"`
		Error   *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if dest != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, dest))
	}
	return helpers.APIResponse{Success: raw.Success, Error: raw.Error}
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	createErr     error
	lastCreate    domain.CreateEventInput
	lastActor     string
	events        []*domain.Event
	total         int
	lastParams    domain.PaginationParams
	getResult     *domain.EventWithSlots
	getErr        error
	slots         domain.Slots
	slotsErr      error
	updateErr     error
	lastCapacity  domain.Capacity
	promoted      []*domain.Registration
	deleteErr     error
	lastDeletedID string
	listErr       error
}

func (f *fakeEventService) CreateEvent(_ context.Context, actorID string, in domain.CreateEventInput) (*domain.Event, error) {
	f.lastActor = actorID
	f.lastCreate = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domain.Event{ID: testEventID, Title: in.Title, Capacity: in.Capacity, ManagerID: actorID}, nil
}

func (f *fakeEventService) GetEvent(_ context.Context, eventID string) (*domain.EventWithSlots, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getResult, nil
}

func (f *fakeEventService) ListEvents(_ context.Context, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastParams = params
	return f.events, f.total, f.listErr
}

func (f *fakeEventService) UpdateCapacity(_ context.Context, eventID, actorID string, capacity domain.Capacity) (*domain.Event, []*domain.Registration, error) {
	f.lastActor = actorID
	f.lastCapacity = capacity
	if f.updateErr != nil {
		return nil, nil, f.updateErr
	}
	return &domain.Event{ID: eventID, Capacity: capacity}, f.promoted, nil
}

func (f *fakeEventService) DeleteEvent(_ context.Context, eventID, actorID string) error {
	f.lastDeletedID = eventID
	f.lastActor = actorID
	return f.deleteErr
}

func (f *fakeEventService) AvailableSlots(_ context.Context, eventID string) (domain.Slots, error) {
	return f.slots, f.slotsErr
}

// fakeRegistrationService implements domain.RegistrationService.
type fakeRegistrationService struct {
	result     *domain.RegistrationResult
	err        error
	reg        *domain.Registration
	regs       []*domain.Registration
	lastUser   string
	lastEvent  string
	lastActor  string
	lastStatus domain.RegistrationStatus
	lastOp     string
}

func (f *fakeRegistrationService) Register(_ context.Context, userID, eventID string) (*domain.RegistrationResult, error) {
	f.lastUser, f.lastEvent = userID, eventID
	return f.result, f.err
}

func (f *fakeRegistrationService) ConfirmPayment(_ context.Context, registrationID string) (*domain.Registration, error) {
	f.lastOp = "confirm"
	return f.reg, f.err
}

func (f *fakeRegistrationService) Cancel(_ context.Context, registrationID, actorID string) (*domain.Registration, error) {
	f.lastOp, f.lastActor = "cancel", actorID
	return f.reg, f.err
}

func (f *fakeRegistrationService) Reject(_ context.Context, registrationID, actorID string) (*domain.Registration, error) {
	f.lastOp, f.lastActor = "reject", actorID
	return f.reg, f.err
}

func (f *fakeRegistrationService) Get(_ context.Context, registrationID, actorID string) (*domain.Registration, error) {
	f.lastOp, f.lastActor = "get", actorID
	return f.reg, f.err
}

func (f *fakeRegistrationService) ListByUser(_ context.Context, userID string) ([]*domain.Registration, error) {
	f.lastUser = userID
	return f.regs, f.err
}

func (f *fakeRegistrationService) ListByEvent(_ context.Context, eventID, actorID string, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	f.lastEvent, f.lastActor, f.lastStatus = eventID, actorID, status
	return f.regs, f.err
}

// fakeWaitlistService implements domain.WaitlistService.
type fakeWaitlistService struct {
	entries    []*domain.WaitlistEntry
	total      int
	position   int
	promotion  *domain.Promotion
	err        error
	lastActor  string
	lastUser   string
	lastParams domain.PaginationParams
}

func (f *fakeWaitlistService) Enqueue(_ context.Context, userID, eventID string) (*domain.WaitlistEntry, int, error) {
	return nil, 0, f.err
}

func (f *fakeWaitlistService) PromoteNext(_ context.Context, eventID, actorID string) (*domain.Promotion, error) {
	f.lastActor = actorID
	return f.promotion, f.err
}

func (f *fakeWaitlistService) Leave(_ context.Context, userID, eventID string) error {
	f.lastUser = userID
	return f.err
}

func (f *fakeWaitlistService) Position(_ context.Context, userID, eventID string) (int, error) {
	f.lastUser = userID
	return f.position, f.err
}

func (f *fakeWaitlistService) List(_ context.Context, eventID, actorID string, params domain.PaginationParams) ([]*domain.WaitlistEntry, int, error) {
	f.lastActor = actorID
	f.lastParams = params
	return f.entries, f.total, f.err
}

// fakePaymentService implements domain.PaymentService.
type fakePaymentService struct {
	payment    *domain.Payment
	err        error
	lastStatus domain.PaymentStatus
	lastActor  string
	lastReg    string
	lastPay    string
}

func (f *fakePaymentService) CreatePayment(_ context.Context, registrationID, actorID string) (*domain.Payment, error) {
	f.lastReg, f.lastActor = registrationID, actorID
	return f.payment, f.err
}

func (f *fakePaymentService) LinkPayment(_ context.Context, registrationID, paymentID string) (*domain.Payment, error) {
	f.lastReg, f.lastPay = registrationID, paymentID
	return f.payment, f.err
}

func (f *fakePaymentService) OnPaymentStatusChange(_ context.Context, paymentID string, status domain.PaymentStatus) (*domain.Payment, error) {
	f.lastPay, f.lastStatus = paymentID, status
	return f.payment, f.err
}

// fakeCleanupService implements domain.CleanupService.
type fakeCleanupService struct {
	summary   *domain.CleanupSummary
	err       error
	selection domain.CleanupSelection
}

func (f *fakeCleanupService) Run(_ context.Context, selection domain.CleanupSelection) (*domain.CleanupSummary, error) {
	f.selection = selection
	return f.summary, f.err
}
