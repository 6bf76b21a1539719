package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventregistry/internal/delivery/http/helpers"
	"eventregistry/internal/domain"
)

func TestCreateEvent(t *testing.T) {
	const validBody = `{"title":"Go meetup","starts_at":"2026-06-01T18:00:00Z","ends_at":"2026-06-01T21:00:00Z","capacity":10}`

	tests := []struct {
		name         string
		body         string
		userID       string
		svcErr       error
		wantStatus   int
		wantCode     string
		wantCapacity string
	}{
		{name: "created", body: validBody, userID: testUserID, wantStatus: http.StatusCreated, wantCapacity: "10"},
		{
			name:         "unlimited when capacity omitted",
			body:         `{"title":"Open day","starts_at":"2026-06-01T18:00:00Z","ends_at":"2026-06-01T21:00:00Z"}`,
			userID:       testUserID,
			wantStatus:   http.StatusCreated,
			wantCapacity: "unlimited",
		},
		{name: "missing title", body: `{"starts_at":"2026-06-01T18:00:00Z","ends_at":"2026-06-01T21:00:00Z"}`, userID: testUserID, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "negative capacity", body: `{"title":"x","starts_at":"2026-06-01T18:00:00Z","ends_at":"2026-06-01T21:00:00Z","capacity":-1}`, userID: testUserID, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "ends before start", body: `{"title":"x","starts_at":"2026-06-01T18:00:00Z","ends_at":"2026-06-01T17:00:00Z"}`, userID: testUserID, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "paid without price", body: `{"title":"x","starts_at":"2026-06-01T18:00:00Z","ends_at":"2026-06-01T21:00:00Z","requires_payment":true}`, userID: testUserID, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unknown field", body: `{"title":"x","venue":"y"}`, userID: testUserID, wantStatus: http.StatusBadRequest, wantCode: helpers.ErrCodeBadRequest},
		{name: "unauthenticated", body: validBody, wantStatus: http.StatusUnauthorized, wantCode: helpers.ErrCodeUnauthorized},
		{name: "not a manager", body: validBody, userID: testUserID, svcErr: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: helpers.ErrCodeForbidden},
		{name: "storage failure", body: validBody, userID: testUserID, svcErr: &domain.PersistenceError{Op: "insert event", Err: fmt.Errorf("boom")}, wantStatus: http.StatusInternalServerError, wantCode: helpers.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{createErr: tt.svcErr}
			c := NewEventController(testLogger, svc)

			rr := serve(t, "POST /events", c.CreateEvent, http.MethodPost, "/events", tt.body, tt.userID)

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			env := decodeEnvelope(t, rr, nil)
			if tt.wantCode != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantCode, env.Error.Code)
				assert.False(t, env.Success)
				return
			}
			assert.True(t, env.Success)
			assert.Equal(t, tt.userID, svc.lastActor)
			assert.Equal(t, tt.wantCapacity, svc.lastCreate.Capacity.String())
		})
	}
}

func TestCreateEvent_InternalErrorHidesDetails(t *testing.T) {
	svc := &fakeEventService{createErr: &domain.PersistenceError{Op: "insert event", Err: fmt.Errorf("password=hunter2")}}
	c := NewEventController(testLogger, svc)

	rr := serve(t, "POST /events", c.CreateEvent, http.MethodPost, "/events",
		`{"title":"x","starts_at":"2026-06-01T18:00:00Z","ends_at":"2026-06-01T21:00:00Z"}`, testUserID)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hunter2")
}

func TestListEvents(t *testing.T) {
	svc := &fakeEventService{
		events: []*domain.Event{{ID: testEventID, Title: "Go meetup"}},
		total:  41,
	}
	c := NewEventController(testLogger, svc)

	rr := serve(t, "GET /events", c.ListEvents, http.MethodGet, "/events?page=2&page_size=20", "", testUserID)

	require.Equal(t, http.StatusOK, rr.Code)
	var data ListEventsResponse
	decodeEnvelope(t, rr, &data)
	assert.Len(t, data.Items, 1)
	assert.Equal(t, helpers.PaginationMeta{Page: 2, PageSize: 20, Total: 41, TotalPages: 3, HasNext: true}, data.Pagination)
	assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 20}, svc.lastParams)
}

func TestListEvents_MalformedPage(t *testing.T) {
	svc := &fakeEventService{}
	c := NewEventController(testLogger, svc)

	rr := serve(t, "GET /events", c.ListEvents, http.MethodGet, "/events?page=zero", "", testUserID)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, svc.lastParams)
}

func TestGetEvent(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		svc        *fakeEventService
		wantStatus int
	}{
		{
			name:   "found",
			target: "/events/" + testEventID,
			svc: &fakeEventService{getResult: &domain.EventWithSlots{
				Event:          &domain.Event{ID: testEventID, Capacity: domain.MustBoundedCapacity(2)},
				AvailableSlots: domain.SlotCount(1),
			}},
			wantStatus: http.StatusOK,
		},
		{name: "not found", target: "/events/" + testEventID, svc: &fakeEventService{getErr: fmt.Errorf("get event: %w", domain.ErrNotFound)}, wantStatus: http.StatusNotFound},
		{name: "invalid id", target: "/events/not-a-uuid", svc: &fakeEventService{}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewEventController(testLogger, tt.svc)
			rr := serve(t, "GET /events/{eventID}", c.GetEvent, http.MethodGet, tt.target, "", testUserID)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestAvailableSlots(t *testing.T) {
	t.Run("bounded", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{slots: domain.SlotCount(3)})
		rr := serve(t, "GET /events/{eventID}/slots", c.AvailableSlots, http.MethodGet, "/events/"+testEventID+"/slots", "", testUserID)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true,"data":{"event_id":"`+testEventID+`","available_slots":3,"unlimited":false},"error":null}`, rr.Body.String())
	})

	t.Run("unlimited", func(t *testing.T) {
		c := NewEventController(testLogger, &fakeEventService{slots: domain.UnlimitedSlots()})
		rr := serve(t, "GET /events/{eventID}/slots", c.AvailableSlots, http.MethodGet, "/events/"+testEventID+"/slots", "", testUserID)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true,"data":{"event_id":"`+testEventID+`","available_slots":"unlimited","unlimited":true},"error":null}`, rr.Body.String())
	})
}

func TestUpdateCapacity(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		svcErr       error
		wantStatus   int
		wantCapacity string
	}{
		{name: "bounded", body: `{"capacity":5}`, wantStatus: http.StatusOK, wantCapacity: "5"},
		{name: "unlimited", body: `{"unlimited":true}`, wantStatus: http.StatusOK, wantCapacity: "unlimited"},
		{name: "neither", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "both", body: `{"capacity":5,"unlimited":true}`, wantStatus: http.StatusBadRequest},
		{name: "negative", body: `{"capacity":-3}`, wantStatus: http.StatusBadRequest},
		{name: "below held seats", body: `{"capacity":1}`, svcErr: domain.ErrCapacityExceeded, wantStatus: http.StatusConflict},
		{name: "not the manager", body: `{"capacity":9}`, svcErr: domain.ErrForbidden, wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{updateErr: tt.svcErr, promoted: []*domain.Registration{{ID: "r1"}}}
			c := NewEventController(testLogger, svc)

			rr := serve(t, "PATCH /events/{eventID}/capacity", c.UpdateCapacity, http.MethodPatch,
				"/events/"+testEventID+"/capacity", tt.body, testUserID)

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantCapacity, svc.lastCapacity.String())
			var data UpdateCapacityResponse
			decodeEnvelope(t, rr, &data)
			assert.Len(t, data.Promoted, 1)
		})
	}
}

func TestDeleteEvent(t *testing.T) {
	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
	}{
		{name: "deleted", wantStatus: http.StatusOK},
		{name: "has registrations", svcErr: domain.ErrEventHasRegistrations, wantStatus: http.StatusConflict},
		{name: "missing", svcErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{deleteErr: tt.svcErr}
			c := NewEventController(testLogger, svc)

			rr := serve(t, "DELETE /events/{eventID}", c.DeleteEvent, http.MethodDelete, "/events/"+testEventID, "", testUserID)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, testEventID, svc.lastDeletedID)
		})
	}
}
