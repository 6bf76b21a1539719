package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventregistry/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("get event: %w", domain.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{fmt.Errorf("%w: bad", domain.ErrInvalidInput), http.StatusBadRequest, ErrCodeBadRequest},
		{domain.ErrDuplicateRegistration, http.StatusConflict, ErrCodeConflict},
		{domain.ErrDuplicateWaitlist, http.StatusConflict, ErrCodeConflict},
		{domain.ErrInvalidTransition, http.StatusConflict, ErrCodeConflict},
		{domain.ErrPaymentAlreadyLinked, http.StatusConflict, ErrCodeConflict},
		{domain.ErrPaymentNotSettled, http.StatusConflict, ErrCodeConflict},
		{domain.ErrCapacityExceeded, http.StatusConflict, ErrCodeConflict},
		{domain.ErrEventHasRegistrations, http.StatusConflict, ErrCodeConflict},
		{&domain.PersistenceError{Op: "x", Err: errors.New("down")}, http.StatusInternalServerError, ErrCodeInternalError},
		{errors.New("unexpected"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := StatusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSONSuccess(rr, http.StatusCreated, map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"n":1},"error":null}`, rr.Body.String())

	rr = httptest.NewRecorder()
	WriteJSONError(rr, http.StatusConflict, ErrCodeConflict, "taken")
	assert.JSONEq(t, `{"success":false,"data":null,"error":{"code":"conflict","message":"taken"}}`, rr.Body.String())
}

type sampleRequest struct {
	Name  string `json:"name"`
	Seats int    `json:"seats"`
}

func (s sampleRequest) Validate() []string {
	return ValidationMessages(validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Seats, validation.Min(1)),
	))
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOK  bool
		wantMsg string
	}{
		{name: "valid", body: `{"name":"a","seats":2}`, wantOK: true},
		{name: "invalid json", body: `{`, wantMsg: "unexpected EOF"},
		{name: "unknown field", body: `{"name":"a","extra":1}`, wantMsg: "unknown field"},
		{name: "rules", body: `{"seats":0}`, wantMsg: "name: cannot be blank; seats: must be no less than 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			var dest sampleRequest

			ok := DecodeAndValidate(rr, req, &dest)

			require.Equal(t, tt.wantOK, ok)
			if ok {
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var env APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
			assert.Contains(t, env.Error.Message, tt.wantMsg)
		})
	}
}

func TestPathUUID(t *testing.T) {
	var got string
	var ok bool
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events/{eventID}", func(w http.ResponseWriter, r *http.Request) {
		got, ok = PathUUID(w, r, "eventID")
	})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/6F1C2F62-9D0E-4B4F-8A59-1F7D2C3E4A10", nil))
	assert.True(t, ok)
	assert.Equal(t, "6f1c2f62-9d0e-4b4f-8a59-1f7d2c3e4a10", got)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/events/123", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query  string
		bounds PageBounds
		want   domain.PaginationParams
		wantOK bool
	}{
		{"", EventPages, domain.PaginationParams{Page: 1, PageSize: 20}, true},
		{"", WaitlistPages, domain.PaginationParams{Page: 1, PageSize: 50}, true},
		{"page=3&page_size=10", EventPages, domain.PaginationParams{Page: 3, PageSize: 10}, true},
		{"page_size=1000", EventPages, domain.PaginationParams{Page: 1, PageSize: 100}, true},
		{"page_size=1000", WaitlistPages, domain.PaginationParams{Page: 1, PageSize: 500}, true},
		{"page=0", EventPages, domain.PaginationParams{}, false},
		{"page_size=-5", EventPages, domain.PaginationParams{}, false},
		{"page=abc", EventPages, domain.PaginationParams{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/events?"+tt.query, nil)
			got, ok := ParsePagination(rr, req, tt.bounds)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
			}
		})
	}
}

func TestNewPaginationMeta(t *testing.T) {
	assert.Equal(t, PaginationMeta{Page: 1, PageSize: 20, Total: 41, TotalPages: 3, HasNext: true},
		NewPaginationMeta(domain.PaginationParams{Page: 1, PageSize: 20}, 41))
	assert.False(t, NewPaginationMeta(domain.PaginationParams{Page: 3, PageSize: 20}, 41).HasNext)
	assert.Equal(t, 0, NewPaginationMeta(domain.PaginationParams{Page: 1}, 5).TotalPages)
}
