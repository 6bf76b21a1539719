package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventregistry/internal/domain"
)

func TestCreatePayment(t *testing.T) {
	svc := &fakePaymentService{payment: &domain.Payment{ID: testPaymentID, VariableSymbol: "0123456789", Status: domain.PaymentPending}}
	c := NewPaymentController(testLogger, svc)

	rr := serve(t, "POST /registrations/{registrationID}/payments", c.CreatePayment, http.MethodPost,
		"/registrations/"+testRegistrationID+"/payments", "", testUserID)

	require.Equal(t, http.StatusCreated, rr.Code)
	var data domain.Payment
	decodeEnvelope(t, rr, &data)
	assert.Equal(t, "0123456789", data.VariableSymbol)
	assert.Equal(t, testRegistrationID, svc.lastReg)
	assert.Equal(t, testUserID, svc.lastActor)
}

func TestLinkPayment(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "linked", wantStatus: http.StatusOK},
		{name: "already linked", err: domain.ErrPaymentAlreadyLinked, wantStatus: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakePaymentService{payment: &domain.Payment{ID: testPaymentID}, err: tt.err}
			c := NewPaymentController(testLogger, svc)

			rr := serve(t, "POST /registrations/{registrationID}/payments/{paymentID}", c.LinkPayment, http.MethodPost,
				"/registrations/"+testRegistrationID+"/payments/"+testPaymentID, "", "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, testRegistrationID, svc.lastReg)
			assert.Equal(t, testPaymentID, svc.lastPay)
		})
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantSent   domain.PaymentStatus
	}{
		{name: "confirmed", body: `{"status":"CONFIRMED"}`, wantStatus: http.StatusOK, wantSent: domain.PaymentConfirmed},
		{name: "failed", body: `{"status":"FAILED"}`, wantStatus: http.StatusOK, wantSent: domain.PaymentFailed},
		{name: "unknown status", body: `{"status":"REFUNDED"}`, wantStatus: http.StatusBadRequest},
		{name: "missing status", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "terminal payment", body: `{"status":"CONFIRMED"}`, err: domain.ErrInvalidTransition, wantStatus: http.StatusConflict, wantSent: domain.PaymentConfirmed},
		{name: "unknown payment", body: `{"status":"CONFIRMED"}`, err: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantSent: domain.PaymentConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakePaymentService{payment: &domain.Payment{ID: testPaymentID}, err: tt.err}
			c := NewPaymentController(testLogger, svc)

			rr := serve(t, "POST /payments/{paymentID}/status", c.UpdateStatus, http.MethodPost,
				"/payments/"+testPaymentID+"/status", tt.body, "")

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantSent, svc.lastStatus)
		})
	}
}
