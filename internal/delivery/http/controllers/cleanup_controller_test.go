package controllers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventregistry/internal/domain"
)

func TestRunCleanup(t *testing.T) {
	t.Run("all categories", func(t *testing.T) {
		svc := &fakeCleanupService{summary: &domain.CleanupSummary{
			Success: true,
			Results: map[domain.CleanupCategory]int64{domain.CleanupOldAuditLogs: 3},
			Errors:  []string{},
		}}
		c := NewCleanupController(testLogger, svc)

		rr := serve(t, "POST /cron/cleanup", c.RunCleanup, http.MethodPost, "/cron/cleanup", "", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, svc.selection, len(domain.CleanupCategories))
		var data domain.CleanupSummary
		decodeEnvelope(t, rr, &data)
		assert.Equal(t, int64(3), data.Results[domain.CleanupOldAuditLogs])
	})

	t.Run("selected categories", func(t *testing.T) {
		svc := &fakeCleanupService{summary: &domain.CleanupSummary{Success: true}}
		c := NewCleanupController(testLogger, svc)

		rr := serve(t, "POST /cron/cleanup", c.RunCleanup, http.MethodPost,
			"/cron/cleanup?categories=oldAuditLogs,failedPayments", "", "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.CleanupSelection{
			domain.CleanupOldAuditLogs:   true,
			domain.CleanupFailedPayments: true,
		}, svc.selection)
	})

	t.Run("unknown category", func(t *testing.T) {
		svc := &fakeCleanupService{}
		c := NewCleanupController(testLogger, svc)

		rr := serve(t, "POST /cron/cleanup", c.RunCleanup, http.MethodPost, "/cron/cleanup?categories=everything", "", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, svc.selection)
	})

	t.Run("database unreachable", func(t *testing.T) {
		svc := &fakeCleanupService{err: &domain.PersistenceError{Op: "ping", Err: errors.New("refused"), Transient: true}}
		c := NewCleanupController(testLogger, svc)

		rr := serve(t, "POST /cron/cleanup", c.RunCleanup, http.MethodPost, "/cron/cleanup", "", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
