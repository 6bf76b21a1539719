package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCleanupSelection(t *testing.T) {
	sel, err := ParseCleanupSelection(nil)
	require.NoError(t, err)
	assert.Len(t, sel, len(CleanupCategories))

	sel, err = ParseCleanupSelection([]string{"oldAuditLogs, failedPayments", ""})
	require.NoError(t, err)
	assert.Equal(t, CleanupSelection{CleanupOldAuditLogs: true, CleanupFailedPayments: true}, sel)

	_, err = ParseCleanupSelection([]string{"everything"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDefaultRetentionPolicy(t *testing.T) {
	p := DefaultRetentionPolicy()
	assert.Equal(t, 90*24*time.Hour, p[CleanupOldAuditLogs])
	assert.Equal(t, 7*24*time.Hour, p[CleanupExpiredWaitingList])
	for _, c := range CleanupCategories {
		assert.Positive(t, p[c], string(c))
	}
}

func TestIsTransient(t *testing.T) {
	err := &PersistenceError{Op: "lock event", Err: assert.AnError, Transient: true}
	assert.True(t, IsTransient(err))
	assert.False(t, IsTransient(&PersistenceError{Err: assert.AnError}))
	assert.False(t, IsTransient(ErrNotFound))
	assert.True(t, IsBusinessError(ErrDuplicateWaitlist))
	assert.False(t, IsBusinessError(err))
}
