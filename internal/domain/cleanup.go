package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CleanupCategory names one class of rows purged by the retention sweeper.
type CleanupCategory string

const (
	CleanupExpiredUserRoles       CleanupCategory = "expiredUserRoles"
	CleanupOldAuditLogs           CleanupCategory = "oldAuditLogs"
	CleanupFailedPayments         CleanupCategory = "failedPayments"
	CleanupExpiredWaitingList     CleanupCategory = "expiredWaitingList"
	CleanupCancelledRegistrations CleanupCategory = "cancelledRegistrations"
	CleanupOldNotificationLogs    CleanupCategory = "oldNotificationLogs"
)

// CleanupCategories lists every category in the order the sweeper runs them.
var CleanupCategories = []CleanupCategory{
	CleanupExpiredUserRoles,
	CleanupOldAuditLogs,
	CleanupFailedPayments,
	CleanupExpiredWaitingList,
	CleanupCancelledRegistrations,
	CleanupOldNotificationLogs,
}

// ParseCleanupCategory accepts a category name.
func ParseCleanupCategory(s string) (CleanupCategory, error) {
	s = strings.TrimSpace(s)
	for _, c := range CleanupCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown cleanup category %q", ErrInvalidInput, s)
}

// CleanupSelection is the set of categories a sweeper run should process.
type CleanupSelection map[CleanupCategory]bool

// SelectAll returns a selection containing every category.
func SelectAll() CleanupSelection {
	sel := make(CleanupSelection, len(CleanupCategories))
	for _, c := range CleanupCategories {
		sel[c] = true
	}
	return sel
}

// ParseCleanupSelection builds a selection from category names. An empty
// list selects every category.
func ParseCleanupSelection(names []string) (CleanupSelection, error) {
	sel := make(CleanupSelection)
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			c, err := ParseCleanupCategory(name)
			if err != nil {
				return nil, err
			}
			sel[c] = true
		}
	}
	if len(sel) == 0 {
		return SelectAll(), nil
	}
	return sel, nil
}

// RetentionPolicy is the age after which rows of each category are purged.
type RetentionPolicy map[CleanupCategory]time.Duration

const day = 24 * time.Hour

// DefaultRetentionPolicy returns the standard retention windows.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		CleanupExpiredUserRoles:       30 * day,
		CleanupOldAuditLogs:           90 * day,
		CleanupFailedPayments:         7 * day,
		CleanupExpiredWaitingList:     7 * day,
		CleanupCancelledRegistrations: 30 * day,
		CleanupOldNotificationLogs:    60 * day,
	}
}

// CleanupSummary is the JSON result of one sweeper run. Results only holds
// the categories that were selected and succeeded.
type CleanupSummary struct {
	Success bool                      `json:"success"`
	Results map[CleanupCategory]int64 `json:"results"`
	Errors  []string                  `json:"errors"`
}

// CleanupRepository purges rows older than a cutoff.
type CleanupRepository interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error
	Purge(ctx context.Context, category CleanupCategory, cutoff time.Time) (int64, error)
}

// CleanupService runs the retention sweeper.
type CleanupService interface {
	Run(ctx context.Context, selection CleanupSelection) (*CleanupSummary, error)
}
