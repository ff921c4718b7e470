package factors

import (
	"strings"
	"time"

	"leadscore_backend/internal/scoring/domain"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func activityAgo(activityType domain.ActivityType, direction domain.Direction, age time.Duration) domain.Activity {
	return domain.Activity{
		ID:         uuid.New(),
		LeadID:     uuid.New(),
		Type:       activityType,
		Direction:  direction,
		OccurredAt: testNow.Add(-age),
	}
}

func window(activities ...domain.Activity) domain.ActivityWindow {
	return domain.ActivityWindow{Activities: activities, Now: testNow}
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func int64Ptr(n int64) *int64 { return &n }

func floatPtr(f float64) *float64 { return &f }

func hasSignal(signals []domain.Signal, substr string) bool {
	for _, s := range signals {
		if strings.Contains(s.Label, substr) {
			return true
		}
	}
	return false
}
