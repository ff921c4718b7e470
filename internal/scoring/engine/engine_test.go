package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"leadscore_backend/internal/scoring/domain"
	"leadscore_backend/internal/scoring/factors"
	"leadscore_backend/platform/apperr"
	"leadscore_backend/platform/events"
	"leadscore_backend/platform/leaselock"
	"leadscore_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// fakeRepository is an in-memory Repository with the same idempotency
// semantics as the Postgres implementation.
type fakeRepository struct {
	mu         sync.Mutex
	lead       domain.LeadSnapshot
	activities []domain.Activity
	settings   domain.TenantSettings
	committed  []domain.LeadScore
	byActivity map[uuid.UUID]domain.LeadScore
}

func newFakeRepository(lead domain.LeadSnapshot, activities []domain.Activity) *fakeRepository {
	return &fakeRepository{
		lead:       lead,
		activities: activities,
		settings:   domain.DefaultSettings(),
		byActivity: make(map[uuid.UUID]domain.LeadScore),
	}
}

func (f *fakeRepository) GetLeadSnapshot(_ context.Context, leadID, organizationID uuid.UUID) (domain.LeadSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if leadID != f.lead.ID {
		return domain.LeadSnapshot{}, apperr.NotFound("lead not found")
	}
	if organizationID != f.lead.OrganizationID {
		return domain.LeadSnapshot{}, apperr.Forbidden("lead belongs to another organization")
	}
	return f.lead, nil
}

func (f *fakeRepository) GetScoreByActivity(_ context.Context, _, activityID uuid.UUID) (*domain.LeadScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.byActivity[activityID]; ok {
		return &record, nil
	}
	return nil, nil
}

func (f *fakeRepository) ListActivities(_ context.Context, _, _ uuid.UUID, since time.Time) ([]domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Activity, 0, len(f.activities))
	for _, a := range f.activities {
		if a.OccurredAt.After(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepository) GetSettings(_ context.Context, _ uuid.UUID) (domain.TenantSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings, nil
}

func (f *fakeRepository) CommitScore(_ context.Context, params CommitScoreParams) (domain.LeadScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byActivity[params.ActivityID]; ok {
		return existing, nil
	}
	record := domain.LeadScore{
		ID:               uuid.New(),
		LeadID:           params.LeadID,
		OrganizationID:   params.OrganizationID,
		ActivityID:       params.ActivityID,
		Score:            params.Score,
		Confidence:       params.Confidence,
		ModelVersion:     params.ModelVersion,
		Breakdown:        params.Breakdown,
		Explanation:      params.Explanation,
		Recommendations:  params.Recommendations,
		InsufficientData: params.InsufficientData,
		CreatedAt:        time.Now(),
	}
	f.committed = append(f.committed, record)
	f.byActivity[params.ActivityID] = record
	return record, nil
}

func (f *fakeRepository) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

func testEngine(t *testing.T, repo Repository, scorers []factors.Scorer) *Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locks := leaselock.New(client, "lock:lead:", 5*time.Second)
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)

	return New(repo, locks, scorers, bus, log, nil, 2*time.Second)
}

func engagedLead() (domain.LeadSnapshot, []domain.Activity) {
	timeframe := 30
	lead := domain.LeadSnapshot{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		TimeframeDays:  &timeframe,
		CreatedAt:      time.Now().Add(-48 * time.Hour),
	}
	activity := domain.Activity{
		ID:             uuid.New(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		Type:           domain.ActivityMeeting,
		Direction:      domain.DirectionInbound,
		OccurredAt:     time.Now().Add(-24 * time.Hour),
	}
	return lead, []domain.Activity{activity}
}

func TestRecompute_FreshInboundMeetingScoresHot(t *testing.T) {
	lead, activities := engagedLead()
	repo := newFakeRepository(lead, activities)
	eng := testEngine(t, repo, nil)

	record, err := eng.Recompute(context.Background(), TriggerMessage{
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		ActivityID:     activities[0].ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Score <= 65 {
		t.Fatalf("expected an engaged, urgent lead to score above 65, got %v", record.Score)
	}
	if record.Confidence <= 0 {
		t.Fatalf("expected nonzero confidence, got %v", record.Confidence)
	}
	if record.InsufficientData {
		t.Fatalf("did not expect the insufficient data flag")
	}
	if record.ModelVersion != domain.ModelVersion {
		t.Fatalf("expected model version %q, got %q", domain.ModelVersion, record.ModelVersion)
	}
	if len(record.Breakdown) != 4 {
		t.Fatalf("expected all four factors in the breakdown, got %d", len(record.Breakdown))
	}
	if len(record.Explanation) == 0 {
		t.Fatalf("expected a non-empty explanation")
	}
	if len(record.Recommendations) == 0 || len(record.Recommendations) > 3 {
		t.Fatalf("expected 1-3 recommendations, got %v", record.Recommendations)
	}
}

func TestRecompute_BrandNewLeadIsInsufficient(t *testing.T) {
	lead := domain.LeadSnapshot{ID: uuid.New(), OrganizationID: uuid.New(), CreatedAt: time.Now()}
	activity := domain.Activity{
		ID:             uuid.New(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		Type:           domain.ActivityNote,
		Direction:      domain.DirectionOutbound,
		OccurredAt:     time.Now().Add(-200 * 24 * time.Hour), // outside the window
	}
	repo := newFakeRepository(lead, []domain.Activity{activity})
	eng := testEngine(t, repo, nil)

	record, err := eng.Recompute(context.Background(), TriggerMessage{
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		ActivityID:     activity.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Score != 50 || record.Confidence != 0 {
		t.Fatalf("expected neutral 50 with zero confidence, got %v / %v", record.Score, record.Confidence)
	}
	if !record.InsufficientData {
		t.Fatalf("expected the insufficient data flag")
	}
	if record.Explanation[0] != InsufficientDataMarker {
		t.Fatalf("expected the insufficient data marker, got %v", record.Explanation)
	}
	if record.Recommendations[0] != recCollectData {
		t.Fatalf("expected the collect-data recommendation, got %v", record.Recommendations)
	}
}

func TestRecompute_DuplicateActivityIsIdempotent(t *testing.T) {
	lead, activities := engagedLead()
	repo := newFakeRepository(lead, activities)
	eng := testEngine(t, repo, nil)

	msg := TriggerMessage{LeadID: lead.ID, OrganizationID: lead.OrganizationID, ActivityID: activities[0].ID}

	first, err := eng.Recompute(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := eng.Recompute(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error on duplicate: %v", err)
	}

	if repo.commitCount() != 1 {
		t.Fatalf("expected exactly one committed record, got %d", repo.commitCount())
	}
	if first.ID != second.ID {
		t.Fatalf("expected the duplicate to return the original record, got %v vs %v", first.ID, second.ID)
	}
}

func TestRecompute_ConcurrentTriggersBothCommit(t *testing.T) {
	lead, activities := engagedLead()
	extra := domain.Activity{
		ID:             uuid.New(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		Type:           domain.ActivityCall,
		Direction:      domain.DirectionInbound,
		OccurredAt:     time.Now().Add(-2 * time.Hour),
	}
	repo := newFakeRepository(lead, append(activities, extra))
	eng := testEngine(t, repo, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, activityID := range []uuid.UUID{activities[0].ID, extra.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Recompute(context.Background(), TriggerMessage{
				LeadID:         lead.ID,
				OrganizationID: lead.OrganizationID,
				ActivityID:     activityID,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error from concurrent trigger: %v", err)
		}
	}
	if repo.commitCount() != 2 {
		t.Fatalf("expected both activities to commit a record, got %d", repo.commitCount())
	}
}

// slowScorer blocks past any reasonable scorer budget.
type slowScorer struct{}

func (s *slowScorer) Name() domain.Factor { return domain.FactorConversational }

func (s *slowScorer) Score(ctx context.Context, _ domain.LeadSnapshot, _ domain.ActivityWindow, _ domain.TenantSettings) (domain.FactorScore, error) {
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
	}
	return domain.FactorScore{}, ctx.Err()
}

func TestRecompute_SlowScorerIsExcludedNotFatal(t *testing.T) {
	lead, activities := engagedLead()
	repo := newFakeRepository(lead, activities)
	repo.settings.ScorerTimeout = 50 * time.Millisecond
	repo.settings.RecomputeTimeout = 5 * time.Second

	scorers := []factors.Scorer{
		&factors.Demographic{},
		&factors.Behavioral{},
		&factors.Temporal{},
		&slowScorer{},
	}
	eng := testEngine(t, repo, scorers)

	record, err := eng.Recompute(context.Background(), TriggerMessage{
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		ActivityID:     activities[0].ID,
	})
	if err != nil {
		t.Fatalf("expected the run to succeed without the slow scorer, got %v", err)
	}

	if record.Score <= 65 {
		t.Fatalf("expected the remaining factors to carry the score above 65, got %v", record.Score)
	}
	conversational := record.Breakdown[domain.FactorConversational]
	if conversational.Confidence != 0 || conversational.Score != 50 {
		t.Fatalf("expected the timed-out factor to be neutral with zero confidence, got %+v", conversational)
	}

	found := false
	for _, line := range record.Explanation {
		if strings.Contains(line, "timed out") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the timeout to be visible in the explanation, got %v", record.Explanation)
	}
}

func TestRecompute_UnknownLeadIsPermanent(t *testing.T) {
	lead, activities := engagedLead()
	repo := newFakeRepository(lead, activities)
	eng := testEngine(t, repo, nil)

	_, err := eng.Recompute(context.Background(), TriggerMessage{
		LeadID:         uuid.New(),
		OrganizationID: lead.OrganizationID,
		ActivityID:     activities[0].ID,
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected a not-found error, got %v", err)
	}
	if apperr.IsRetryable(err) {
		t.Fatalf("a missing lead must not be retried")
	}
}

func TestRecompute_TenantMismatchIsForbidden(t *testing.T) {
	lead, activities := engagedLead()
	repo := newFakeRepository(lead, activities)
	eng := testEngine(t, repo, nil)

	_, err := eng.Recompute(context.Background(), TriggerMessage{
		LeadID:         lead.ID,
		OrganizationID: uuid.New(),
		ActivityID:     activities[0].ID,
	})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected a forbidden error, got %v", err)
	}
	if apperr.IsRetryable(err) {
		t.Fatalf("a tenant mismatch must not be retried")
	}
}

func TestRecompute_LockContentionIsRetryable(t *testing.T) {
	lead, activities := engagedLead()
	repo := newFakeRepository(lead, activities)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locks := leaselock.New(client, "lock:lead:", 5*time.Second)
	log := logger.New("development")
	eng := New(repo, locks, nil, events.NewInMemoryBus(log), log, nil, 100*time.Millisecond)

	lease, err := locks.Acquire(context.Background(), lead.ID.String(), 0)
	if err != nil {
		t.Fatalf("failed to pre-acquire the lock: %v", err)
	}
	defer func() { _ = lease.Release(context.Background()) }()

	_, err = eng.Recompute(context.Background(), TriggerMessage{
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		ActivityID:     activities[0].ID,
	})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected an unavailable error under contention, got %v", err)
	}
	if !apperr.IsRetryable(err) {
		t.Fatalf("lock contention must be retryable")
	}
}
