package gamification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fasehq/fase-server/pkg/eventbus"
	"github.com/fasehq/fase-server/pkg/model"
)

type stateKey struct {
	userID    uuid.UUID
	companyID uuid.UUID
}

type medalKey struct {
	userID    uuid.UUID
	companyID uuid.UUID
	code      model.MedalCode
}

type fakeRepo struct {
	scores  map[stateKey]*model.Score
	streaks map[stateKey]*model.Streak
	medals  map[medalKey]model.Medal
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		scores:  make(map[stateKey]*model.Score),
		streaks: make(map[stateKey]*model.Streak),
		medals:  make(map[medalKey]model.Medal),
	}
}

func (r *fakeRepo) GetScore(ctx context.Context, userID, companyID uuid.UUID) (*model.Score, error) {
	key := stateKey{userID, companyID}
	if score, ok := r.scores[key]; ok {
		copied := *score
		return &copied, nil
	}
	return &model.Score{UserID: userID, CompanyID: companyID, Points: 0, Level: 1}, nil
}

func (r *fakeRepo) SaveScore(ctx context.Context, score *model.Score) error {
	copied := *score
	r.scores[stateKey{score.UserID, score.CompanyID}] = &copied
	return nil
}

func (r *fakeRepo) GetStreak(ctx context.Context, userID, companyID uuid.UUID) (*model.Streak, error) {
	key := stateKey{userID, companyID}
	if streak, ok := r.streaks[key]; ok {
		copied := *streak
		return &copied, nil
	}
	return &model.Streak{UserID: userID, CompanyID: companyID}, nil
}

func (r *fakeRepo) SaveStreak(ctx context.Context, streak *model.Streak) error {
	copied := *streak
	r.streaks[stateKey{streak.UserID, streak.CompanyID}] = &copied
	return nil
}

func (r *fakeRepo) AwardMedal(ctx context.Context, medal *model.Medal) (bool, error) {
	key := medalKey{medal.UserID, medal.CompanyID, medal.Code}
	if _, held := r.medals[key]; held {
		return false, nil
	}
	r.medals[key] = *medal
	return true, nil
}

func (r *fakeRepo) ListMedals(ctx context.Context, userID, companyID uuid.UUID) ([]model.Medal, error) {
	var medals []model.Medal
	for key, medal := range r.medals {
		if key.userID == userID && key.companyID == companyID {
			medals = append(medals, medal)
		}
	}
	return medals, nil
}

func (r *fakeRepo) TopScores(ctx context.Context, companyID uuid.UUID, limit int) ([]model.Score, error) {
	var scores []model.Score
	for key, score := range r.scores {
		if key.companyID == companyID {
			scores = append(scores, *score)
		}
	}
	for i := 0; i < len(scores); i++ {
		for j := i + 1; j < len(scores); j++ {
			if scores[j].Points > scores[i].Points {
				scores[i], scores[j] = scores[j], scores[i]
			}
		}
	}
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	return fn(r)
}

type fakeBus struct {
	channels []string
	events   []eventbus.Event
}

func (b *fakeBus) Publish(ctx context.Context, channel string, event eventbus.Event) error {
	b.channels = append(b.channels, channel)
	b.events = append(b.events, event)
	return nil
}

func newTestEngine(repo *fakeRepo) *Engine {
	return NewEngine(repo, nil, nil, zap.NewNop())
}

func day(offset int) time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestRecordEventAwardsPointsByKind(t *testing.T) {
	cases := []struct {
		kind   EventKind
		points int
	}{
		{EventActivityLogged, 5},
		{EventTARCompleted, 10},
		{EventWeeklyReview, 20},
		{EventBigRockCompleted, 50},
	}

	for _, tc := range cases {
		repo := newFakeRepo()
		engine := newTestEngine(repo)
		award, err := engine.RecordEvent(context.Background(), uuid.New(), uuid.New(), tc.kind, day(0))
		if err != nil {
			t.Fatalf("RecordEvent(%s) error: %v", tc.kind, err)
		}
		if award.PointsAdded != tc.points || award.TotalPoints != tc.points {
			t.Fatalf("%s awarded %d points (total %d), want %d", tc.kind, award.PointsAdded, award.TotalPoints, tc.points)
		}
	}
}

func TestPointsOnlyAccumulate(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	userID, companyID := uuid.New(), uuid.New()
	ctx := context.Background()

	var previous int
	for i := 0; i < 5; i++ {
		award, err := engine.RecordEvent(ctx, userID, companyID, EventTARCompleted, day(i))
		if err != nil {
			t.Fatalf("RecordEvent error: %v", err)
		}
		if award.TotalPoints <= previous {
			t.Fatalf("total points went from %d to %d", previous, award.TotalPoints)
		}
		previous = award.TotalPoints
	}
	if previous != 50 {
		t.Fatalf("five TAR completions must total 50 points, got %d", previous)
	}
}

func TestLevelForPointsCurve(t *testing.T) {
	cases := []struct {
		points int
		level  int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{599, 3},
		{600, 4},
		{1000, 5},
		{1499, 5},
		{1500, 6},
	}
	for _, tc := range cases {
		if got := LevelForPoints(tc.points); got != tc.level {
			t.Errorf("LevelForPoints(%d) = %d, want %d", tc.points, got, tc.level)
		}
	}
}

func TestStreakExtendsOnConsecutiveDays(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	userID, companyID := uuid.New(), uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		award, err := engine.RecordEvent(ctx, userID, companyID, EventActivityLogged, day(i))
		if err != nil {
			t.Fatalf("RecordEvent error: %v", err)
		}
		if award.CurrentStreak != i+1 {
			t.Fatalf("day %d streak = %d, want %d", i, award.CurrentStreak, i+1)
		}
	}
}

func TestStreakSameDayDoesNotDoubleCount(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	userID, companyID := uuid.New(), uuid.New()
	ctx := context.Background()

	if _, err := engine.RecordEvent(ctx, userID, companyID, EventTARCompleted, day(0)); err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	// A second qualifying action later the same day.
	award, err := engine.RecordEvent(ctx, userID, companyID, EventTARCompleted, day(0).Add(8*time.Hour))
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if award.CurrentStreak != 1 {
		t.Fatalf("same-day repeat changed the streak to %d", award.CurrentStreak)
	}
	if award.TotalPoints != 20 {
		t.Fatalf("points must still accumulate on same-day repeats, got %d", award.TotalPoints)
	}
}

func TestStreakResetsAfterGap(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	userID, companyID := uuid.New(), uuid.New()
	ctx := context.Background()

	// Five consecutive qualifying days.
	for i := 0; i < 5; i++ {
		if _, err := engine.RecordEvent(ctx, userID, companyID, EventActivityLogged, day(i)); err != nil {
			t.Fatalf("RecordEvent error: %v", err)
		}
	}

	// Three idle days, then activity resumes.
	award, err := engine.RecordEvent(ctx, userID, companyID, EventActivityLogged, day(8))
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if award.CurrentStreak != 1 {
		t.Fatalf("streak after a gap = %d, want 1", award.CurrentStreak)
	}
	if award.LongestStreak != 5 {
		t.Fatalf("longest streak = %d, want 5", award.LongestStreak)
	}
}

func TestMedalAwardedOnce(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	userID, companyID := uuid.New(), uuid.New()
	ctx := context.Background()

	first, err := engine.RecordEvent(ctx, userID, companyID, EventBigRockCompleted, day(0))
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if len(first.NewMedals) != 1 || first.NewMedals[0] != model.MedalFirstRock {
		t.Fatalf("first rock completion must mint FIRST_ROCK, got %v", first.NewMedals)
	}

	second, err := engine.RecordEvent(ctx, userID, companyID, EventBigRockCompleted, day(1))
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	for _, code := range second.NewMedals {
		if code == model.MedalFirstRock {
			t.Fatal("FIRST_ROCK minted twice")
		}
	}
}

func TestStreakMedalAtSevenDays(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	userID, companyID := uuid.New(), uuid.New()
	ctx := context.Background()

	var last *Award
	for i := 0; i < 7; i++ {
		award, err := engine.RecordEvent(ctx, userID, companyID, EventActivityLogged, day(i))
		if err != nil {
			t.Fatalf("RecordEvent error: %v", err)
		}
		if i < 6 {
			for _, code := range award.NewMedals {
				if code == model.MedalStreakWeek {
					t.Fatalf("STREAK_7 minted on day %d", i+1)
				}
			}
		}
		last = award
	}

	found := false
	for _, code := range last.NewMedals {
		if code == model.MedalStreakWeek {
			found = true
		}
	}
	if !found {
		t.Fatal("7th consecutive day must mint STREAK_7")
	}
}

func TestPointThresholdMedal(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	userID, companyID := uuid.New(), uuid.New()
	ctx := context.Background()

	// 9 rocks bring the total to 450; the 10th crosses 500.
	for i := 0; i < 9; i++ {
		if _, err := engine.RecordEvent(ctx, userID, companyID, EventBigRockCompleted, day(i)); err != nil {
			t.Fatalf("RecordEvent error: %v", err)
		}
	}
	award, err := engine.RecordEvent(ctx, userID, companyID, EventBigRockCompleted, day(9))
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if award.TotalPoints != 500 {
		t.Fatalf("total = %d, want 500", award.TotalPoints)
	}
	found := false
	for _, code := range award.NewMedals {
		if code == model.MedalPoints500 {
			found = true
		}
	}
	if !found {
		t.Fatalf("crossing 500 points must mint POINTS_500, got %v", award.NewMedals)
	}
}

func TestRecordEventPublishesGamificationEvents(t *testing.T) {
	repo := newFakeRepo()
	bus := &fakeBus{}
	engine := NewEngine(repo, nil, bus, zap.NewNop())
	userID, companyID := uuid.New(), uuid.New()

	award, err := engine.RecordEvent(context.Background(), userID, companyID, EventBigRockCompleted, day(0))
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if len(award.NewMedals) != 1 {
		t.Fatalf("expected 1 new medal, got %v", award.NewMedals)
	}

	// One points event plus one event per minted medal.
	if len(bus.events) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(bus.events))
	}
	for _, channel := range bus.channels {
		if channel != eventbus.ChannelGamification {
			t.Fatalf("published on %q, want %q", channel, eventbus.ChannelGamification)
		}
	}
	if bus.events[0].Type != "points_awarded" {
		t.Fatalf("first event type %q, want points_awarded", bus.events[0].Type)
	}
	if bus.events[1].Type != "medal_awarded" {
		t.Fatalf("second event type %q, want medal_awarded", bus.events[1].Type)
	}

	var payload eventbus.GamificationEvent
	if err := json.Unmarshal(bus.events[1].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.UserID != userID.String() {
		t.Fatalf("payload user %q, want %q", payload.UserID, userID.String())
	}
	if payload.Points != 50 {
		t.Fatalf("payload points = %d, want 50", payload.Points)
	}
	if payload.Medal != string(model.MedalFirstRock) {
		t.Fatalf("payload medal %q, want %q", payload.Medal, model.MedalFirstRock)
	}
}

func TestTopFallsBackToStoreWithoutRedis(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	companyID := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	ctx := context.Background()

	if _, err := engine.RecordEvent(ctx, alice, companyID, EventBigRockCompleted, day(0)); err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if _, err := engine.RecordEvent(ctx, bob, companyID, EventActivityLogged, day(0)); err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}

	entries, err := engine.Top(ctx, companyID, 10)
	if err != nil {
		t.Fatalf("Top error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != alice || entries[0].Rank != 1 {
		t.Fatalf("alice must rank first, got %+v", entries[0])
	}
	if entries[1].UserID != bob || entries[1].Rank != 2 {
		t.Fatalf("bob must rank second, got %+v", entries[1])
	}
}

func TestGetProfile(t *testing.T) {
	repo := newFakeRepo()
	engine := newTestEngine(repo)
	userID, companyID := uuid.New(), uuid.New()
	ctx := context.Background()

	if _, err := engine.RecordEvent(ctx, userID, companyID, EventBigRockCompleted, day(0)); err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}

	profile, err := engine.GetProfile(ctx, userID, companyID)
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if profile.Points != 50 || profile.Level != 1 {
		t.Fatalf("profile = %+v, want 50 points level 1", profile)
	}
	if profile.CurrentStreak != 1 {
		t.Fatalf("current streak = %d, want 1", profile.CurrentStreak)
	}
	if len(profile.Medals) != 1 {
		t.Fatalf("expected the FIRST_ROCK medal, got %v", profile.Medals)
	}
}
