package gamification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fasehq/fase-server/pkg/eventbus"
	"github.com/fasehq/fase-server/pkg/model"
)

// EventKind names the domain events that feed the engine.
type EventKind string

const (
	EventTARCompleted     EventKind = "TAR_COMPLETED"
	EventActivityLogged   EventKind = "ACTIVITY_LOGGED"
	EventWeeklyReview     EventKind = "WEEKLY_REVIEW"
	EventBigRockCompleted EventKind = "BIG_ROCK_COMPLETED"
)

var pointsByEvent = map[EventKind]int{
	EventTARCompleted:     10,
	EventActivityLogged:   5,
	EventWeeklyReview:     20,
	EventBigRockCompleted: 50,
}

// Repository is the gamification state store. WithTx binds fn to one database
// transaction so score, streak and medal updates commit alongside the domain
// event that triggered them.
type Repository interface {
	GetScore(ctx context.Context, userID, companyID uuid.UUID) (*model.Score, error)
	SaveScore(ctx context.Context, score *model.Score) error
	GetStreak(ctx context.Context, userID, companyID uuid.UUID) (*model.Streak, error)
	SaveStreak(ctx context.Context, streak *model.Streak) error
	// AwardMedal reports false when the medal was already held.
	AwardMedal(ctx context.Context, medal *model.Medal) (bool, error)
	ListMedals(ctx context.Context, userID, companyID uuid.UUID) ([]model.Medal, error)
	TopScores(ctx context.Context, companyID uuid.UUID, limit int) ([]model.Score, error)
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// Award summarizes the outcome of one qualifying event.
type Award struct {
	PointsAdded   int               `json:"points_added"`
	TotalPoints   int               `json:"total_points"`
	Level         int               `json:"level"`
	CurrentStreak int               `json:"current_streak"`
	LongestStreak int               `json:"longest_streak"`
	NewMedals     []model.MedalCode `json:"new_medals"`
}

// Publisher pushes gamification events to live consumers.
type Publisher interface {
	Publish(ctx context.Context, channel string, event eventbus.Event) error
}

// Engine awards points, maintains streaks and medals, and mirrors totals to
// the leaderboard. Points only ever increase.
type Engine struct {
	repo        Repository
	leaderboard *Leaderboard
	publisher   Publisher
	logger      *zap.Logger
}

func NewEngine(repo Repository, leaderboard *Leaderboard, publisher Publisher, logger *zap.Logger) *Engine {
	return &Engine{repo: repo, leaderboard: leaderboard, publisher: publisher, logger: logger}
}

// RecordEvent applies one qualifying domain event at the given time. Score,
// streak and medal writes happen in a single transaction; the leaderboard
// mirror afterwards is best-effort.
func (e *Engine) RecordEvent(ctx context.Context, userID, companyID uuid.UUID, kind EventKind, now time.Time) (*Award, error) {
	points, ok := pointsByEvent[kind]
	if !ok {
		points = 0
	}

	var award Award
	err := e.repo.WithTx(ctx, func(tx Repository) error {
		score, err := tx.GetScore(ctx, userID, companyID)
		if err != nil {
			return err
		}
		score.Points += points
		score.Level = LevelForPoints(score.Points)
		if err := tx.SaveScore(ctx, score); err != nil {
			return err
		}

		streak, err := tx.GetStreak(ctx, userID, companyID)
		if err != nil {
			return err
		}
		advanceStreak(streak, now)
		if err := tx.SaveStreak(ctx, streak); err != nil {
			return err
		}

		medals, err := e.awardMedals(ctx, tx, userID, companyID, kind, score, streak)
		if err != nil {
			return err
		}

		award = Award{
			PointsAdded:   points,
			TotalPoints:   score.Points,
			Level:         score.Level,
			CurrentStreak: streak.Current,
			LongestStreak: streak.Longest,
			NewMedals:     medals,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.leaderboard != nil {
		if err := e.leaderboard.Set(ctx, companyID, userID, award.TotalPoints); err != nil {
			e.logger.Warn("failed to update leaderboard", zap.Error(err))
		}
	}
	e.announce(ctx, userID, companyID, &award)

	return &award, nil
}

// announce publishes the award to the gamification channel after the
// transaction has committed. Medal awards get their own event each.
func (e *Engine) announce(ctx context.Context, userID, companyID uuid.UUID, award *Award) {
	if e.publisher == nil {
		return
	}

	payload := eventbus.GamificationEvent{
		UserID:    userID.String(),
		CompanyID: companyID.String(),
		Points:    award.TotalPoints,
		Level:     award.Level,
	}
	event, err := eventbus.NewEvent("points_awarded", payload)
	if err != nil {
		return
	}
	if err := e.publisher.Publish(ctx, eventbus.ChannelGamification, event); err != nil {
		e.logger.Warn("failed to publish gamification event", zap.Error(err))
	}

	for _, medal := range award.NewMedals {
		payload.Medal = string(medal)
		event, err := eventbus.NewEvent("medal_awarded", payload)
		if err != nil {
			continue
		}
		if err := e.publisher.Publish(ctx, eventbus.ChannelGamification, event); err != nil {
			e.logger.Warn("failed to publish gamification event", zap.Error(err))
		}
	}
}

// LevelForPoints maps a point total to a level on the fixed curve: reaching
// level n+1 requires 100 * n*(n+1)/2 cumulative points (100, 300, 600, ...).
func LevelForPoints(points int) int {
	level := 1
	for points >= 100*level*(level+1)/2 {
		level++
	}
	return level
}

// advanceStreak applies reset-on-gap semantics for one qualifying day. A
// second qualifying action on the same day changes nothing; an action the day
// after the last one extends the streak; any longer gap restarts it at 1.
func advanceStreak(streak *model.Streak, now time.Time) {
	today := midnightUTC(now)

	switch {
	case streak.LastActiveOn == nil:
		streak.Current = 1
	case streak.LastActiveOn.Equal(today):
		// already counted today
	case streak.LastActiveOn.Equal(today.AddDate(0, 0, -1)):
		streak.Current++
	default:
		streak.Current = 1
	}

	if streak.Current > streak.Longest {
		streak.Longest = streak.Current
	}
	streak.LastActiveOn = &today
}

func midnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type milestone struct {
	code model.MedalCode
	met  func(kind EventKind, score *model.Score, streak *model.Streak) bool
}

var milestones = []milestone{
	{model.MedalFirstRock, func(kind EventKind, _ *model.Score, _ *model.Streak) bool {
		return kind == EventBigRockCompleted
	}},
	{model.MedalPoints500, func(_ EventKind, score *model.Score, _ *model.Streak) bool {
		return score.Points >= 500
	}},
	{model.MedalPoints2000, func(_ EventKind, score *model.Score, _ *model.Streak) bool {
		return score.Points >= 2000
	}},
	{model.MedalStreakWeek, func(_ EventKind, _ *model.Score, streak *model.Streak) bool {
		return streak.Current >= 7
	}},
	{model.MedalStreakMonth, func(_ EventKind, _ *model.Score, streak *model.Streak) bool {
		return streak.Current >= 30
	}},
	{model.MedalLevelFive, func(_ EventKind, score *model.Score, _ *model.Streak) bool {
		return score.Level >= 5
	}},
}

func (e *Engine) awardMedals(ctx context.Context, tx Repository, userID, companyID uuid.UUID, kind EventKind, score *model.Score, streak *model.Streak) ([]model.MedalCode, error) {
	var awarded []model.MedalCode
	for _, m := range milestones {
		if !m.met(kind, score, streak) {
			continue
		}
		fresh, err := tx.AwardMedal(ctx, &model.Medal{
			UserID:    userID,
			CompanyID: companyID,
			Code:      m.code,
			AwardedAt: time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		if fresh {
			awarded = append(awarded, m.code)
		}
	}
	return awarded, nil
}

// Profile is the per-user gamification read model.
type Profile struct {
	Points        int           `json:"points"`
	Level         int           `json:"level"`
	CurrentStreak int           `json:"current_streak"`
	LongestStreak int           `json:"longest_streak"`
	Medals        []model.Medal `json:"medals"`
}

func (e *Engine) GetProfile(ctx context.Context, userID, companyID uuid.UUID) (*Profile, error) {
	score, err := e.repo.GetScore(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	streak, err := e.repo.GetStreak(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	medals, err := e.repo.ListMedals(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Points:        score.Points,
		Level:         score.Level,
		CurrentStreak: streak.Current,
		LongestStreak: streak.Longest,
		Medals:        medals,
	}, nil
}

// Entry is one leaderboard row.
type Entry struct {
	UserID uuid.UUID `json:"user_id"`
	Points int       `json:"points"`
	Level  int       `json:"level"`
	Rank   int       `json:"rank"`
}

// Top returns the company leaderboard, preferring the redis sorted set and
// falling back to the relational store when redis is absent or fails.
func (e *Engine) Top(ctx context.Context, companyID uuid.UUID, limit int) ([]Entry, error) {
	if e.leaderboard != nil {
		entries, err := e.leaderboard.Top(ctx, companyID, limit)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}
		if err != nil {
			e.logger.Warn("leaderboard read failed, falling back to store", zap.Error(err))
		}
	}

	scores, err := e.repo.TopScores(ctx, companyID, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(scores))
	for i, score := range scores {
		entries = append(entries, Entry{UserID: score.UserID, Points: score.Points, Level: score.Level, Rank: i + 1})
	}
	return entries, nil
}
