package gamification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Leaderboard mirrors per-company point totals into a redis sorted set for
// cheap top-N reads. The relational store stays authoritative.
type Leaderboard struct {
	client redis.UniversalClient
}

func NewLeaderboard(client redis.UniversalClient) *Leaderboard {
	return &Leaderboard{client: client}
}

func leaderboardKey(companyID uuid.UUID) string {
	return fmt.Sprintf("fase:lb:%s", companyID)
}

func (l *Leaderboard) Set(ctx context.Context, companyID, userID uuid.UUID, points int) error {
	return l.client.ZAdd(ctx, leaderboardKey(companyID), redis.Z{
		Score:  float64(points),
		Member: userID.String(),
	}).Err()
}

func (l *Leaderboard) Top(ctx context.Context, companyID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey(companyID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(members))
	for i, member := range members {
		id, err := uuid.Parse(fmt.Sprint(member.Member))
		if err != nil {
			continue
		}
		points := int(member.Score)
		entries = append(entries, Entry{
			UserID: id,
			Points: points,
			Level:  LevelForPoints(points),
			Rank:   i + 1,
		})
	}
	return entries, nil
}
