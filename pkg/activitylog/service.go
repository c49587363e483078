package activitylog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/visibility"
)

// ErrNotViewable is returned when a requester filters by a user outside
// their visibility set. The boundary maps it to 403 rather than an empty
// page so a scoped-out query is distinguishable from "no activity".
var ErrNotViewable = errors.New("requested user is outside the visibility set")

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter narrows an activity-log query. Zero values mean "no constraint".
type Filter struct {
	Page       int
	Limit      int
	EntityType model.EntityType
	Action     model.LogAction
	UserID     *uuid.UUID
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

type Page struct {
	Logs       []model.ActivityLog `json:"logs"`
	Pagination Pagination          `json:"pagination"`
}

// Query is the persistence-side shape of a log retrieval. UserIDs is always
// populated; the repository must never return rows outside it.
type Query struct {
	UserIDs    []uuid.UUID
	EntityType model.EntityType
	Action     model.LogAction
	Limit      int
	Offset     int
}

type Repository interface {
	List(ctx context.Context, q Query) ([]model.ActivityLog, int64, error)
}

type Viewer interface {
	ViewableUserIDs(ctx context.Context, requester visibility.Requester) ([]uuid.UUID, error)
}

// Service retrieves audit entries constrained by the visibility filter.
type Service struct {
	repo   Repository
	viewer Viewer
}

func NewService(repo Repository, viewer Viewer) *Service {
	return &Service{repo: repo, viewer: viewer}
}

// GetActivityLogs returns the requester-visible log page, newest first.
// Inputs are assumed validated at the boundary; page and limit are still
// normalized here as a backstop.
func (s *Service) GetActivityLogs(ctx context.Context, requester visibility.Requester, filter Filter) (*Page, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	allowed, err := s.viewer.ViewableUserIDs(ctx, requester)
	if err != nil {
		return nil, err
	}

	userIDs := allowed
	if filter.UserID != nil {
		if !contains(allowed, *filter.UserID) {
			return nil, ErrNotViewable
		}
		userIDs = []uuid.UUID{*filter.UserID}
	}

	logs, total, err := s.repo.List(ctx, Query{
		UserIDs:    userIDs,
		EntityType: filter.EntityType,
		Action:     filter.Action,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)

	return &Page{
		Logs: logs,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasMore:    int64(page)*int64(limit) < total,
		},
	}, nil
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
