package activitylog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/visibility"
)

type fakeRepo struct {
	logs []model.ActivityLog
}

func (r *fakeRepo) List(ctx context.Context, q Query) ([]model.ActivityLog, int64, error) {
	allowed := make(map[uuid.UUID]bool, len(q.UserIDs))
	for _, id := range q.UserIDs {
		allowed[id] = true
	}

	var matched []model.ActivityLog
	for _, entry := range r.logs {
		if !allowed[entry.UserID] {
			continue
		}
		if q.EntityType != "" && entry.EntityType != q.EntityType {
			continue
		}
		if q.Action != "" && entry.Action != q.Action {
			continue
		}
		matched = append(matched, entry)
	}

	// Newest first, matching the persistence ordering.
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].CreatedAt.After(matched[i].CreatedAt) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}

	total := int64(len(matched))
	if q.Offset >= len(matched) {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[q.Offset:end], total, nil
}

type fakeViewer struct {
	ids []uuid.UUID
	err error
}

func (v *fakeViewer) ViewableUserIDs(ctx context.Context, requester visibility.Requester) ([]uuid.UUID, error) {
	return v.ids, v.err
}

func seedLogs(userID uuid.UUID, n int) []model.ActivityLog {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logs := make([]model.ActivityLog, 0, n)
	for i := 0; i < n; i++ {
		logs = append(logs, model.ActivityLog{
			ID:         uuid.New(),
			Action:     model.LogCreate,
			EntityType: model.EntityBigRock,
			UserID:     userID,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	return logs
}

func TestGetActivityLogsPaginationMath(t *testing.T) {
	userID := uuid.New()
	service := NewService(&fakeRepo{logs: seedLogs(userID, 45)}, &fakeViewer{ids: []uuid.UUID{userID}})
	requester := visibility.Requester{UserID: userID, Role: model.RoleUser}

	page, err := service.GetActivityLogs(context.Background(), requester, Filter{Page: 2, Limit: 20})
	if err != nil {
		t.Fatalf("GetActivityLogs error: %v", err)
	}
	if len(page.Logs) != 20 {
		t.Fatalf("page 2 of 45 with limit 20 must hold 20 rows, got %d", len(page.Logs))
	}
	if page.Pagination.Total != 45 {
		t.Fatalf("total = %d, want 45", page.Pagination.Total)
	}
	if page.Pagination.TotalPages != 3 {
		t.Fatalf("totalPages = %d, want 3", page.Pagination.TotalPages)
	}
	if !page.Pagination.HasMore {
		t.Fatal("page 2 of 3 must report hasMore")
	}

	last, err := service.GetActivityLogs(context.Background(), requester, Filter{Page: 3, Limit: 20})
	if err != nil {
		t.Fatalf("GetActivityLogs error: %v", err)
	}
	if len(last.Logs) != 5 {
		t.Fatalf("last page must hold the 5 remaining rows, got %d", len(last.Logs))
	}
	if last.Pagination.HasMore {
		t.Fatal("last page must not report hasMore")
	}
}

func TestGetActivityLogsRepeatedReadsIdentical(t *testing.T) {
	userID := uuid.New()
	service := NewService(&fakeRepo{logs: seedLogs(userID, 30)}, &fakeViewer{ids: []uuid.UUID{userID}})
	requester := visibility.Requester{UserID: userID, Role: model.RoleUser}

	first, err := service.GetActivityLogs(context.Background(), requester, Filter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("GetActivityLogs error: %v", err)
	}
	second, err := service.GetActivityLogs(context.Background(), requester, Filter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("GetActivityLogs error: %v", err)
	}
	if len(first.Logs) != len(second.Logs) {
		t.Fatalf("repeated read changed page size: %d vs %d", len(first.Logs), len(second.Logs))
	}
	for i := range first.Logs {
		if first.Logs[i].ID != second.Logs[i].ID {
			t.Fatalf("repeated read changed row %d", i)
		}
	}
}

func TestGetActivityLogsNewestFirst(t *testing.T) {
	userID := uuid.New()
	service := NewService(&fakeRepo{logs: seedLogs(userID, 5)}, &fakeViewer{ids: []uuid.UUID{userID}})

	page, err := service.GetActivityLogs(context.Background(), visibility.Requester{UserID: userID, Role: model.RoleUser}, Filter{})
	if err != nil {
		t.Fatalf("GetActivityLogs error: %v", err)
	}
	for i := 1; i < len(page.Logs); i++ {
		if page.Logs[i].CreatedAt.After(page.Logs[i-1].CreatedAt) {
			t.Fatalf("rows not newest-first at index %d", i)
		}
	}
}

func TestGetActivityLogsNormalizesPageAndLimit(t *testing.T) {
	userID := uuid.New()
	service := NewService(&fakeRepo{logs: seedLogs(userID, 3)}, &fakeViewer{ids: []uuid.UUID{userID}})
	requester := visibility.Requester{UserID: userID, Role: model.RoleUser}

	page, err := service.GetActivityLogs(context.Background(), requester, Filter{Page: 0, Limit: 0})
	if err != nil {
		t.Fatalf("GetActivityLogs error: %v", err)
	}
	if page.Pagination.Page != 1 || page.Pagination.Limit != DefaultLimit {
		t.Fatalf("zero inputs must normalize to page 1 limit %d, got page %d limit %d",
			DefaultLimit, page.Pagination.Page, page.Pagination.Limit)
	}

	page, err = service.GetActivityLogs(context.Background(), requester, Filter{Limit: 500})
	if err != nil {
		t.Fatalf("GetActivityLogs error: %v", err)
	}
	if page.Pagination.Limit != MaxLimit {
		t.Fatalf("oversized limit must clamp to %d, got %d", MaxLimit, page.Pagination.Limit)
	}
}

func TestGetActivityLogsUserFilterOutsideVisibility(t *testing.T) {
	self := uuid.New()
	stranger := uuid.New()
	service := NewService(&fakeRepo{logs: seedLogs(stranger, 2)}, &fakeViewer{ids: []uuid.UUID{self}})

	_, err := service.GetActivityLogs(context.Background(),
		visibility.Requester{UserID: self, Role: model.RoleUser},
		Filter{UserID: &stranger})
	if !errors.Is(err, ErrNotViewable) {
		t.Fatalf("expected ErrNotViewable, got %v", err)
	}
}

func TestGetActivityLogsScopedToVisibilitySet(t *testing.T) {
	self := uuid.New()
	stranger := uuid.New()
	logs := append(seedLogs(self, 2), seedLogs(stranger, 3)...)
	service := NewService(&fakeRepo{logs: logs}, &fakeViewer{ids: []uuid.UUID{self}})

	page, err := service.GetActivityLogs(context.Background(),
		visibility.Requester{UserID: self, Role: model.RoleUser}, Filter{})
	if err != nil {
		t.Fatalf("GetActivityLogs error: %v", err)
	}
	if len(page.Logs) != 2 {
		t.Fatalf("expected only the requester's 2 rows, got %d", len(page.Logs))
	}
	for _, entry := range page.Logs {
		if entry.UserID != self {
			t.Fatal("row outside the visibility set leaked into the page")
		}
	}
}
