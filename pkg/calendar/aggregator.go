package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fasehq/fase-server/pkg/model"
	"github.com/fasehq/fase-server/pkg/visibility"
)

type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

func (v View) Valid() bool {
	return v == ViewDay || v == ViewWeek || v == ViewMonth
}

var ErrInvalidView = errors.New("view must be day, week or month")

type ItemKind string

const (
	ItemTAR        ItemKind = "TAR"
	ItemActivity   ItemKind = "ACTIVITY"
	ItemKeyMeeting ItemKind = "KEY_MEETING"
)

type Item struct {
	ID        uuid.UUID      `json:"id"`
	Kind      ItemKind       `json:"kind"`
	Title     string         `json:"title"`
	Date      time.Time      `json:"date"`
	Category  model.Category `json:"category"`
	Completed bool           `json:"completed"`
}

type DayBucket struct {
	Date  string `json:"date"` // 2006-01-02
	Items []Item `json:"items"`
}

type CategorySummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

type Result struct {
	View     View                               `json:"view"`
	Start    time.Time                          `json:"start"`
	End      time.Time                          `json:"end"`
	BigRocks []model.BigRock                    `json:"big_rocks"`
	Days     []DayBucket                        `json:"days"`
	Summary  map[model.Category]CategorySummary `json:"summary"`
}

// Repository provides the owner-scoped rows the aggregator projects. Child
// rows must arrive with their Big Rock chain preloaded so the category is
// known.
type Repository interface {
	BigRocksByMonths(ctx context.Context, userID, companyID uuid.UUID, months []string) ([]model.BigRock, error)
	TARsInRange(ctx context.Context, userID, companyID uuid.UUID, from, to time.Time) ([]model.TAR, error)
	ActivitiesInRange(ctx context.Context, userID, companyID uuid.UUID, from, to time.Time) ([]model.Activity, error)
	KeyMeetingsInRange(ctx context.Context, userID, companyID uuid.UUID, from, to time.Time) ([]model.KeyMeeting, error)
}

// Aggregator derives day/week/month calendar views from task data. It is a
// pure read-side projection recomputed per request; nothing is cached or
// mutated.
type Aggregator struct {
	repo Repository
}

func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Aggregate buckets the requester's items into the [start, end) range implied
// by view and ref, and computes per-FASE-category completion totals across
// the Big Rocks, TARs and activities in range. Weeks start on Monday; all
// bucketing is done in UTC.
func (a *Aggregator) Aggregate(ctx context.Context, requester visibility.Requester, view View, ref time.Time) (*Result, error) {
	if !view.Valid() {
		return nil, ErrInvalidView
	}

	start, end := rangeFor(view, ref)

	rocks, err := a.repo.BigRocksByMonths(ctx, requester.UserID, requester.CompanyID, monthsIn(start, end))
	if err != nil {
		return nil, err
	}
	tars, err := a.repo.TARsInRange(ctx, requester.UserID, requester.CompanyID, start, end)
	if err != nil {
		return nil, err
	}
	activities, err := a.repo.ActivitiesInRange(ctx, requester.UserID, requester.CompanyID, start, end)
	if err != nil {
		return nil, err
	}
	meetings, err := a.repo.KeyMeetingsInRange(ctx, requester.UserID, requester.CompanyID, start, end)
	if err != nil {
		return nil, err
	}

	result := &Result{
		View:     view,
		Start:    start,
		End:      end,
		BigRocks: rocks,
		Summary:  emptySummary(),
	}

	days := map[string][]Item{}
	addItem := func(item Item) {
		key := item.Date.UTC().Format("2006-01-02")
		days[key] = append(days[key], item)
	}

	for _, rock := range rocks {
		bump(result.Summary, rock.Category, rock.Completed)
	}
	for _, tar := range tars {
		category := categoryOfRock(tar.BigRock)
		bump(result.Summary, category, tar.Completed)
		addItem(Item{ID: tar.ID, Kind: ItemTAR, Title: tar.Title, Date: tar.DueDate, Category: category, Completed: tar.Completed})
	}
	for _, activity := range activities {
		var category model.Category
		if activity.TAR != nil {
			category = categoryOfRock(activity.TAR.BigRock)
		}
		bump(result.Summary, category, activity.Completed)
		addItem(Item{ID: activity.ID, Kind: ItemActivity, Title: activity.Title, Date: activity.Date, Category: category, Completed: activity.Completed})
	}
	for _, meeting := range meetings {
		// Meetings have no completion state and stay out of the summary.
		addItem(Item{ID: meeting.ID, Kind: ItemKeyMeeting, Title: meeting.Title, Date: meeting.Date, Category: categoryOfRock(meeting.BigRock)})
	}

	for cursor := start; cursor.Before(end); cursor = cursor.AddDate(0, 0, 1) {
		key := cursor.Format("2006-01-02")
		items := days[key]
		if items == nil {
			items = []Item{}
		}
		result.Days = append(result.Days, DayBucket{Date: key, Items: items})
	}

	return result, nil
}

func rangeFor(view View, ref time.Time) (time.Time, time.Time) {
	ref = ref.UTC()
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	switch view {
	case ViewDay:
		return day, day.AddDate(0, 0, 1)
	case ViewWeek:
		weekday := int(day.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday belongs to the week that started the prior Monday
		}
		monday := day.AddDate(0, 0, -(weekday - 1))
		return monday, monday.AddDate(0, 0, 7)
	default:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, 0)
	}
}

// monthsIn lists the "2006-01" keys touched by [start, end).
func monthsIn(start, end time.Time) []string {
	var months []string
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for cursor.Before(end) {
		months = append(months, cursor.Format("2006-01"))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months
}

func categoryOfRock(rock *model.BigRock) model.Category {
	if rock == nil {
		return ""
	}
	return rock.Category
}

func emptySummary() map[model.Category]CategorySummary {
	summary := make(map[model.Category]CategorySummary, 4)
	for _, category := range model.Categories() {
		summary[category] = CategorySummary{}
	}
	return summary
}

func bump(summary map[model.Category]CategorySummary, category model.Category, completed bool) {
	if !category.Valid() {
		return
	}
	entry := summary[category]
	entry.Total++
	if completed {
		entry.Completed++
	}
	summary[category] = entry
}
