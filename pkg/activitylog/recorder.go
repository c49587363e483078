package activitylog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/eventbus"
	"github.com/fasehq/fase-server/pkg/metrics"
	"github.com/fasehq/fase-server/pkg/model"
)

// Publisher is the live-feed sink. The redis event bus satisfies it; a nil
// Publisher disables the feed.
type Publisher interface {
	Publish(ctx context.Context, channel string, event eventbus.Event) error
}

// Recorder appends audit entries. Record writes through the caller's
// transaction so the entry commits or rolls back with the mutation it
// describes; callers invoke Announce after the transaction commits, keeping
// phantom events for rolled-back mutations off the feed.
type Recorder struct {
	publisher Publisher
	logger    *zap.Logger
}

func NewRecorder(publisher Publisher, logger *zap.Logger) *Recorder {
	return &Recorder{publisher: publisher, logger: logger}
}

// Record appends the entry inside tx. No side effects outside the
// transaction happen here.
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, entry *model.ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return tx.WithContext(ctx).Create(entry).Error
}

// Announce counts the committed entry and broadcasts it to live subscribers.
// Call it only after the transaction that carried Record has committed. The
// publish is best-effort.
func (r *Recorder) Announce(ctx context.Context, entry *model.ActivityLog) {
	metrics.ActivityLogsWritten.WithLabelValues(string(entry.Action), string(entry.EntityType)).Inc()

	if r.publisher == nil {
		return
	}
	event, err := eventbus.NewEvent("activity_logged", eventbus.ActivityEvent{
		LogID:       entry.ID.String(),
		Action:      string(entry.Action),
		EntityType:  string(entry.EntityType),
		EntityID:    entry.EntityID.String(),
		Description: entry.Description,
		UserID:      entry.UserID.String(),
		CompanyID:   entry.CompanyID.String(),
	})
	if err != nil {
		return
	}
	if err := r.publisher.Publish(ctx, eventbus.ActivityChannel(entry.CompanyID.String()), event); err != nil {
		r.logger.Warn("failed to publish activity event", zap.Error(err))
	}
}
