package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Event struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ActivityEvent mirrors an ActivityLog row for live consumers.
type ActivityEvent struct {
	LogID       string `json:"log_id"`
	Action      string `json:"action"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
	CompanyID   string `json:"company_id"`
}

type GamificationEvent struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Points    int    `json:"points"`
	Level     int    `json:"level"`
	Medal     string `json:"medal,omitempty"`
}

const (
	ChannelActivity     = "fase:events:activity"
	ChannelGamification = "fase:events:gamification"
)

// ActivityChannel is the per-company channel used by the live activity feed.
func ActivityChannel(companyID string) string {
	return ChannelActivity + ":" + companyID
}

type Bus struct {
	client redis.UniversalClient
}

func NewBus(client redis.UniversalClient) *Bus {
	return &Bus{client: client}
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}

func (b *Bus) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *Bus) Subscribe(ctx context.Context, channels ...string) <-chan *Event {
	sub := b.client.Subscribe(ctx, channels...)
	ch := make(chan *Event, 100)

	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			ch <- &event
		}
	}()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return ch
}
