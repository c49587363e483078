package activitylog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fasehq/fase-server/pkg/eventbus"
	"github.com/fasehq/fase-server/pkg/model"
)

type fakePublisher struct {
	channels []string
	events   []eventbus.Event
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, event eventbus.Event) error {
	if p.err != nil {
		return p.err
	}
	p.channels = append(p.channels, channel)
	p.events = append(p.events, event)
	return nil
}

func TestAnnouncePublishesToCompanyChannel(t *testing.T) {
	publisher := &fakePublisher{}
	recorder := NewRecorder(publisher, zap.NewNop())

	entry := &model.ActivityLog{
		ID:          uuid.New(),
		Action:      model.LogCreate,
		EntityType:  model.EntityBigRock,
		EntityID:    uuid.New(),
		Description: "created big rock Q3 launch",
		UserID:      uuid.New(),
		CompanyID:   uuid.New(),
	}
	recorder.Announce(context.Background(), entry)

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.events))
	}
	wantChannel := eventbus.ActivityChannel(entry.CompanyID.String())
	if publisher.channels[0] != wantChannel {
		t.Fatalf("published on %q, want %q", publisher.channels[0], wantChannel)
	}
	if publisher.events[0].Type != "activity_logged" {
		t.Fatalf("event type %q, want activity_logged", publisher.events[0].Type)
	}

	var payload eventbus.ActivityEvent
	if err := json.Unmarshal(publisher.events[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.LogID != entry.ID.String() {
		t.Fatalf("payload log id %q, want %q", payload.LogID, entry.ID.String())
	}
	if payload.Action != string(model.LogCreate) {
		t.Fatalf("payload action %q, want %q", payload.Action, model.LogCreate)
	}
	if payload.Description != entry.Description {
		t.Fatalf("payload description %q, want %q", payload.Description, entry.Description)
	}
}

func TestAnnounceWithoutPublisher(t *testing.T) {
	recorder := NewRecorder(nil, zap.NewNop())
	entry := &model.ActivityLog{
		ID:         uuid.New(),
		Action:     model.LogUpdate,
		EntityType: model.EntityTAR,
		EntityID:   uuid.New(),
		UserID:     uuid.New(),
		CompanyID:  uuid.New(),
	}
	// Must not panic when no live feed is configured.
	recorder.Announce(context.Background(), entry)
}
