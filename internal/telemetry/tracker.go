package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/apperror"
	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
)

// Event is an analytics event to track.
type Event struct {
	Type      models.EventType
	UserID    string
	SessionID string
	Payload   map[string]interface{}
	IPAddress string
	UserAgent string
}

// Tracker writes analytics events.
type Tracker struct {
	store repository.EventStore
	run   *BestEffort
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewTracker creates a tracker over store.
func NewTracker(store repository.EventStore, log logrus.FieldLogger) *Tracker {
	return &Tracker{
		store: store,
		run:   NewBestEffort("events", log),
		log:   log,
		now:   time.Now,
	}
}

// Track validates the event type and records the event. Only an unknown type
// is reported; storage failures are logged.
func (t *Tracker) Track(ctx context.Context, e Event) error {
	if !e.Type.Valid() {
		return apperror.New(apperror.KindInvalidRequest, "type", "unknown event type %q", e.Type)
	}

	t.run.Do(ctx, "track", func(ctx context.Context) error {
		var payload json.RawMessage
		if e.Payload != nil {
			raw, err := json.Marshal(e.Payload)
			if err != nil {
				return err
			}
			payload = raw
		}
		if err := t.store.InsertEvent(ctx, &models.Event{
			ID:        uuid.NewString(),
			Type:      e.Type,
			UserID:    e.UserID,
			SessionID: e.SessionID,
			Payload:   payload,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			CreatedAt: t.now().UTC(),
		}); err != nil {
			return err
		}

		t.log.WithFields(logrus.Fields{"type": e.Type, "user_id": e.UserID}).Debug("event tracked")
		return nil
	})
	return nil
}
