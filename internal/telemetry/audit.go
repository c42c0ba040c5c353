package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/repository"
)

// Entry describes one audited change. OldValues and NewValues are any
// JSON-encodable snapshot.
type Entry struct {
	ActorUserID string
	Action      models.AuditAction
	Entity      string
	EntityID    string
	OldValues   interface{}
	NewValues   interface{}
	IPAddress   string
	UserAgent   string
}

// AuditLogger writes audit entries.
type AuditLogger struct {
	store repository.AuditStore
	run   *BestEffort
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewAuditLogger creates an audit logger over store.
func NewAuditLogger(store repository.AuditStore, log logrus.FieldLogger) *AuditLogger {
	return &AuditLogger{
		store: store,
		run:   NewBestEffort("audit", log),
		log:   log,
		now:   time.Now,
	}
}

// Record persists e. Failures are logged and never returned.
func (a *AuditLogger) Record(ctx context.Context, e Entry) {
	a.run.Do(ctx, "record", func(ctx context.Context) error {
		oldValues, err := snapshot(e.OldValues)
		if err != nil {
			return err
		}
		newValues, err := snapshot(e.NewValues)
		if err != nil {
			return err
		}
		if err := a.store.InsertAuditEntry(ctx, &models.AuditEntry{
			ID:          uuid.NewString(),
			ActorUserID: e.ActorUserID,
			Action:      e.Action,
			Entity:      e.Entity,
			EntityID:    e.EntityID,
			OldValues:   oldValues,
			NewValues:   newValues,
			IPAddress:   e.IPAddress,
			UserAgent:   e.UserAgent,
			CreatedAt:   a.now().UTC(),
		}); err != nil {
			return err
		}

		a.log.WithFields(logrus.Fields{
			"action":    e.Action,
			"entity":    e.Entity,
			"entity_id": e.EntityID,
		}).Debug("audit entry recorded")
		return nil
	})
}

// History returns the newest entries for one entity.
func (a *AuditLogger) History(ctx context.Context, entity, entityID string, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return a.store.ListAuditEntries(ctx, entity, entityID, limit)
}

func snapshot(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
