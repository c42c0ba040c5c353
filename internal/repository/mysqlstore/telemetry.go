package mysqlstore

import (
	"context"

	"github.com/shopforge/commerce-api/internal/models"
)

func (s *Store) InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO audit_logs
		(id, actor_user_id, action, entity, entity_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES (:id, :actor_user_id, :action, :entity, :entity_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`,
		auditRow{
			ID:          e.ID,
			ActorUserID: e.ActorUserID,
			Action:      string(e.Action),
			Entity:      e.Entity,
			EntityID:    e.EntityID,
			OldValues:   e.OldValues,
			NewValues:   e.NewValues,
			IPAddress:   e.IPAddress,
			UserAgent:   e.UserAgent,
			CreatedAt:   e.CreatedAt,
		})
	return translate(err, "insert audit entry")
}

func (s *Store) ListAuditEntries(ctx context.Context, entity, entityID string, limit int) ([]models.AuditEntry, error) {
	query := `SELECT id, actor_user_id, action, entity, entity_id, old_values, new_values, ip_address, user_agent, created_at
		FROM audit_logs WHERE (? = '' OR entity = ?) AND (? = '' OR entity_id = ?)
		ORDER BY created_at DESC`
	args := []interface{}{entity, entity, entityID, entityID}
	query, args = withPage(query, args, limit, 0)

	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, translate(err, "list audit entries")
	}
	out := make([]models.AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.AuditEntry{
			ID:          r.ID,
			ActorUserID: r.ActorUserID,
			Action:      models.AuditAction(r.Action),
			Entity:      r.Entity,
			EntityID:    r.EntityID,
			OldValues:   r.OldValues,
			NewValues:   r.NewValues,
			IPAddress:   r.IPAddress,
			UserAgent:   r.UserAgent,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) InsertEvent(ctx context.Context, e *models.Event) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO events
		(id, type, user_id, session_id, payload, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), e.UserID, e.SessionID, []byte(e.Payload), e.IPAddress, e.UserAgent, e.CreatedAt)
	return translate(err, "insert event")
}
