package models

import (
	"encoding/json"
	"time"
)

// AuditAction is the kind of change recorded in the audit log.
type AuditAction string

const (
	AuditCreate AuditAction = "CREATE"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
	AuditLogin  AuditAction = "LOGIN"
	AuditLogout AuditAction = "LOGOUT"
)

// AuditEntry is one audit log row. Old and new values are JSON snapshots.
type AuditEntry struct {
	ID          string          `json:"id"`
	ActorUserID string          `json:"actor_user_id,omitempty"`
	Action      AuditAction     `json:"action"`
	Entity      string          `json:"entity"`
	EntityID    string          `json:"entity_id"`
	OldValues   json.RawMessage `json:"old_values,omitempty"`
	NewValues   json.RawMessage `json:"new_values,omitempty"`
	IPAddress   string          `json:"ip_address,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EventType enumerates tracked storefront events.
type EventType string

const (
	EventPageView          EventType = "PAGE_VIEW"
	EventProductView       EventType = "PRODUCT_VIEW"
	EventAddToCart         EventType = "ADD_TO_CART"
	EventRemoveFromCart    EventType = "REMOVE_FROM_CART"
	EventCheckoutStarted   EventType = "CHECKOUT_STARTED"
	EventCheckoutCompleted EventType = "CHECKOUT_COMPLETED"
	EventOrderPlaced       EventType = "ORDER_PLACED"
	EventSearch            EventType = "SEARCH"
	EventUserLogin         EventType = "USER_LOGIN"
	EventUserLogout        EventType = "USER_LOGOUT"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventPageView, EventProductView, EventAddToCart, EventRemoveFromCart,
		EventCheckoutStarted, EventCheckoutCompleted, EventOrderPlaced,
		EventSearch, EventUserLogin, EventUserLogout:
		return true
	}
	return false
}

// Event is an analytics event.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
