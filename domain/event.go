package domain

import "context"

// Event records a change in the domain model for downstream consumers.
type Event struct {
	ID         string `json:"id"`
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
	Type       string `json:"type"`
	UserID     string `json:"userId"`
	Time       int64  `json:"time"`
}

const (
	UserRegistered = "user-registered"
	UserLoggedIn   = "user-logged-in"
	BoardCreated   = "board-created"
	ListCreated    = "list-created"
	CardCreated    = "card-created"
	CardUpdated    = "card-updated"
	CardDeleted    = "card-deleted"
)

// EventPublisher delivers domain events to an external queue. Publishing is
// best-effort: services log failures and never fail the originating request.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
