package ports

import (
	"context"
	"time"
)

type ClaimEventType string

const (
	ClaimSubmitted ClaimEventType = "submitted"
	ClaimDecided   ClaimEventType = "decided"
	ClaimAssigned  ClaimEventType = "assigned"
	ClaimCommented ClaimEventType = "commented"
)

// ClaimEvent is a lifecycle notification emitted after a write commits.
type ClaimEvent struct {
	EventID    string         `json:"eventId"`
	Type       ClaimEventType `json:"type"`
	ClaimID    string         `json:"claimId"`
	CustomerID string         `json:"customerId"`
	Status     string         `json:"status"`
	ActorID    string         `json:"actorId"`
	At         time.Time      `json:"at"`
}

// EventPublisher delivers lifecycle notifications. Delivery is best-effort;
// callers never roll back a committed write because publishing failed.
type EventPublisher interface {
	Publish(ctx context.Context, event ClaimEvent) error
}
