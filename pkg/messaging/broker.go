package messaging

import (
	"context"
	"time"
)

// Event types published by the services.
const (
	EventVisitCreated       = "visit.created"
	EventVisitDischarged    = "visit.discharged"
	EventVisitDeleted       = "visit.deleted"
	EventRecruitmentCreated = "recruitment.created"
)

// Publisher defines the interface for publishing messages
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

type Message struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
