package service

import (
	"context"

	"github.com/google/uuid"
)

const (
	EventCountRecorded    = "count_recorded"
	EventSessionFinalized = "session_finalized"
)

// EventPublisher receives domain events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any)
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID       uuid.UUID
	Username string
	Name     string
}

func (a Actor) label() string {
	if a.Username != "" {
		return a.Username
	}
	return a.ID.String()
}
