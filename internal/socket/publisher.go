package socket

import (
	"hospitality-procurement-api-server/internal/workflow"
)

// EventPublisher fans committed domain events out to every connected
// WebSocket client.
type EventPublisher struct {
	hub *Hub
}

func NewEventPublisher(hub *Hub) *EventPublisher {
	return &EventPublisher{hub: hub}
}

func (p *EventPublisher) Publish(event workflow.Event) {
	p.hub.BroadcastJSON(event)
}
