package ws

import (
	"encoding/json"
	"log"
	"time"

	"feedpulse/internal/domain/health"

	"github.com/google/uuid"
)

type SourceDeactivatedEvent struct {
	Type       string `json:"type"`
	SourceID   string `json:"source_id"`
	InstanceID string `json:"instance_id"`
	Failures   int    `json:"consecutive_failures"`
	Timestamp  string `json:"timestamp"`
}

type HealthAlertEvent struct {
	Type      string         `json:"type"`
	SourceID  string         `json:"source_id"`
	Alerts    []health.Alert `json:"alerts"`
	Status    health.Status  `json:"status"`
	Score     float64        `json:"overall_score"`
	Timestamp string         `json:"timestamp"`
}

// Notifier fans scheduler and analyzer events out to connected websocket
// clients. Every method is fire-and-forget; a nil receiver is a no-op.
type Notifier struct {
	hub    *Hub
	logger *log.Logger
}

func NewNotifier(hub *Hub, logger *log.Logger) *Notifier {
	return &Notifier{hub: hub, logger: logger}
}

func (n *Notifier) SourceDeactivated(sourceID uuid.UUID, instanceID uuid.UUID, failures int) {
	if n == nil {
		return
	}
	n.publish(SourceDeactivatedEvent{
		Type:       "source_deactivated",
		SourceID:   sourceID.String(),
		InstanceID: instanceID.String(),
		Failures:   failures,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

func (n *Notifier) HealthAlerts(sourceID uuid.UUID, status health.Status, score float64, alerts []health.Alert) {
	if n == nil || len(alerts) == 0 {
		return
	}
	n.publish(HealthAlertEvent{
		Type:      "health_alert",
		SourceID:  sourceID.String(),
		Alerts:    alerts,
		Status:    status,
		Score:     score,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (n *Notifier) publish(evt any) {
	b, err := json.Marshal(evt)
	if err != nil {
		if n.logger != nil {
			n.logger.Printf("WS event marshal error | error=%v", err)
		}
		return
	}
	n.hub.Broadcast(b)
}
