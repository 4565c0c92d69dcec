package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client *pubsub.Client
}

// EventType represents the type of event/message sent via pubsub.
// Downstream consumers (stats dashboards, archival jobs) subscribe to these
// topics; delivery is best-effort from the core's point of view.
type EventType string

const (
	EventMatchApproved     EventType = "match-approved"
	EventMatchCancelled    EventType = "match-cancelled"
	EventChallengeAccepted EventType = "challenge-accepted"
)
