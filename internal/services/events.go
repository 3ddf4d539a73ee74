package services

import "log"

// Event types published by the services.
const (
	EventUserRegistered   = "user.registered"
	EventClothingUploaded = "clothing.uploaded"
	EventOutfitSaved      = "outfit.saved"
	EventTryOnCompleted   = "tryon.completed"
	EventTryOnFailed      = "tryon.failed"
)

// EventPublisher sends domain events to a broker. *rabbitmq.Client
// satisfies it.
type EventPublisher interface {
	PublishEvent(eventType string, payload map[string]interface{}) error
}

// publish is a no-op for a nil publisher. Failures are logged and never
// surface to the caller.
func publish(p EventPublisher, eventType string, payload map[string]interface{}) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(eventType, payload); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
