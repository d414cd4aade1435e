package domain

import "time"

// EventLevel classifies an entry of the event log.
type EventLevel string

const (
	EventInfo    EventLevel = "info"
	EventSuccess EventLevel = "success"
	EventError   EventLevel = "error"
)

// Event is a single timestamped line of the matcher's event log.
type Event struct {
	Time    time.Time  `json:"time"`
	Level   EventLevel `json:"level"`
	Message string     `json:"message"`
}
