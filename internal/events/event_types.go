package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventRequestUpdated       EventType = "request_updated"
	EventCommentAdded         EventType = "comment_added"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	RequestID int64     `json:"request_id"`
	ActorID   int64     `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	ReferenceCode string `json:"reference_code"`
	PriorityID    int64  `json:"priority_id"`
	Title         string `json:"title"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatusID int64  `json:"old_status_id"`
	NewStatusID int64  `json:"new_status_id"`
	Comment     string `json:"comment,omitempty"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	OldTechnicianID *int64 `json:"old_technician_id,omitempty"`
	TechnicianID    int64  `json:"technician_id"`
}

// RequestUpdatedPayload lists the fields an update touched.
type RequestUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	Internal    bool   `json:"internal"`
	BodyPreview string `json:"body_preview"`
}
