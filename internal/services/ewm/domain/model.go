// Package domain implements event publication and participation workflows.
package domain

import (
	"time"
)

// EventState is the publication state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// Valid reports whether s is a known state.
func (s EventState) Valid() bool {
	switch s {
	case EventPending, EventPublished, EventCanceled:
		return true
	}
	return false
}

// CanTransition reports whether an event may move from s to next.
func (s EventState) CanTransition(next EventState) bool {
	switch s {
	case EventPending:
		return next == EventPending || next == EventPublished || next == EventCanceled
	case EventCanceled:
		return next == EventCanceled || next == EventPending
	case EventPublished:
		return false
	}
	return false
}

// UserStateAction is a state change an initiator may request.
type UserStateAction string

const (
	SendToReview UserStateAction = "SEND_TO_REVIEW"
	CancelReview UserStateAction = "CANCEL_REVIEW"
)

// Target returns the state the action moves an event into.
func (a UserStateAction) Target() (EventState, bool) {
	switch a {
	case SendToReview:
		return EventPending, true
	case CancelReview:
		return EventCanceled, true
	}
	return "", false
}

// AdminStateAction is a moderation decision on an event.
type AdminStateAction string

const (
	PublishEvent AdminStateAction = "PUBLISH_EVENT"
	RejectEvent  AdminStateAction = "REJECT_EVENT"
)

// Target returns the state the action moves an event into.
func (a AdminStateAction) Target() (EventState, bool) {
	switch a {
	case PublishEvent:
		return EventPublished, true
	case RejectEvent:
		return EventCanceled, true
	}
	return "", false
}

// RequestStatus is the lifecycle status of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestConfirmed, RequestRejected, RequestCanceled:
		return true
	}
	return false
}

// CanTransition reports whether a request may move from s to next.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	switch s {
	case RequestPending:
		return next == RequestConfirmed || next == RequestRejected || next == RequestCanceled
	case RequestConfirmed, RequestRejected:
		return next == RequestCanceled
	}
	return false
}

// User is a registered account.
type User struct {
	ID    int64
	Name  string
	Email string
}

// Category groups events.
type Category struct {
	ID   int64
	Name string
}

// Location is the venue coordinate of an event.
type Location struct {
	Lat float64
	Lon float64
}

// Event is the stored event row.
type Event struct {
	ID                int64
	Title             string
	Annotation        string
	Description       string
	EventDate         time.Time
	CategoryID        int64
	InitiatorID       int64
	Location          Location
	Paid              bool
	ParticipantLimit  int64
	RequestModeration bool
	State             EventState
	CreatedOn         time.Time
	PublishedOn       *time.Time
	// Version increases on every write and guards concurrent batch updates.
	Version int64
}

// HasLimit reports whether the event caps confirmed participants.
func (e Event) HasLimit() bool {
	return e.ParticipantLimit > 0
}

// EventDetails is an event joined with its references and derived counters.
type EventDetails struct {
	Event
	Category          Category
	Initiator         User
	ConfirmedRequests int64
	Views             int64
}

// Request is a participation request.
type Request struct {
	ID          int64
	EventID     int64
	RequesterID int64
	Status      RequestStatus
	Created     time.Time
}

// Comment is a user's message on an event.
type Comment struct {
	ID       int64
	AuthorID int64
	EventID  int64
	Message  string
	Created  time.Time
}

// CommentDetails is a comment joined with its author and event title.
type CommentDetails struct {
	Comment
	Author     User
	EventTitle string
}

// Compilation is a curated set of events.
type Compilation struct {
	ID       int64
	Title    string
	Pinned   bool
	EventIDs []int64
}

// CompilationDetails is a compilation with resolved events.
type CompilationDetails struct {
	Compilation
	Events []EventDetails
}
