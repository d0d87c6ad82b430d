package rest

import (
	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

type NewUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserDto struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserShortDto struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CategoryDto struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

type LocationDto struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type NewEventDto struct {
	Title             string          `json:"title"`
	Annotation        string          `json:"annotation"`
	Description       string          `json:"description"`
	Category          int64           `json:"category"`
	EventDate         *httpx.DateTime `json:"eventDate"`
	Location          *LocationDto    `json:"location"`
	Paid              *bool           `json:"paid"`
	ParticipantLimit  *int64          `json:"participantLimit"`
	RequestModeration *bool           `json:"requestModeration"`
}

// UpdateEventRequest carries a partial event edit. Absent fields stay
// unchanged.
type UpdateEventRequest struct {
	Title             *string         `json:"title"`
	Annotation        *string         `json:"annotation"`
	Description       *string         `json:"description"`
	Category          *int64          `json:"category"`
	EventDate         *httpx.DateTime `json:"eventDate"`
	Location          *LocationDto    `json:"location"`
	Paid              *bool           `json:"paid"`
	ParticipantLimit  *int64          `json:"participantLimit"`
	RequestModeration *bool           `json:"requestModeration"`
	StateAction       *string         `json:"stateAction"`
}

type EventFullDto struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Annotation        string          `json:"annotation"`
	Description       string          `json:"description"`
	Category          CategoryDto     `json:"category"`
	Initiator         UserShortDto    `json:"initiator"`
	EventDate         httpx.DateTime  `json:"eventDate"`
	CreatedOn         httpx.DateTime  `json:"createdOn"`
	PublishedOn       *httpx.DateTime `json:"publishedOn"`
	Location          LocationDto     `json:"location"`
	Paid              bool            `json:"paid"`
	ParticipantLimit  int64           `json:"participantLimit"`
	RequestModeration bool            `json:"requestModeration"`
	State             string          `json:"state"`
	ConfirmedRequests int64           `json:"confirmedRequests"`
	Views             int64           `json:"views"`
}

type EventShortDto struct {
	ID                int64          `json:"id"`
	Title             string         `json:"title"`
	Annotation        string         `json:"annotation"`
	Category          CategoryDto    `json:"category"`
	Initiator         UserShortDto   `json:"initiator"`
	EventDate         httpx.DateTime `json:"eventDate"`
	Paid              bool           `json:"paid"`
	ConfirmedRequests int64          `json:"confirmedRequests"`
	Views             int64          `json:"views"`
}

type ParticipationRequestDto struct {
	ID        int64          `json:"id"`
	Event     int64          `json:"event"`
	Requester int64          `json:"requester"`
	Status    string         `json:"status"`
	Created   httpx.DateTime `json:"created"`
}

type EventRequestStatusUpdateRequest struct {
	RequestIDs []int64 `json:"requestIds"`
	Status     string  `json:"status"`
}

type EventRequestStatusUpdateResult struct {
	ConfirmedRequests []ParticipationRequestDto `json:"confirmedRequests"`
	RejectedRequests  []ParticipationRequestDto `json:"rejectedRequests"`
}

type NewCompilationDto struct {
	Title  string  `json:"title"`
	Pinned *bool   `json:"pinned"`
	Events []int64 `json:"events"`
}

type UpdateCompilationRequest struct {
	Title  *string `json:"title"`
	Pinned *bool   `json:"pinned"`
	Events []int64 `json:"events"`
}

type CompilationDto struct {
	ID     int64           `json:"id"`
	Title  string          `json:"title"`
	Pinned bool            `json:"pinned"`
	Events []EventShortDto `json:"events"`
}

type CommentRequest struct {
	Message string `json:"message"`
}

type CommentDto struct {
	ID         int64          `json:"id"`
	Message    string         `json:"message"`
	Author     UserShortDto   `json:"author"`
	EventID    int64          `json:"eventId"`
	EventTitle string         `json:"eventTitle"`
	Created    httpx.DateTime `json:"created"`
}

func toUserDto(user domain.User) UserDto {
	return UserDto{ID: user.ID, Name: user.Name, Email: user.Email}
}

func toUserShortDto(user domain.User) UserShortDto {
	return UserShortDto{ID: user.ID, Name: user.Name}
}

func toCategoryDto(category domain.Category) CategoryDto {
	return CategoryDto{ID: category.ID, Name: category.Name}
}

func (l *LocationDto) toDomain() *domain.Location {
	if l == nil {
		return nil
	}
	return &domain.Location{Lat: l.Lat, Lon: l.Lon}
}

func (d NewEventDto) toDomain() domain.NewEvent {
	draft := domain.NewEvent{
		Title:             d.Title,
		Annotation:        d.Annotation,
		Description:       d.Description,
		CategoryID:        d.Category,
		Paid:              d.Paid,
		ParticipantLimit:  d.ParticipantLimit,
		RequestModeration: d.RequestModeration,
	}
	if d.EventDate != nil {
		draft.EventDate = d.EventDate.Time
	}
	if location := d.Location.toDomain(); location != nil {
		draft.Location = *location
	}
	return draft
}

func (d UpdateEventRequest) patch() domain.EventPatch {
	patch := domain.EventPatch{
		Title:             d.Title,
		Annotation:        d.Annotation,
		Description:       d.Description,
		CategoryID:        d.Category,
		Location:          d.Location.toDomain(),
		Paid:              d.Paid,
		ParticipantLimit:  d.ParticipantLimit,
		RequestModeration: d.RequestModeration,
	}
	if d.EventDate != nil {
		eventDate := d.EventDate.Time
		patch.EventDate = &eventDate
	}
	return patch
}

func (d UpdateEventRequest) userUpdate() domain.UserEventUpdate {
	update := domain.UserEventUpdate{EventPatch: d.patch()}
	if d.StateAction != nil {
		action := domain.UserStateAction(*d.StateAction)
		update.StateAction = &action
	}
	return update
}

func (d UpdateEventRequest) adminUpdate() domain.AdminEventUpdate {
	update := domain.AdminEventUpdate{EventPatch: d.patch()}
	if d.StateAction != nil {
		action := domain.AdminStateAction(*d.StateAction)
		update.StateAction = &action
	}
	return update
}

func toEventFullDto(event domain.EventDetails) EventFullDto {
	return EventFullDto{
		ID:                event.ID,
		Title:             event.Title,
		Annotation:        event.Annotation,
		Description:       event.Description,
		Category:          toCategoryDto(event.Category),
		Initiator:         toUserShortDto(event.Initiator),
		EventDate:         httpx.NewDateTime(event.EventDate),
		CreatedOn:         httpx.NewDateTime(event.CreatedOn),
		PublishedOn:       httpx.NewDateTimePtr(event.PublishedOn),
		Location:          LocationDto{Lat: event.Location.Lat, Lon: event.Location.Lon},
		Paid:              event.Paid,
		ParticipantLimit:  event.ParticipantLimit,
		RequestModeration: event.RequestModeration,
		State:             string(event.State),
		ConfirmedRequests: event.ConfirmedRequests,
		Views:             event.Views,
	}
}

func toEventShortDto(event domain.EventDetails) EventShortDto {
	return EventShortDto{
		ID:                event.ID,
		Title:             event.Title,
		Annotation:        event.Annotation,
		Category:          toCategoryDto(event.Category),
		Initiator:         toUserShortDto(event.Initiator),
		EventDate:         httpx.NewDateTime(event.EventDate),
		Paid:              event.Paid,
		ConfirmedRequests: event.ConfirmedRequests,
		Views:             event.Views,
	}
}

func mapSlice[T, D any](items []T, convert func(T) D) []D {
	out := make([]D, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out
}

func toRequestDto(request domain.Request) ParticipationRequestDto {
	return ParticipationRequestDto{
		ID:        request.ID,
		Event:     request.EventID,
		Requester: request.RequesterID,
		Status:    string(request.Status),
		Created:   httpx.NewDateTime(request.Created),
	}
}

func toStatusUpdateResult(result domain.StatusUpdateResult) EventRequestStatusUpdateResult {
	return EventRequestStatusUpdateResult{
		ConfirmedRequests: mapSlice(result.Confirmed, toRequestDto),
		RejectedRequests:  mapSlice(result.Rejected, toRequestDto),
	}
}

func toCompilationDto(compilation domain.CompilationDetails) CompilationDto {
	return CompilationDto{
		ID:     compilation.ID,
		Title:  compilation.Title,
		Pinned: compilation.Pinned,
		Events: mapSlice(compilation.Events, toEventShortDto),
	}
}

func toCommentDto(comment domain.CommentDetails) CommentDto {
	return CommentDto{
		ID:         comment.ID,
		Message:    comment.Message,
		Author:     toUserShortDto(comment.Author),
		EventID:    comment.EventID,
		EventTitle: comment.EventTitle,
		Created:    httpx.NewDateTime(comment.Created),
	}
}
