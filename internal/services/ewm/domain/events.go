package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/pagination"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// createLeadTime is the minimum gap between creation and the event start.
	createLeadTime = 2 * time.Hour
	// updateLeadTime is the minimum gap between an edit and the event start.
	updateLeadTime = time.Hour
)

// NewEvent is the initiator's draft for a new event.
type NewEvent struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        int64
	EventDate         time.Time
	Location          Location
	Paid              *bool
	ParticipantLimit  *int64
	RequestModeration *bool
}

// EventPatch carries partial event edits. Nil fields are left unchanged.
type EventPatch struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *int64
	EventDate         *time.Time
	Location          *Location
	Paid              *bool
	ParticipantLimit  *int64
	RequestModeration *bool
}

// UserEventUpdate is an initiator's edit of their own event.
type UserEventUpdate struct {
	EventPatch
	StateAction *UserStateAction
}

// AdminEventUpdate is a moderator's edit of any event.
type AdminEventUpdate struct {
	EventPatch
	StateAction *AdminStateAction
}

// AdminSearch filters events for moderation.
type AdminSearch struct {
	UserIDs     []int64
	States      []EventState
	CategoryIDs []int64
	RangeStart  *time.Time
	RangeEnd    *time.Time
	Filter      string
	Page        pagination.Page
}

// PublicSearch filters published events for anonymous readers.
type PublicSearch struct {
	Text          string
	CategoryIDs   []int64
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          EventSort
	Page          pagination.Page
}

// EventService owns event creation, edits, moderation and search.
type EventService struct {
	store Store
	stats StatsReporter
	clock Clock
}

// NewEventService constructs event use-cases. stats may be nil, in which
// case every event reports zero views.
func NewEventService(store Store, stats StatsReporter, clock Clock) *EventService {
	return &EventService{store: store, stats: stats, clock: clock}
}

func validateNewEvent(draft NewEvent) error {
	if err := checkLength("title", draft.Title, 3, 120); err != nil {
		return err
	}
	if err := checkLength("annotation", draft.Annotation, 20, 2000); err != nil {
		return err
	}
	if err := checkLength("description", draft.Description, 20, 7000); err != nil {
		return err
	}
	if draft.CategoryID <= 0 {
		return invalidField("category", "Field: category. Error: must be positive. Value: %d", draft.CategoryID)
	}
	if draft.EventDate.IsZero() {
		return invalidField("eventDate", "Field: eventDate. Error: must not be null. Value: null")
	}
	if draft.ParticipantLimit != nil && *draft.ParticipantLimit < 0 {
		return invalidField("participantLimit", "Field: participantLimit. Error: must be greater than or equal to 0. Value: %d", *draft.ParticipantLimit)
	}
	return nil
}

func validatePatch(patch EventPatch) error {
	if err := checkOptionalLength("title", patch.Title, 3, 120); err != nil {
		return err
	}
	if err := checkOptionalLength("annotation", patch.Annotation, 20, 2000); err != nil {
		return err
	}
	if err := checkOptionalLength("description", patch.Description, 20, 7000); err != nil {
		return err
	}
	if patch.ParticipantLimit != nil && *patch.ParticipantLimit < 0 {
		return invalidField("participantLimit", "Field: participantLimit. Error: must be greater than or equal to 0. Value: %d", *patch.ParticipantLimit)
	}
	return nil
}

// applyPatch overwrites event fields with every non-nil patch value.
func applyPatch(event *Event, patch EventPatch) {
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Annotation != nil {
		event.Annotation = *patch.Annotation
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.CategoryID != nil {
		event.CategoryID = *patch.CategoryID
	}
	if patch.EventDate != nil {
		event.EventDate = patch.EventDate.UTC()
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Paid != nil {
		event.Paid = *patch.Paid
	}
	if patch.ParticipantLimit != nil {
		event.ParticipantLimit = *patch.ParticipantLimit
	}
	if patch.RequestModeration != nil {
		event.RequestModeration = *patch.RequestModeration
	}
}

func effectiveDate(event Event, patch EventPatch) time.Time {
	if patch.EventDate != nil {
		return patch.EventDate.UTC()
	}
	return event.EventDate
}

func ensureCategory(ctx context.Context, repo Repository, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := repo.GetCategory(ctx, *id); err != nil {
		return lookupErr(err, kindCategory, *id)
	}
	return nil
}

func saveEvent(ctx context.Context, repo Repository, event Event) (Event, error) {
	saved, err := repo.UpdateEvent(ctx, event)
	if errors.Is(err, ErrVersionConflict) {
		return Event{}, apperrors.Conflictf("Event with id=%d was modified concurrently", event.ID)
	}
	if err != nil {
		return Event{}, err
	}
	return saved, nil
}

// CreateEvent stores a new PENDING event for initiatorID.
func (s *EventService) CreateEvent(ctx context.Context, initiatorID int64, draft NewEvent) (result EventDetails, err error) {
	ctx, span := startSpan(ctx, "events.create", attribute.Int64("user.id", initiatorID))
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return EventDetails{}, ErrStoreNotConfigured
	}
	if err := validateNewEvent(draft); err != nil {
		return EventDetails{}, err
	}

	var created Event
	err = s.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetUser(ctx, initiatorID); err != nil {
			return lookupErr(err, kindUser, initiatorID)
		}
		if _, err := repo.GetCategory(ctx, draft.CategoryID); err != nil {
			return lookupErr(err, kindCategory, draft.CategoryID)
		}
		now := s.clock.now()
		if draft.EventDate.Before(now.Add(createLeadTime)) {
			return apperrors.DateInvalidf("Field: eventDate. Error: must start at least %s after now. Value: %s",
				createLeadTime, draft.EventDate.UTC().Format(time.DateTime))
		}
		event := Event{
			Title:             draft.Title,
			Annotation:        draft.Annotation,
			Description:       draft.Description,
			EventDate:         draft.EventDate.UTC(),
			CategoryID:        draft.CategoryID,
			InitiatorID:       initiatorID,
			Location:          draft.Location,
			ParticipantLimit:  0,
			RequestModeration: true,
			State:             EventPending,
			CreatedOn:         now,
		}
		if draft.Paid != nil {
			event.Paid = *draft.Paid
		}
		if draft.ParticipantLimit != nil {
			event.ParticipantLimit = *draft.ParticipantLimit
		}
		if draft.RequestModeration != nil {
			event.RequestModeration = *draft.RequestModeration
		}
		var err error
		created, err = repo.CreateEvent(ctx, event)
		return err
	})
	if err != nil {
		return EventDetails{}, err
	}
	return s.details(ctx, created.ID, false)
}

// UpdateByUser applies an initiator's edit to an unpublished event.
func (s *EventService) UpdateByUser(ctx context.Context, userID, eventID int64, update UserEventUpdate) (result EventDetails, err error) {
	ctx, span := startSpan(ctx, "events.update_by_user",
		attribute.Int64("user.id", userID), attribute.Int64("event.id", eventID))
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return EventDetails{}, ErrStoreNotConfigured
	}
	if err := validatePatch(update.EventPatch); err != nil {
		return EventDetails{}, err
	}
	var target EventState
	if update.StateAction != nil {
		var ok bool
		if target, ok = update.StateAction.Target(); !ok {
			return EventDetails{}, invalidField("stateAction", "Unknown state action: %s", *update.StateAction)
		}
	}

	err = s.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetUser(ctx, userID); err != nil {
			return lookupErr(err, kindUser, userID)
		}
		event, err := repo.GetEvent(ctx, eventID)
		if err != nil {
			return lookupErr(err, kindEvent, eventID)
		}
		if event.InitiatorID != userID {
			return apperrors.Forbiddenf("Event with id=%d was not found", eventID)
		}
		if event.State == EventPublished {
			return apperrors.Conflictf("Only pending or canceled events can be changed")
		}
		now := s.clock.now()
		if date := effectiveDate(event, update.EventPatch); date.Before(now.Add(updateLeadTime)) {
			return apperrors.DateInvalidf("Field: eventDate. Error: must start at least %s after now. Value: %s",
				updateLeadTime, date.Format(time.DateTime))
		}
		if err := ensureCategory(ctx, repo, update.CategoryID); err != nil {
			return err
		}
		if update.StateAction != nil {
			if !event.State.CanTransition(target) {
				return apperrors.Conflictf("Cannot move event from %s to %s", event.State, target)
			}
			event.State = target
		}
		applyPatch(&event, update.EventPatch)
		_, err = saveEvent(ctx, repo, event)
		return err
	})
	if err != nil {
		return EventDetails{}, err
	}
	return s.details(ctx, eventID, true)
}

// UpdateByAdmin applies a moderator's edit and optional publish or reject decision.
func (s *EventService) UpdateByAdmin(ctx context.Context, eventID int64, update AdminEventUpdate) (result EventDetails, err error) {
	ctx, span := startSpan(ctx, "events.update_by_admin", attribute.Int64("event.id", eventID))
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return EventDetails{}, ErrStoreNotConfigured
	}
	if err := validatePatch(update.EventPatch); err != nil {
		return EventDetails{}, err
	}
	if update.StateAction != nil {
		if _, ok := update.StateAction.Target(); !ok {
			return EventDetails{}, invalidField("stateAction", "Unknown state action: %s", *update.StateAction)
		}
	}

	err = s.store.WithinTx(ctx, func(repo Repository) error {
		event, err := repo.GetEvent(ctx, eventID)
		if err != nil {
			return lookupErr(err, kindEvent, eventID)
		}
		if err := ensureCategory(ctx, repo, update.CategoryID); err != nil {
			return err
		}
		if update.StateAction != nil {
			switch *update.StateAction {
			case RejectEvent:
				if event.State == EventPublished {
					return apperrors.Conflictf("Cannot reject the event because it's already published")
				}
			case PublishEvent:
				if event.State != EventPending {
					return apperrors.Conflictf("Cannot publish the event because it's not in the right state: %s", event.State)
				}
			}
		}
		now := s.clock.now()
		date := effectiveDate(event, update.EventPatch)
		if date.Before(now.Add(updateLeadTime)) {
			return apperrors.DateInvalidf("Field: eventDate. Error: must start at least %s after now. Value: %s",
				updateLeadTime, date.Format(time.DateTime))
		}
		if event.PublishedOn != nil && date.Before(event.PublishedOn.Add(updateLeadTime)) {
			return apperrors.DateInvalidf("Field: eventDate. Error: must start at least %s after publication. Value: %s",
				updateLeadTime, date.Format(time.DateTime))
		}
		if update.StateAction != nil {
			target, _ := update.StateAction.Target()
			event.State = target
			if target == EventPublished {
				publishedOn := now
				event.PublishedOn = &publishedOn
			}
		}
		applyPatch(&event, update.EventPatch)
		_, err = saveEvent(ctx, repo, event)
		return err
	})
	if err != nil {
		return EventDetails{}, err
	}
	return s.details(ctx, eventID, true)
}

// GetPublished returns a published event with its view count.
func (s *EventService) GetPublished(ctx context.Context, eventID int64) (EventDetails, error) {
	if s == nil || s.store == nil {
		return EventDetails{}, ErrStoreNotConfigured
	}
	event, err := s.details(ctx, eventID, true)
	if err != nil {
		return EventDetails{}, err
	}
	if event.State != EventPublished {
		return EventDetails{}, notFound(kindEvent, eventID)
	}
	return event, nil
}

// GetByInitiator returns one of the user's own events.
func (s *EventService) GetByInitiator(ctx context.Context, userID, eventID int64) (EventDetails, error) {
	if s == nil || s.store == nil {
		return EventDetails{}, ErrStoreNotConfigured
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return EventDetails{}, lookupErr(err, kindUser, userID)
	}
	event, err := s.details(ctx, eventID, true)
	if err != nil {
		return EventDetails{}, err
	}
	if event.InitiatorID != userID {
		return EventDetails{}, apperrors.Forbiddenf("Event with id=%d was not found", eventID)
	}
	return event, nil
}

// ListByInitiator pages through the user's own events.
func (s *EventService) ListByInitiator(ctx context.Context, userID int64, page pagination.Page) ([]EventDetails, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, lookupErr(err, kindUser, userID)
	}
	return s.search(ctx, EventQuery{InitiatorIDs: []int64{userID}, Page: &page})
}

// SearchAdmin returns events in any state matching the moderation filters.
func (s *EventService) SearchAdmin(ctx context.Context, search AdminSearch) (result []EventDetails, err error) {
	ctx, span := startSpan(ctx, "events.search_admin")
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if err := checkRange(search.RangeStart, search.RangeEnd); err != nil {
		return nil, err
	}
	for _, state := range search.States {
		if !state.Valid() {
			return nil, invalidField("states", "Unknown event state: %s", state)
		}
	}
	page := search.Page
	return s.search(ctx, EventQuery{
		InitiatorIDs: search.UserIDs,
		States:       search.States,
		CategoryIDs:  search.CategoryIDs,
		RangeStart:   search.RangeStart,
		RangeEnd:     search.RangeEnd,
		Filter:       search.Filter,
		Page:         &page,
	})
}

// SearchPublic returns published events matching the reader's filters.
func (s *EventService) SearchPublic(ctx context.Context, search PublicSearch) (result []EventDetails, err error) {
	ctx, span := startSpan(ctx, "events.search_public")
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if err := checkRange(search.RangeStart, search.RangeEnd); err != nil {
		return nil, err
	}
	switch search.Sort {
	case SortByID, SortByEventDate, SortByViews:
	default:
		return nil, invalidField("sort", "Unknown sort: %s", search.Sort)
	}
	query := EventQuery{
		States:        []EventState{EventPublished},
		CategoryIDs:   search.CategoryIDs,
		Text:          strings.TrimSpace(search.Text),
		Paid:          search.Paid,
		RangeStart:    search.RangeStart,
		RangeEnd:      search.RangeEnd,
		OnlyAvailable: search.OnlyAvailable,
		Sort:          search.Sort,
	}
	if query.RangeStart == nil && query.RangeEnd == nil {
		now := s.clock.now()
		query.RangeStart = &now
	}
	if search.Sort != SortByViews {
		page := search.Page
		query.Page = &page
		return s.search(ctx, query)
	}

	// Views live in the stats service, so ordering by them happens here.
	query.Sort = SortByEventDate
	events, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Views > events[j].Views
	})
	return pagination.Window(events, search.Page), nil
}

// RecordView reports a hit on uri to the stats service without waiting.
func (s *EventService) RecordView(ctx context.Context, uri, ip string) {
	if s == nil || s.stats == nil {
		return
	}
	s.stats.RecordHit(ctx, uri, ip, s.clock.now())
}

func checkRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return invalidField("rangeEnd", "rangeEnd %s is before rangeStart %s",
			end.Format(time.DateTime), start.Format(time.DateTime))
	}
	return nil
}

func (s *EventService) search(ctx context.Context, query EventQuery) ([]EventDetails, error) {
	events, err := s.store.SearchEvents(ctx, query)
	if errors.Is(err, ErrInvalidFilter) {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, err.Error(), err)
	}
	if err != nil {
		return nil, err
	}
	attachViews(ctx, s.stats, events)
	return events, nil
}

func (s *EventService) details(ctx context.Context, eventID int64, withViews bool) (EventDetails, error) {
	found, err := s.store.GetEventDetails(ctx, []int64{eventID})
	if err != nil {
		return EventDetails{}, err
	}
	if len(found) == 0 {
		return EventDetails{}, notFound(kindEvent, eventID)
	}
	if withViews {
		attachViews(ctx, s.stats, found[:1])
	}
	return found[0], nil
}
