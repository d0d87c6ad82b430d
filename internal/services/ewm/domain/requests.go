package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/timeouts"
	"go.opentelemetry.io/otel/attribute"
)

// StatusUpdate asks to move a batch of pending requests to Status. The order
// of RequestIDs decides who gets the remaining slots.
type StatusUpdate struct {
	RequestIDs []int64
	Status     RequestStatus
}

// StatusUpdateResult lists the batch requests the update touched.
type StatusUpdateResult struct {
	Confirmed []Request
	Rejected  []Request
}

// RequestService owns participation requests and capacity enforcement.
type RequestService struct {
	store      Store
	clock      Clock
	newBackOff func() backoff.BackOff
	maxElapsed time.Duration
}

// RequestOption customizes a RequestService.
type RequestOption func(*RequestService)

// WithBackOff replaces the retry policy used when a batch loses a race on
// the event version.
func WithBackOff(newBackOff func() backoff.BackOff, maxElapsed time.Duration) RequestOption {
	return func(s *RequestService) {
		if newBackOff != nil {
			s.newBackOff = newBackOff
		}
		if maxElapsed > 0 {
			s.maxElapsed = maxElapsed
		}
	}
}

// NewRequestService constructs participation use-cases.
func NewRequestService(store Store, clock Clock, opts ...RequestOption) *RequestService {
	s := &RequestService{
		store:      store,
		clock:      clock,
		newBackOff: defaultBackOff,
		maxElapsed: timeouts.ConfirmRetry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	return b
}

// Create registers userID as a participant of eventID.
func (s *RequestService) Create(ctx context.Context, userID, eventID int64) (result Request, err error) {
	ctx, span := startSpan(ctx, "requests.create",
		attribute.Int64("user.id", userID), attribute.Int64("event.id", eventID))
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return Request{}, ErrStoreNotConfigured
	}
	err = s.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetUser(ctx, userID); err != nil {
			return lookupErr(err, kindUser, userID)
		}
		event, err := repo.GetEvent(ctx, eventID)
		if err != nil {
			return lookupErr(err, kindEvent, eventID)
		}
		exists, err := repo.RequestExists(ctx, userID, eventID)
		if err != nil {
			return fmt.Errorf("check request: %w", err)
		}
		if exists {
			return duplicateRequest(userID, eventID)
		}
		if event.InitiatorID == userID {
			return apperrors.Conflictf("Initiator cannot participate in their own event")
		}
		if event.State != EventPublished {
			return apperrors.Conflictf("Event with id=%d is not published", eventID)
		}
		if event.HasLimit() {
			confirmed, err := repo.CountRequestsByStatus(ctx, eventID, RequestConfirmed)
			if err != nil {
				return fmt.Errorf("count confirmed requests: %w", err)
			}
			if confirmed >= event.ParticipantLimit {
				return apperrors.Conflictf("The participant limit has been reached")
			}
		}
		status := RequestConfirmed
		if event.HasLimit() && event.RequestModeration {
			status = RequestPending
		}
		result, err = repo.CreateRequest(ctx, Request{
			EventID:     eventID,
			RequesterID: userID,
			Status:      status,
			Created:     s.clock.now(),
		})
		if errors.Is(err, ErrAlreadyExists) {
			return duplicateRequest(userID, eventID)
		}
		return err
	})
	if err != nil {
		return Request{}, err
	}
	return result, nil
}

// Cancel withdraws one of the user's own requests whatever its status.
// Canceling twice is a no-op.
func (s *RequestService) Cancel(ctx context.Context, userID, requestID int64) (result Request, err error) {
	ctx, span := startSpan(ctx, "requests.cancel",
		attribute.Int64("user.id", userID), attribute.Int64("request.id", requestID))
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return Request{}, ErrStoreNotConfigured
	}
	err = s.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetUser(ctx, userID); err != nil {
			return lookupErr(err, kindUser, userID)
		}
		request, err := repo.GetRequest(ctx, requestID)
		if err != nil {
			return lookupErr(err, kindRequest, requestID)
		}
		if request.RequesterID != userID {
			return apperrors.Forbiddenf("Request with id=%d was not found", requestID)
		}
		result = request
		if request.Status == RequestCanceled {
			return nil
		}
		if !request.Status.CanTransition(RequestCanceled) {
			return apperrors.Conflictf("Request with id=%d cannot be canceled from %s", requestID, request.Status)
		}
		if err := repo.SetRequestStatus(ctx, []int64{requestID}, RequestCanceled); err != nil {
			return fmt.Errorf("cancel request: %w", err)
		}
		result.Status = RequestCanceled
		return nil
	})
	if err != nil {
		return Request{}, err
	}
	return result, nil
}

// ChangeStatus confirms or rejects a batch of pending requests for an event
// owned by initiatorID. Concurrent batches on one event are serialized
// through the event version; a lost race reruns the whole batch.
func (s *RequestService) ChangeStatus(ctx context.Context, initiatorID, eventID int64, update StatusUpdate) (result StatusUpdateResult, err error) {
	ctx, span := startSpan(ctx, "requests.change_status",
		attribute.Int64("user.id", initiatorID),
		attribute.Int64("event.id", eventID),
		attribute.String("request.status", string(update.Status)),
		attribute.Int("request.count", len(update.RequestIDs)))
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return StatusUpdateResult{}, ErrStoreNotConfigured
	}
	if update.Status != RequestConfirmed && update.Status != RequestRejected {
		return StatusUpdateResult{}, invalidField("status", "Field: status. Error: must be CONFIRMED or REJECTED. Value: %s", update.Status)
	}
	ids := dedupeIDs(update.RequestIDs)
	if len(ids) == 0 {
		return StatusUpdateResult{}, invalidField("requestIds", "Field: requestIds. Error: must not be empty. Value: []")
	}

	attempt := func() (StatusUpdateResult, error) {
		var out StatusUpdateResult
		err := s.store.WithinTx(ctx, func(repo Repository) error {
			var err error
			out, err = s.changeStatus(ctx, repo, initiatorID, eventID, ids, update.Status)
			return err
		})
		if errors.Is(err, ErrVersionConflict) {
			return StatusUpdateResult{}, err
		}
		if err != nil {
			return StatusUpdateResult{}, backoff.Permanent(err)
		}
		return out, nil
	}
	result, err = backoff.Retry(ctx, attempt,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxElapsedTime(s.maxElapsed))
	if errors.Is(err, ErrVersionConflict) {
		return StatusUpdateResult{}, apperrors.Conflictf("Requests for event with id=%d are being updated concurrently", eventID)
	}
	if err != nil {
		return StatusUpdateResult{}, err
	}
	return result, nil
}

func (s *RequestService) changeStatus(ctx context.Context, repo Repository, initiatorID, eventID int64, ids []int64, status RequestStatus) (StatusUpdateResult, error) {
	if _, err := repo.GetUser(ctx, initiatorID); err != nil {
		return StatusUpdateResult{}, lookupErr(err, kindUser, initiatorID)
	}
	event, err := repo.GetEvent(ctx, eventID)
	if err != nil {
		return StatusUpdateResult{}, lookupErr(err, kindEvent, eventID)
	}
	if event.InitiatorID != initiatorID {
		return StatusUpdateResult{}, apperrors.Forbiddenf("Event with id=%d was not found", eventID)
	}

	found, err := repo.GetRequestsByIDs(ctx, ids)
	if err != nil {
		return StatusUpdateResult{}, fmt.Errorf("get requests: %w", err)
	}
	byID := make(map[int64]Request, len(found))
	for _, request := range found {
		byID[request.ID] = request
	}
	batch := make([]Request, 0, len(ids))
	for _, id := range ids {
		request, ok := byID[id]
		if !ok || request.EventID != eventID {
			return StatusUpdateResult{}, notFound(kindRequest, id)
		}
		batch = append(batch, request)
	}
	for _, request := range batch {
		if request.Status != RequestPending {
			return StatusUpdateResult{}, apperrors.Conflictf("Request must have status PENDING")
		}
	}

	var result StatusUpdateResult
	cascade := false
	if status == RequestRejected {
		result.Rejected = markAll(batch, RequestRejected)
	} else {
		result, cascade, err = s.confirm(ctx, repo, event, batch)
		if err != nil {
			return StatusUpdateResult{}, err
		}
	}

	if err := repo.SetRequestStatus(ctx, requestIDs(result.Confirmed), RequestConfirmed); err != nil {
		return StatusUpdateResult{}, fmt.Errorf("confirm requests: %w", err)
	}
	if err := repo.SetRequestStatus(ctx, requestIDs(result.Rejected), RequestRejected); err != nil {
		return StatusUpdateResult{}, fmt.Errorf("reject requests: %w", err)
	}
	if cascade {
		pending, err := repo.ListPendingRequestsForEvent(ctx, eventID)
		if err != nil {
			return StatusUpdateResult{}, fmt.Errorf("list pending requests: %w", err)
		}
		if err := repo.SetRequestStatus(ctx, requestIDs(pending), RequestRejected); err != nil {
			return StatusUpdateResult{}, fmt.Errorf("reject pending requests: %w", err)
		}
	}
	if err := repo.BumpEventVersion(ctx, event.ID, event.Version); err != nil {
		return StatusUpdateResult{}, err
	}
	return result, nil
}

// confirm hands out the event's free slots to batch in input order and
// rejects the overflow. An event with no free slots, including one with a
// zero limit, is a Conflict. The returned flag reports exact exhaustion.
func (s *RequestService) confirm(ctx context.Context, repo Repository, event Event, batch []Request) (StatusUpdateResult, bool, error) {
	confirmed, err := repo.CountRequestsByStatus(ctx, event.ID, RequestConfirmed)
	if err != nil {
		return StatusUpdateResult{}, false, fmt.Errorf("count confirmed requests: %w", err)
	}
	available := event.ParticipantLimit - confirmed
	if available <= 0 {
		return StatusUpdateResult{}, false, apperrors.Conflictf("The participant limit has been reached")
	}
	var result StatusUpdateResult
	for _, request := range batch {
		if available > 0 {
			request.Status = RequestConfirmed
			result.Confirmed = append(result.Confirmed, request)
			available--
			continue
		}
		request.Status = RequestRejected
		result.Rejected = append(result.Rejected, request)
	}
	return result, available == 0, nil
}

// ConfirmedCount returns the live number of confirmed requests for eventID.
func (s *RequestService) ConfirmedCount(ctx context.Context, eventID int64) (int64, error) {
	if s == nil || s.store == nil {
		return 0, ErrStoreNotConfigured
	}
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return 0, lookupErr(err, kindEvent, eventID)
	}
	return s.store.CountRequestsByStatus(ctx, eventID, RequestConfirmed)
}

// ListByRequester returns every request the user has made.
func (s *RequestService) ListByRequester(ctx context.Context, userID int64) ([]Request, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, lookupErr(err, kindUser, userID)
	}
	return s.store.ListRequestsByRequester(ctx, userID)
}

// ListForEvent returns every request for an event owned by initiatorID.
func (s *RequestService) ListForEvent(ctx context.Context, initiatorID, eventID int64) ([]Request, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if _, err := s.store.GetUser(ctx, initiatorID); err != nil {
		return nil, lookupErr(err, kindUser, initiatorID)
	}
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, lookupErr(err, kindEvent, eventID)
	}
	if event.InitiatorID != initiatorID {
		return nil, apperrors.Forbiddenf("Event with id=%d was not found", eventID)
	}
	return s.store.ListRequestsForEvent(ctx, eventID)
}

func duplicateRequest(userID, eventID int64) error {
	return apperrors.Conflictf("Request from user with id=%d for event with id=%d already exists", userID, eventID)
}

func markAll(requests []Request, status RequestStatus) []Request {
	out := make([]Request, 0, len(requests))
	for _, request := range requests {
		request.Status = status
		out = append(out, request)
	}
	return out
}

func requestIDs(requests []Request) []int64 {
	ids := make([]int64, 0, len(requests))
	for _, request := range requests {
		ids = append(ids, request.ID)
	}
	return ids
}
