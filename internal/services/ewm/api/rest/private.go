package rest

import (
	"net/http"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

func (h *handler) handleListOwnEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	events, err := h.Events.ListByInitiator(r.Context(), userID, page)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, mapSlice(events, toEventShortDto))
}

func (h *handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in NewEventDto
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if in.Location == nil {
		err := apperrors.InvalidArgumentf("Field: location. Error: must not be null. Value: null")
		err.Metadata = map[string]string{"field": "location"}
		httpx.WriteError(w, r, err)
		return
	}
	event, err := h.Events.CreateEvent(r.Context(), userID, in.toDomain())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeCreated(w, toEventFullDto(event))
}

func (h *handler) handleGetOwnEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	event, err := h.Events.GetByInitiator(r.Context(), userID, eventID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toEventFullDto(event))
}

func (h *handler) handleUpdateOwnEvent(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in UpdateEventRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	event, err := h.Events.UpdateByUser(r.Context(), userID, eventID, in.userUpdate())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toEventFullDto(event))
}

func (h *handler) handleListEventRequests(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	requests, err := h.Requests.ListForEvent(r.Context(), userID, eventID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, mapSlice(requests, toRequestDto))
}

func (h *handler) handleChangeRequestStatus(w http.ResponseWriter, r *http.Request) {
	userID, eventID, err := userAndEvent(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in EventRequestStatusUpdateRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	result, err := h.Requests.ChangeStatus(r.Context(), userID, eventID, domain.StatusUpdate{
		RequestIDs: in.RequestIDs,
		Status:     domain.RequestStatus(in.Status),
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toStatusUpdateResult(result))
}

func (h *handler) handleListOwnRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	requests, err := h.Requests.ListByRequester(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, mapSlice(requests, toRequestDto))
}

func (h *handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	eventID, err := httpx.QueryInt64(r, "eventId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	request, err := h.Requests.Create(r.Context(), userID, eventID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeCreated(w, toRequestDto(request))
}

func (h *handler) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	requestID, err := httpx.PathInt64(r, "requestId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	request, err := h.Requests.Cancel(r.Context(), userID, requestID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toRequestDto(request))
}

func (h *handler) handleListOwnComments(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	query, err := parseCommentQuery(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	query.AuthorID = userID
	h.writeComments(w, r, query)
}

func (h *handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	eventID, err := httpx.QueryInt64(r, "eventId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in CommentRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	comment, err := h.Comments.Add(r.Context(), userID, eventID, in.Message)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeCreated(w, toCommentDto(comment))
}

func (h *handler) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, commentID, err := userAndComment(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in CommentRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	comment, err := h.Comments.Update(r.Context(), userID, commentID, in.Message)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toCommentDto(comment))
}

func (h *handler) handleDeleteOwnComment(w http.ResponseWriter, r *http.Request) {
	userID, commentID, err := userAndComment(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.Comments.DeleteByAuthor(r.Context(), userID, commentID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeNoContent(w)
}

func userAndEvent(r *http.Request) (int64, int64, error) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		return 0, 0, err
	}
	eventID, err := httpx.PathInt64(r, "eventId")
	if err != nil {
		return 0, 0, err
	}
	return userID, eventID, nil
}

func userAndComment(r *http.Request) (int64, int64, error) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		return 0, 0, err
	}
	commentID, err := httpx.PathInt64(r, "commentId")
	if err != nil {
		return 0, 0, err
	}
	return userID, commentID, nil
}
