package rest

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

func (h *handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	categories, err := h.Categories.List(r.Context(), page)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, mapSlice(categories, toCategoryDto))
}

func (h *handler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	catID, err := httpx.PathInt64(r, "catId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	category, err := h.Categories.Get(r.Context(), catID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toCategoryDto(category))
}

func (h *handler) handleListCompilations(w http.ResponseWriter, r *http.Request) {
	pinned, err := httpx.QueryBool(r, "pinned")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	compilations, err := h.Compilations.List(r.Context(), pinned, page)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, mapSlice(compilations, toCompilationDto))
}

func (h *handler) handleGetCompilation(w http.ResponseWriter, r *http.Request) {
	compID, err := httpx.PathInt64(r, "compId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	compilation, err := h.Compilations.Get(r.Context(), compID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toCompilationDto(compilation))
}

func (h *handler) handleSearchEvents(w http.ResponseWriter, r *http.Request) {
	search, err := parsePublicSearch(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	events, err := h.Events.SearchPublic(r.Context(), search)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.Events.RecordView(r.Context(), r.URL.Path, clientIP(r))
	writeOK(w, mapSlice(events, toEventShortDto))
}

func parsePublicSearch(r *http.Request) (domain.PublicSearch, error) {
	search := domain.PublicSearch{
		Text: r.URL.Query().Get("text"),
		Sort: domain.EventSort(strings.TrimSpace(r.URL.Query().Get("sort"))),
	}
	var err error
	if search.CategoryIDs, err = httpx.QueryInt64List(r, "categories"); err != nil {
		return search, err
	}
	if search.Paid, err = httpx.QueryBool(r, "paid"); err != nil {
		return search, err
	}
	if search.RangeStart, err = httpx.QueryTime(r, "rangeStart"); err != nil {
		return search, err
	}
	if search.RangeEnd, err = httpx.QueryTime(r, "rangeEnd"); err != nil {
		return search, err
	}
	onlyAvailable, err := httpx.QueryBool(r, "onlyAvailable")
	if err != nil {
		return search, err
	}
	search.OnlyAvailable = onlyAvailable != nil && *onlyAvailable
	search.Page, err = parsePage(r)
	return search, err
}

func (h *handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := httpx.PathInt64(r, "id")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	event, err := h.Events.GetPublished(r.Context(), eventID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.Events.RecordView(r.Context(), r.URL.Path, clientIP(r))
	writeOK(w, toEventFullDto(event))
}

func (h *handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	query, err := parseCommentQuery(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if query.EventID, err = httpx.QueryInt64(r, "eventId"); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeComments(w, r, query)
}

func (h *handler) handleGetComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := httpx.PathInt64(r, "commentId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	comment, err := h.Comments.Get(r.Context(), commentID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toCommentDto(comment))
}

func parseCommentQuery(r *http.Request) (domain.CommentQuery, error) {
	var query domain.CommentQuery
	var err error
	if query.RangeStart, err = httpx.QueryTime(r, "rangeStart"); err != nil {
		return query, err
	}
	if query.RangeEnd, err = httpx.QueryTime(r, "rangeEnd"); err != nil {
		return query, err
	}
	query.Page, err = parsePage(r)
	return query, err
}

// optionalQueryID parses an id filter that may be absent.
func optionalQueryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		err := apperrors.InvalidArgumentf("Invalid parameter type: %s", name)
		err.Metadata = map[string]string{"field": name}
		return 0, err
	}
	return value, nil
}

func (h *handler) writeComments(w http.ResponseWriter, r *http.Request, query domain.CommentQuery) {
	comments, err := h.Comments.List(r.Context(), query)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, mapSlice(comments, toCommentDto))
}
