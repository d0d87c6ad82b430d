package rest

import (
	"net/http"

	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

func (h *handler) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var in NewUserRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	user, err := h.Users.Create(r.Context(), domain.User{Name: in.Name, Email: in.Email})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeCreated(w, toUserDto(user))
}

func (h *handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := httpx.QueryInt64List(r, "ids")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	users, err := h.Users.List(r.Context(), ids, page)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, mapSlice(users, toUserDto))
}

func (h *handler) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathInt64(r, "userId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.Users.Delete(r.Context(), userID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *handler) handleAdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in CategoryDto
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	category, err := h.Categories.Create(r.Context(), in.Name)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeCreated(w, toCategoryDto(category))
}

func (h *handler) handleAdminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	catID, err := httpx.PathInt64(r, "catId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in CategoryDto
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	category, err := h.Categories.Update(r.Context(), catID, in.Name)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toCategoryDto(category))
}

func (h *handler) handleAdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	catID, err := httpx.PathInt64(r, "catId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.Categories.Delete(r.Context(), catID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *handler) handleAdminSearchEvents(w http.ResponseWriter, r *http.Request) {
	search, err := parseAdminSearch(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	events, err := h.Events.SearchAdmin(r.Context(), search)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, mapSlice(events, toEventFullDto))
}

func parseAdminSearch(r *http.Request) (domain.AdminSearch, error) {
	var search domain.AdminSearch
	var err error
	if search.UserIDs, err = httpx.QueryInt64List(r, "users"); err != nil {
		return search, err
	}
	if search.CategoryIDs, err = httpx.QueryInt64List(r, "categories"); err != nil {
		return search, err
	}
	for _, state := range httpx.QueryStrings(r, "states") {
		search.States = append(search.States, domain.EventState(state))
	}
	if search.RangeStart, err = httpx.QueryTime(r, "rangeStart"); err != nil {
		return search, err
	}
	if search.RangeEnd, err = httpx.QueryTime(r, "rangeEnd"); err != nil {
		return search, err
	}
	search.Filter = r.URL.Query().Get("filter")
	search.Page, err = parsePage(r)
	return search, err
}

func (h *handler) handleAdminUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := httpx.PathInt64(r, "eventId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in UpdateEventRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	event, err := h.Events.UpdateByAdmin(r.Context(), eventID, in.adminUpdate())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toEventFullDto(event))
}

func (h *handler) handleAdminCreateCompilation(w http.ResponseWriter, r *http.Request) {
	var in NewCompilationDto
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	compilation, err := h.Compilations.Create(r.Context(), domain.NewCompilation{
		Title:    in.Title,
		Pinned:   in.Pinned,
		EventIDs: in.Events,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeCreated(w, toCompilationDto(compilation))
}

func (h *handler) handleAdminUpdateCompilation(w http.ResponseWriter, r *http.Request) {
	compID, err := httpx.PathInt64(r, "compId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var in UpdateCompilationRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	compilation, err := h.Compilations.Update(r.Context(), compID, domain.CompilationPatch{
		Title:    in.Title,
		Pinned:   in.Pinned,
		EventIDs: in.Events,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeOK(w, toCompilationDto(compilation))
}

func (h *handler) handleAdminDeleteCompilation(w http.ResponseWriter, r *http.Request) {
	compID, err := httpx.PathInt64(r, "compId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.Compilations.Delete(r.Context(), compID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (h *handler) handleAdminListComments(w http.ResponseWriter, r *http.Request) {
	query, err := parseCommentQuery(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if query.AuthorID, err = optionalQueryID(r, "userId"); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if query.EventID, err = optionalQueryID(r, "eventId"); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeComments(w, r, query)
}

func (h *handler) handleAdminDeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID, err := httpx.PathInt64(r, "commentId")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.Comments.DeleteByAdmin(r.Context(), commentID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	writeNoContent(w)
}
