// Package rest exposes the main service over HTTP.
package rest

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/platform/pagination"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

// UserService is the user administration surface.
type UserService interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	List(ctx context.Context, ids []int64, page pagination.Page) ([]domain.User, error)
	Delete(ctx context.Context, id int64) error
}

// CategoryService is the category surface.
type CategoryService interface {
	Create(ctx context.Context, name string) (domain.Category, error)
	Update(ctx context.Context, id int64, name string) (domain.Category, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (domain.Category, error)
	List(ctx context.Context, page pagination.Page) ([]domain.Category, error)
}

// EventService is the event lifecycle surface.
type EventService interface {
	CreateEvent(ctx context.Context, initiatorID int64, draft domain.NewEvent) (domain.EventDetails, error)
	UpdateByUser(ctx context.Context, userID, eventID int64, update domain.UserEventUpdate) (domain.EventDetails, error)
	UpdateByAdmin(ctx context.Context, eventID int64, update domain.AdminEventUpdate) (domain.EventDetails, error)
	GetPublished(ctx context.Context, eventID int64) (domain.EventDetails, error)
	GetByInitiator(ctx context.Context, userID, eventID int64) (domain.EventDetails, error)
	ListByInitiator(ctx context.Context, userID int64, page pagination.Page) ([]domain.EventDetails, error)
	SearchAdmin(ctx context.Context, search domain.AdminSearch) ([]domain.EventDetails, error)
	SearchPublic(ctx context.Context, search domain.PublicSearch) ([]domain.EventDetails, error)
	RecordView(ctx context.Context, uri, ip string)
}

// RequestService is the participation request surface.
type RequestService interface {
	Create(ctx context.Context, userID, eventID int64) (domain.Request, error)
	Cancel(ctx context.Context, userID, requestID int64) (domain.Request, error)
	ChangeStatus(ctx context.Context, initiatorID, eventID int64, update domain.StatusUpdate) (domain.StatusUpdateResult, error)
	ListByRequester(ctx context.Context, userID int64) ([]domain.Request, error)
	ListForEvent(ctx context.Context, initiatorID, eventID int64) ([]domain.Request, error)
}

// CommentService is the comment surface.
type CommentService interface {
	Add(ctx context.Context, userID, eventID int64, message string) (domain.CommentDetails, error)
	Update(ctx context.Context, userID, commentID int64, message string) (domain.CommentDetails, error)
	DeleteByAuthor(ctx context.Context, userID, commentID int64) error
	DeleteByAdmin(ctx context.Context, commentID int64) error
	Get(ctx context.Context, commentID int64) (domain.CommentDetails, error)
	List(ctx context.Context, query domain.CommentQuery) ([]domain.CommentDetails, error)
}

// CompilationService is the compilation surface.
type CompilationService interface {
	Create(ctx context.Context, draft domain.NewCompilation) (domain.CompilationDetails, error)
	Update(ctx context.Context, id int64, patch domain.CompilationPatch) (domain.CompilationDetails, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (domain.CompilationDetails, error)
	List(ctx context.Context, pinned *bool, page pagination.Page) ([]domain.CompilationDetails, error)
}

// Services bundles the domain use-cases served over HTTP.
type Services struct {
	Users        UserService
	Categories   CategoryService
	Events       EventService
	Requests     RequestService
	Comments     CommentService
	Compilations CompilationService
}

type handler struct {
	Services
}

// NewHandler builds the main service router.
func NewHandler(services Services, logger *log.Logger) http.Handler {
	h := &handler{Services: services}
	router := chi.NewRouter()
	router.Use(httpx.RequestID(), httpx.RecoverPanic(), httpx.RequestLogger(logger))
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, r, routeNotFound(r))
	})

	router.Route("/admin", h.adminRoutes)
	router.Route("/users/{userId}", h.privateRoutes)
	h.publicRoutes(router)
	return router
}

func (h *handler) adminRoutes(r chi.Router) {
	r.Post("/users", h.handleAdminCreateUser)
	r.Get("/users", h.handleAdminListUsers)
	r.Delete("/users/{userId}", h.handleAdminDeleteUser)

	r.Post("/categories", h.handleAdminCreateCategory)
	r.Patch("/categories/{catId}", h.handleAdminUpdateCategory)
	r.Delete("/categories/{catId}", h.handleAdminDeleteCategory)

	r.Get("/events", h.handleAdminSearchEvents)
	r.Patch("/events/{eventId}", h.handleAdminUpdateEvent)

	r.Post("/compilations", h.handleAdminCreateCompilation)
	r.Patch("/compilations/{compId}", h.handleAdminUpdateCompilation)
	r.Delete("/compilations/{compId}", h.handleAdminDeleteCompilation)

	r.Get("/comments", h.handleAdminListComments)
	r.Delete("/comments/{commentId}", h.handleAdminDeleteComment)
}

func (h *handler) privateRoutes(r chi.Router) {
	r.Get("/events", h.handleListOwnEvents)
	r.Post("/events", h.handleCreateEvent)
	r.Get("/events/{eventId}", h.handleGetOwnEvent)
	r.Patch("/events/{eventId}", h.handleUpdateOwnEvent)
	r.Get("/events/{eventId}/requests", h.handleListEventRequests)
	r.Patch("/events/{eventId}/requests", h.handleChangeRequestStatus)

	r.Get("/requests", h.handleListOwnRequests)
	r.Post("/requests", h.handleCreateRequest)
	r.Patch("/requests/{requestId}/cancel", h.handleCancelRequest)

	r.Get("/comments", h.handleListOwnComments)
	r.Post("/comments", h.handleAddComment)
	r.Patch("/comments/{commentId}", h.handleUpdateComment)
	r.Delete("/comments/{commentId}", h.handleDeleteOwnComment)
}

func (h *handler) publicRoutes(r chi.Router) {
	r.Get("/categories", h.handleListCategories)
	r.Get("/categories/{catId}", h.handleGetCategory)
	r.Get("/compilations", h.handleListCompilations)
	r.Get("/compilations/{compId}", h.handleGetCompilation)
	r.Get("/events", h.handleSearchEvents)
	r.Get("/events/{id}", h.handleGetEvent)
	r.Get("/comments", h.handleListComments)
	r.Get("/comments/{commentId}", h.handleGetComment)
}

func routeNotFound(r *http.Request) error {
	return apperrors.NotFoundf("No handler found for %s %s", r.Method, r.URL.Path)
}

func parsePage(r *http.Request) (pagination.Page, error) {
	from, err := httpx.QueryInt(r, "from", pagination.DefaultFrom)
	if err != nil {
		return pagination.Page{}, err
	}
	size, err := httpx.QueryInt(r, "size", pagination.DefaultSize)
	if err != nil {
		return pagination.Page{}, err
	}
	return pagination.New(from, size)
}

// clientIP prefers the first X-Forwarded-For hop over the socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, _ := strings.Cut(forwarded, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeCreated(w http.ResponseWriter, payload any) {
	_ = httpx.WriteJSON(w, http.StatusCreated, payload)
}

func writeOK(w http.ResponseWriter, payload any) {
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
