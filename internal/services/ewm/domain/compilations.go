package domain

import (
	"context"
	"strings"

	"github.com/louisbranch/ewm/internal/platform/pagination"
)

// NewCompilation is an admin's draft for a curated event list.
type NewCompilation struct {
	Title    string
	Pinned   *bool
	EventIDs []int64
}

// CompilationPatch edits a compilation. A nil EventIDs leaves the event set
// unchanged while an empty non-nil slice clears it.
type CompilationPatch struct {
	Title    *string
	Pinned   *bool
	EventIDs []int64
}

// CompilationService manages curated event lists.
type CompilationService struct {
	store Store
	stats StatsReporter
}

// NewCompilationService constructs compilation use-cases.
func NewCompilationService(store Store, stats StatsReporter) *CompilationService {
	return &CompilationService{store: store, stats: stats}
}

func ensureEvents(ctx context.Context, repo Repository, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := repo.GetEventDetails(ctx, ids)
	if err != nil {
		return err
	}
	known := make(map[int64]struct{}, len(found))
	for _, event := range found {
		known[event.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return notFound(kindEvent, id)
		}
	}
	return nil
}

// Create stores a compilation.
func (s *CompilationService) Create(ctx context.Context, draft NewCompilation) (CompilationDetails, error) {
	if s == nil || s.store == nil {
		return CompilationDetails{}, ErrStoreNotConfigured
	}
	title := strings.TrimSpace(draft.Title)
	if err := checkLength("title", title, 1, 50); err != nil {
		return CompilationDetails{}, err
	}
	compilation := Compilation{Title: title, EventIDs: dedupeIDs(draft.EventIDs)}
	if draft.Pinned != nil {
		compilation.Pinned = *draft.Pinned
	}
	err := s.store.WithinTx(ctx, func(repo Repository) error {
		if err := ensureEvents(ctx, repo, compilation.EventIDs); err != nil {
			return err
		}
		var err error
		compilation, err = repo.CreateCompilation(ctx, compilation)
		return err
	})
	if err != nil {
		return CompilationDetails{}, err
	}
	return s.expand(ctx, compilation)
}

// Update applies a patch to a compilation.
func (s *CompilationService) Update(ctx context.Context, id int64, patch CompilationPatch) (CompilationDetails, error) {
	if s == nil || s.store == nil {
		return CompilationDetails{}, ErrStoreNotConfigured
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if err := checkLength("title", title, 1, 50); err != nil {
			return CompilationDetails{}, err
		}
		patch.Title = &title
	}
	var compilation Compilation
	err := s.store.WithinTx(ctx, func(repo Repository) error {
		var err error
		compilation, err = repo.GetCompilation(ctx, id)
		if err != nil {
			return lookupErr(err, kindCompilation, id)
		}
		if patch.Title != nil {
			compilation.Title = *patch.Title
		}
		if patch.Pinned != nil {
			compilation.Pinned = *patch.Pinned
		}
		if patch.EventIDs != nil {
			compilation.EventIDs = dedupeIDs(patch.EventIDs)
			if err := ensureEvents(ctx, repo, compilation.EventIDs); err != nil {
				return err
			}
		}
		return repo.UpdateCompilation(ctx, compilation)
	})
	if err != nil {
		return CompilationDetails{}, err
	}
	return s.expand(ctx, compilation)
}

// Delete removes a compilation. Its events are untouched.
func (s *CompilationService) Delete(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	if err := s.store.DeleteCompilation(ctx, id); err != nil {
		return lookupErr(err, kindCompilation, id)
	}
	return nil
}

// Get returns one compilation with its events.
func (s *CompilationService) Get(ctx context.Context, id int64) (CompilationDetails, error) {
	if s == nil || s.store == nil {
		return CompilationDetails{}, ErrStoreNotConfigured
	}
	compilation, err := s.store.GetCompilation(ctx, id)
	if err != nil {
		return CompilationDetails{}, lookupErr(err, kindCompilation, id)
	}
	return s.expand(ctx, compilation)
}

// List pages through compilations, optionally only pinned or unpinned ones.
func (s *CompilationService) List(ctx context.Context, pinned *bool, page pagination.Page) ([]CompilationDetails, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	compilations, err := s.store.ListCompilations(ctx, pinned, page)
	if err != nil {
		return nil, err
	}
	out := make([]CompilationDetails, 0, len(compilations))
	for _, compilation := range compilations {
		details, err := s.expand(ctx, compilation)
		if err != nil {
			return nil, err
		}
		out = append(out, details)
	}
	return out, nil
}

func (s *CompilationService) expand(ctx context.Context, compilation Compilation) (CompilationDetails, error) {
	details := CompilationDetails{Compilation: compilation, Events: []EventDetails{}}
	if len(compilation.EventIDs) == 0 {
		return details, nil
	}
	events, err := s.store.GetEventDetails(ctx, compilation.EventIDs)
	if err != nil {
		return CompilationDetails{}, err
	}
	attachViews(ctx, s.stats, events)
	details.Events = events
	return details, nil
}
