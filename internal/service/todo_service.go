package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Jeremieon/todo-api-cicd/internal/cache"
	dom "github.com/Jeremieon/todo-api-cicd/internal/domain"
	"github.com/Jeremieon/todo-api-cicd/internal/repo"

	"golang.org/x/sync/singleflight"
)

var ErrNotFound = errors.New("not found")

type TodoService struct {
	repo  repo.TodoRepo
	cache *cache.TodoCache
	log   *slog.Logger
	sf    singleflight.Group
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled.
func NewTodoService(r repo.TodoRepo, c *cache.TodoCache, log *slog.Logger) *TodoService {
	if log == nil {
		log = slog.Default()
	}
	return &TodoService{repo: r, cache: c, log: log}
}

func mapErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *TodoService) List(ctx context.Context, skip, limit int) ([]dom.Todo, error) {
	if s.cache == nil {
		return s.repo.List(ctx, skip, limit)
	}
	key := fmt.Sprintf("list:%d:%d", skip, limit)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// Shared by every caller waiting on key, so one caller going away must not cancel it.
		ctx := context.WithoutCancel(ctx)
		if list, err := s.cache.GetList(ctx, skip, limit); err == nil && list != nil {
			return list, nil
		} else if err != nil {
			s.log.WarnContext(ctx, "todo cache read failed", "key", key, "error", err)
		}
		gen, genErr := s.cache.Generation(ctx)
		list, err := s.repo.List(ctx, skip, limit)
		if err != nil {
			return nil, err
		}
		if genErr != nil {
			s.log.WarnContext(ctx, "todo cache read failed", "key", key, "error", genErr)
			return list, nil
		}
		if _, err := s.cache.SetList(ctx, gen, skip, limit, list); err != nil {
			s.log.WarnContext(ctx, "todo cache write failed", "key", key, "error", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Todo), nil
}

func (s *TodoService) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	if s.cache == nil {
		t, err := s.repo.GetByID(ctx, id)
		return t, mapErr(err)
	}
	key := fmt.Sprintf("item:%d", id)
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		if t, err := s.cache.GetTodo(ctx, id); err == nil && t != nil {
			return *t, nil
		} else if err != nil {
			s.log.WarnContext(ctx, "todo cache read failed", "key", key, "error", err)
		}
		gen, genErr := s.cache.Generation(ctx)
		t, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if genErr != nil {
			s.log.WarnContext(ctx, "todo cache read failed", "key", key, "error", genErr)
			return t, nil
		}
		if _, err := s.cache.SetTodo(ctx, gen, t); err != nil {
			s.log.WarnContext(ctx, "todo cache write failed", "key", key, "error", err)
		}
		return t, nil
	})
	if err != nil {
		return dom.Todo{}, mapErr(err)
	}
	return v.(dom.Todo), nil
}

func (s *TodoService) Create(ctx context.Context, in dom.NewTodo) (dom.Todo, error) {
	if in.Priority == "" {
		in.Priority = dom.DefaultPriority
	}
	t, err := s.repo.Create(ctx, in)
	if err != nil {
		return dom.Todo{}, err
	}
	s.invalidateCache(ctx, t.ID)
	s.log.InfoContext(ctx, "todo created", "id", t.ID)
	return t, nil
}

// Update applies patch to the todo with id. An empty patch changes nothing,
// updated_at included, and returns the stored todo.
func (s *TodoService) Update(ctx context.Context, id int64, patch dom.TodoPatch) (dom.Todo, error) {
	if patch.Empty() {
		return s.GetByID(ctx, id)
	}
	t, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return dom.Todo{}, mapErr(err)
	}
	s.invalidateCache(ctx, id)
	s.log.InfoContext(ctx, "todo updated", "id", id)
	return t, nil
}

func (s *TodoService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapErr(err)
	}
	s.invalidateCache(ctx, id)
	s.log.InfoContext(ctx, "todo deleted", "id", id)
	return nil
}

func (s *TodoService) invalidateCache(ctx context.Context, id int64) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.log.WarnContext(ctx, "todo cache invalidation failed", "id", id, "error", err)
		}
	}
}
