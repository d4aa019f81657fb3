package project

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

var (
	// ErrTitleRequired rejects empty project titles.
	ErrTitleRequired = errors.New("title is required")
	// ErrDescriptionRequired rejects empty descriptions on todo creation.
	ErrDescriptionRequired = errors.New("description is required")
	// ErrInvalidStatus rejects statuses outside pending/completed.
	ErrInvalidStatus = errors.New("status must be pending or completed")
	// ErrConflictExhausted is returned when a todo mutation keeps losing
	// the version race after all retries.
	ErrConflictExhausted = errors.New("project was modified concurrently, please retry")
)

// Each todo mutation re-reads the project and retries on a version
// conflict this many times before giving up.
const maxConflictRetries = 3

// Service orchestrates project and todo CRUD. Projects are shared
// between all authenticated users and are never deleted.
type Service struct {
	projects repository.ProjectRepository
	logger   *slog.Logger
}

// New returns a project service.
func New(projects repository.ProjectRepository, logger *slog.Logger) Service {
	return Service{projects: projects, logger: logger}
}

// Create registers a new project with an empty todo list.
func (s Service) Create(ctx context.Context, title string) (*domain.Project, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	project := &domain.Project{
		ID:          uuid.NewString(),
		Title:       title,
		CreatedDate: time.Now().UTC(),
		Todos:       []domain.Todo{},
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", project.ID)
	return project, nil
}

// List returns every project in creation order.
func (s Service) List(ctx context.Context) ([]domain.Project, error) {
	return s.projects.ListProjects(ctx)
}

// Get returns a project by identifier.
func (s Service) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.projects.GetProjectByID(ctx, projectID)
}

// Rename updates a project title.
func (s Service) Rename(ctx context.Context, projectID, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	return s.projects.UpdateTitle(ctx, projectID, title)
}

// AddTodo appends a pending todo to the project. The append is atomic
// at the store, so concurrent adds against one project all land.
func (s Service) AddTodo(ctx context.Context, projectID, description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrDescriptionRequired
	}
	todo := domain.Todo{
		ID:          uuid.NewString(),
		Description: description,
		Status:      domain.TodoStatusPending,
		CreatedDate: time.Now().UTC(),
	}
	if err := s.projects.AppendTodo(ctx, projectID, todo); err != nil {
		return err
	}
	s.logger.Info("todo created", "project_id", projectID, "todo_id", todo.ID)
	return nil
}

// UpdateTodoDescription edits a todo's description and stamps its
// updatedDate. An empty description means "keep the existing one".
func (s Service) UpdateTodoDescription(ctx context.Context, projectID, todoID, description string) error {
	return s.mutateTodos(ctx, projectID, func(todos []domain.Todo) ([]domain.Todo, error) {
		i := indexOfTodo(todos, todoID)
		if i < 0 {
			return nil, repository.ErrNotFound
		}
		if description != "" {
			todos[i].Description = description
		}
		now := time.Now().UTC()
		todos[i].UpdatedDate = &now
		return todos, nil
	})
}

// UpdateTodoStatus moves a todo between pending and completed. An empty
// status means "keep the existing one"; updatedDate is left untouched.
func (s Service) UpdateTodoStatus(ctx context.Context, projectID, todoID, status string) error {
	if status != "" && status != domain.TodoStatusPending && status != domain.TodoStatusCompleted {
		return ErrInvalidStatus
	}
	return s.mutateTodos(ctx, projectID, func(todos []domain.Todo) ([]domain.Todo, error) {
		i := indexOfTodo(todos, todoID)
		if i < 0 {
			return nil, repository.ErrNotFound
		}
		if status != "" {
			todos[i].Status = status
		}
		return todos, nil
	})
}

// DeleteTodo removes a todo by id, keeping the rest of the list in
// order.
func (s Service) DeleteTodo(ctx context.Context, projectID, todoID string) error {
	return s.mutateTodos(ctx, projectID, func(todos []domain.Todo) ([]domain.Todo, error) {
		if indexOfTodo(todos, todoID) < 0 {
			return nil, repository.ErrNotFound
		}
		kept := make([]domain.Todo, 0, len(todos))
		for _, todo := range todos {
			if todo.ID != todoID {
				kept = append(kept, todo)
			}
		}
		return kept, nil
	})
}

// mutateTodos runs a read-modify-write cycle against the embedded todo
// list, guarded by the record version. A conflict re-reads and retries.
func (s Service) mutateTodos(ctx context.Context, projectID string, mutate func([]domain.Todo) ([]domain.Todo, error)) error {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		project, err := s.projects.GetProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		todos := append([]domain.Todo(nil), project.Todos...)
		todos, err = mutate(todos)
		if err != nil {
			return err
		}
		err = s.projects.ReplaceTodos(ctx, projectID, todos, project.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		s.logger.Warn("todo list version conflict, retrying", "project_id", projectID, "attempt", attempt+1)
	}
	return ErrConflictExhausted
}

func indexOfTodo(todos []domain.Todo, todoID string) int {
	for i, todo := range todos {
		if todo.ID == todoID {
			return i
		}
	}
	return -1
}
