package project

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"log/slog"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// memoryRepo implements repository.ProjectRepository with the same
// version semantics as the postgres implementation.
type memoryRepo struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{projects: make(map[string]*domain.Project)}
}

func (m *memoryRepo) CreateProject(_ context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *project
	clone.Todos = append([]domain.Todo(nil), project.Todos...)
	m.projects[project.ID] = &clone
	return nil
}

func (m *memoryRepo) ListProjects(_ context.Context) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Project, 0, len(m.projects))
	for _, project := range m.projects {
		out = append(out, *project)
	}
	return out, nil
}

func (m *memoryRepo) GetProjectByID(_ context.Context, projectID string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *project
	clone.Todos = append([]domain.Todo(nil), project.Todos...)
	return &clone, nil
}

func (m *memoryRepo) UpdateTitle(_ context.Context, projectID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectID]
	if !ok {
		return repository.ErrNotFound
	}
	project.Title = title
	return nil
}

func (m *memoryRepo) AppendTodo(_ context.Context, projectID string, todo domain.Todo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectID]
	if !ok {
		return repository.ErrNotFound
	}
	project.Todos = append(project.Todos, todo)
	project.Version++
	return nil
}

func (m *memoryRepo) ReplaceTodos(_ context.Context, projectID string, todos []domain.Todo, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectID]
	if !ok {
		return repository.ErrNotFound
	}
	if project.Version != expectedVersion {
		return repository.ErrConflict
	}
	project.Todos = append([]domain.Todo(nil), todos...)
	project.Version++
	return nil
}

// conflictRepo wraps a delegate and forces ReplaceTodos conflicts for
// the first n calls.
type conflictRepo struct {
	repository.ProjectRepository
	mu        sync.Mutex
	conflicts int
	replaces  int
}

func (c *conflictRepo) ReplaceTodos(ctx context.Context, projectID string, todos []domain.Todo, expectedVersion int64) error {
	c.mu.Lock()
	c.replaces++
	force := c.conflicts > 0
	if force {
		c.conflicts--
	}
	c.mu.Unlock()
	if force {
		return repository.ErrConflict
	}
	return c.ProjectRepository.ReplaceTodos(ctx, projectID, todos, expectedVersion)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedProject(t *testing.T, svc Service, title string) *domain.Project {
	t.Helper()
	project, err := svc.Create(context.Background(), title)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func fetch(t *testing.T, svc Service, id string) *domain.Project {
	t.Helper()
	project, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	return project
}

func TestCreateRequiresTitle(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	if _, err := svc.Create(context.Background(), "  "); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")

	got := fetch(t, svc, created.ID)
	if got.Title != "T" {
		t.Fatalf("expected title T, got %q", got.Title)
	}
	if len(got.Todos) != 0 {
		t.Fatalf("expected empty todo list, got %d", len(got.Todos))
	}
	if got.CreatedDate.IsZero() {
		t.Fatalf("expected createdDate to be set")
	}
}

func TestGetMissingProject(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameMissingProject(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	if err := svc.Rename(context.Background(), "nope", "new title"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddTodoDefaults(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")

	if err := svc.AddTodo(context.Background(), created.ID, "D"); err != nil {
		t.Fatalf("add todo: %v", err)
	}

	got := fetch(t, svc, created.ID)
	if len(got.Todos) != 1 {
		t.Fatalf("expected one todo, got %d", len(got.Todos))
	}
	todo := got.Todos[0]
	if todo.Description != "D" {
		t.Fatalf("unexpected description %q", todo.Description)
	}
	if todo.Status != domain.TodoStatusPending {
		t.Fatalf("expected pending status, got %q", todo.Status)
	}
	if todo.CreatedDate.IsZero() {
		t.Fatalf("expected createdDate to be set")
	}
	if todo.UpdatedDate != nil {
		t.Fatalf("expected no updatedDate on creation")
	}
}

func TestAddTodoRequiresDescription(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")
	if err := svc.AddTodo(context.Background(), created.ID, " "); !errors.Is(err, ErrDescriptionRequired) {
		t.Fatalf("expected ErrDescriptionRequired, got %v", err)
	}
}

func TestAddTodoMissingProject(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	if err := svc.AddTodo(context.Background(), "nope", "D"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTodoStatusKeepsDescription(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")
	if err := svc.AddTodo(context.Background(), created.ID, "D"); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	todoID := fetch(t, svc, created.ID).Todos[0].ID

	if err := svc.UpdateTodoStatus(context.Background(), created.ID, todoID, domain.TodoStatusCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}

	todo := fetch(t, svc, created.ID).Todos[0]
	if todo.Status != domain.TodoStatusCompleted {
		t.Fatalf("expected completed, got %q", todo.Status)
	}
	if todo.Description != "D" {
		t.Fatalf("description changed to %q", todo.Description)
	}
}

func TestUpdateTodoStatusEmptyKeepsExisting(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")
	if err := svc.AddTodo(context.Background(), created.ID, "D"); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	todoID := fetch(t, svc, created.ID).Todos[0].ID

	if err := svc.UpdateTodoStatus(context.Background(), created.ID, todoID, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if got := fetch(t, svc, created.ID).Todos[0].Status; got != domain.TodoStatusPending {
		t.Fatalf("expected status unchanged, got %q", got)
	}
}

func TestUpdateTodoStatusInvalid(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	if err := svc.UpdateTodoStatus(context.Background(), "p", "t", "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateTodoDescriptionPartialSemantics(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")
	if err := svc.AddTodo(context.Background(), created.ID, "original"); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	todoID := fetch(t, svc, created.ID).Todos[0].ID

	// Empty input keeps the existing description but still stamps the edit.
	if err := svc.UpdateTodoDescription(context.Background(), created.ID, todoID, ""); err != nil {
		t.Fatalf("update description: %v", err)
	}
	todo := fetch(t, svc, created.ID).Todos[0]
	if todo.Description != "original" {
		t.Fatalf("expected description kept, got %q", todo.Description)
	}
	if todo.UpdatedDate == nil {
		t.Fatalf("expected updatedDate to be set")
	}

	if err := svc.UpdateTodoDescription(context.Background(), created.ID, todoID, "edited"); err != nil {
		t.Fatalf("update description: %v", err)
	}
	if got := fetch(t, svc, created.ID).Todos[0].Description; got != "edited" {
		t.Fatalf("expected edited description, got %q", got)
	}
}

func TestUpdateTodoDescriptionMissingTodo(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")
	if err := svc.UpdateTodoDescription(context.Background(), created.ID, "nope", "D"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTodoPreservesOrder(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")
	for _, description := range []string{"first", "second", "third"} {
		if err := svc.AddTodo(context.Background(), created.ID, description); err != nil {
			t.Fatalf("add todo %q: %v", description, err)
		}
	}
	todos := fetch(t, svc, created.ID).Todos
	if len(todos) != 3 {
		t.Fatalf("expected 3 todos, got %d", len(todos))
	}

	if err := svc.DeleteTodo(context.Background(), created.ID, todos[1].ID); err != nil {
		t.Fatalf("delete todo: %v", err)
	}

	remaining := fetch(t, svc, created.ID).Todos
	if len(remaining) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(remaining))
	}
	if remaining[0].Description != "first" || remaining[1].Description != "third" {
		t.Fatalf("order not preserved: %q, %q", remaining[0].Description, remaining[1].Description)
	}
	for _, todo := range remaining {
		if todo.ID == todos[1].ID {
			t.Fatalf("deleted todo still present")
		}
	}
}

func TestDeleteTodoMissing(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")
	if err := svc.DeleteTodo(context.Background(), created.ID, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTodoMutationRetriesOnConflict(t *testing.T) {
	base := newMemoryRepo()
	repo := &conflictRepo{ProjectRepository: base, conflicts: 2}
	svc := New(repo, newLogger())
	created := seedProject(t, svc, "T")
	if err := svc.AddTodo(context.Background(), created.ID, "D"); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	todoID := fetch(t, svc, created.ID).Todos[0].ID

	if err := svc.UpdateTodoStatus(context.Background(), created.ID, todoID, domain.TodoStatusCompleted); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if repo.replaces != 3 {
		t.Fatalf("expected 3 replace attempts, got %d", repo.replaces)
	}
	if got := fetch(t, svc, created.ID).Todos[0].Status; got != domain.TodoStatusCompleted {
		t.Fatalf("expected completed after retry, got %q", got)
	}
}

func TestTodoMutationConflictExhausted(t *testing.T) {
	base := newMemoryRepo()
	repo := &conflictRepo{ProjectRepository: base, conflicts: maxConflictRetries}
	svc := New(repo, newLogger())
	created := seedProject(t, svc, "T")
	if err := svc.AddTodo(context.Background(), created.ID, "D"); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	todoID := fetch(t, svc, created.ID).Todos[0].ID

	err := svc.DeleteTodo(context.Background(), created.ID, todoID)
	if !errors.Is(err, ErrConflictExhausted) {
		t.Fatalf("expected ErrConflictExhausted, got %v", err)
	}
}

func TestConcurrentAddsAllLand(t *testing.T) {
	svc := New(newMemoryRepo(), newLogger())
	created := seedProject(t, svc, "T")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, description := range []string{"caller-a", "caller-b"} {
		wg.Add(1)
		go func(i int, description string) {
			defer wg.Done()
			errs[i] = svc.AddTodo(context.Background(), created.ID, description)
		}(i, description)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}
	todos := fetch(t, svc, created.ID).Todos
	if len(todos) != 2 {
		t.Fatalf("expected both adds to land, got %d todos", len(todos))
	}
	seen := map[string]bool{}
	for _, todo := range todos {
		seen[todo.Description] = true
	}
	if !seen["caller-a"] || !seen["caller-b"] {
		t.Fatalf("missing todo from concurrent adds: %v", seen)
	}
}
