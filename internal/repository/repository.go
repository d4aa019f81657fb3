package repository

import (
	"context"

	"taskboard/internal/domain"
)

// UserRepository persists user credentials.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// ProjectRepository persists projects with their embedded todo lists.
//
// AppendTodo is atomic at the store so concurrent adds never lose
// writes. UpdateTitle and ReplaceTodos target a specific record
// version; ReplaceTodos returns ErrConflict when the record changed
// underneath the caller.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project) error
	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	UpdateTitle(ctx context.Context, projectID, title string) error
	AppendTodo(ctx context.Context, projectID string, todo domain.Todo) error
	ReplaceTodos(ctx context.Context, projectID string, todos []domain.Todo, expectedVersion int64) error
}
