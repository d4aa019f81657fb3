package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository    = (*Repository)(nil)
	_ repository.ProjectRepository = (*Repository)(nil)
)

// CreateUser inserts a user. A duplicate email maps to ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateProject inserts a project with its embedded todo list.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project) error {
	payload, err := marshalTodos(project.Todos)
	if err != nil {
		return err
	}
	const query = `INSERT INTO projects (id, title, todos, version, created_at)
		VALUES ($1, $2, $3::jsonb, $4, $5)`
	_, err = r.pool.Exec(ctx, query, project.ID, project.Title, payload, project.Version, project.CreatedDate)
	return err
}

// ListProjects returns every project in creation order.
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	const query = `SELECT id, title, todos, version, created_at
		FROM projects ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

// GetProjectByID fetches a project with its todos.
func (r *Repository) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	const query = `SELECT id, title, todos, version, created_at FROM projects WHERE id = $1`
	project, err := scanProject(r.pool.QueryRow(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

// UpdateTitle sets the project title.
func (r *Repository) UpdateTitle(ctx context.Context, projectID, title string) error {
	const query = `UPDATE projects SET title = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, projectID, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AppendTodo appends one todo to the embedded list in a single atomic
// statement, so concurrent appends to the same project cannot lose
// each other's writes.
func (r *Repository) AppendTodo(ctx context.Context, projectID string, todo domain.Todo) error {
	payload, err := marshalTodos([]domain.Todo{todo})
	if err != nil {
		return err
	}
	const query = `UPDATE projects
		SET todos = todos || $2::jsonb, version = version + 1
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, projectID, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ReplaceTodos rewrites the embedded list, guarded by the record
// version read alongside it. ErrConflict signals the caller to re-read
// and retry.
func (r *Repository) ReplaceTodos(ctx context.Context, projectID string, todos []domain.Todo, expectedVersion int64) error {
	payload, err := marshalTodos(todos)
	if err != nil {
		return err
	}
	const query = `UPDATE projects
		SET todos = $2::jsonb, version = version + 1
		WHERE id = $1 AND version = $3`
	tag, err := r.pool.Exec(ctx, query, projectID, payload, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	const existsQuery = `SELECT 1 FROM projects WHERE id = $1`
	var one int
	if err := r.pool.QueryRow(ctx, existsQuery, projectID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return repository.ErrConflict
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		project domain.Project
		raw     []byte
	)
	if err := row.Scan(&project.ID, &project.Title, &raw, &project.Version, &project.CreatedDate); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &project.Todos); err != nil {
		return nil, fmt.Errorf("decode todos for project %s: %w", project.ID, err)
	}
	if project.Todos == nil {
		project.Todos = []domain.Todo{}
	}
	return &project, nil
}

func marshalTodos(todos []domain.Todo) (string, error) {
	if todos == nil {
		todos = []domain.Todo{}
	}
	payload, err := json.Marshal(todos)
	if err != nil {
		return "", fmt.Errorf("encode todos: %w", err)
	}
	return string(payload), nil
}
