package domain

import "time"

// Todo statuses.
const (
	TodoStatusPending   = "pending"
	TodoStatusCompleted = "completed"
)

// Todo is a single task owned by a project. Todos are embedded in their
// parent and are not independently addressable.
type Todo struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedDate time.Time  `json:"createdDate"`
	UpdatedDate *time.Time `json:"updatedDate,omitempty"`
}

// Project groups an ordered list of todos under a title. Version counts
// todo-list rewrites and backs the optimistic concurrency check; it is
// not part of the API surface.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CreatedDate time.Time `json:"createdDate"`
	Todos       []Todo    `json:"todos"`
	Version     int64     `json:"-"`
}
