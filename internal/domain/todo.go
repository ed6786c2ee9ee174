package domain

import "time"

const DefaultPriority = "medium"

// Todo is the persisted task. It does not depend on gin, pgx or redis.
type Todo struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Completed   bool       `json:"completed" db:"completed"`
	Priority    string     `json:"priority" db:"priority"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at" db:"updated_at"`
}

// NewTodo holds the caller-supplied fields of a todo being created.
// ID and timestamps are assigned by storage.
type NewTodo struct {
	Title       string
	Description *string
	Completed   bool
	Priority    string
}

// Field is an optional value that remembers whether it was set.
type Field[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Field holding v.
func Some[T any](v T) Field[T] { return Field[T]{Value: v, Set: true} }

// TodoPatch is a partial update: only fields with Set == true are written.
// Description may be set to nil to clear it.
type TodoPatch struct {
	Title       Field[string]
	Description Field[*string]
	Completed   Field[bool]
	Priority    Field[string]
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Completed.Set && !p.Priority.Set
}
