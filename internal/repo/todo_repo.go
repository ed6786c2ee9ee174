package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dom "github.com/Jeremieon/todo-api-cicd/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no todo row matches the requested id.
var ErrNotFound = errors.New("todo not found")

type TodoRepo interface {
	Create(ctx context.Context, t dom.NewTodo) (dom.Todo, error)
	GetByID(ctx context.Context, id int64) (dom.Todo, error)
	List(ctx context.Context, skip, limit int) ([]dom.Todo, error)
	Update(ctx context.Context, id int64, patch dom.TodoPatch) (dom.Todo, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

const todoColumns = `id, title, description, completed, priority, created_at, updated_at`

// patchColumns returns the column names and values present in the patch, in a fixed order.
func patchColumns(p dom.TodoPatch) ([]string, []any) {
	var cols []string
	var args []any
	if p.Title.Set {
		cols = append(cols, "title")
		args = append(args, p.Title.Value)
	}
	if p.Description.Set {
		cols = append(cols, "description")
		args = append(args, p.Description.Value)
	}
	if p.Completed.Set {
		cols = append(cols, "completed")
		args = append(args, p.Completed.Value)
	}
	if p.Priority.Set {
		cols = append(cols, "priority")
		args = append(args, p.Priority.Value)
	}
	return cols, args
}

type PGTodoRepo struct {
	db *pgxpool.Pool
}

func NewPGTodoRepo(db *pgxpool.Pool) *PGTodoRepo {
	return &PGTodoRepo{db: db}
}

func scanTodo(row pgx.Row) (dom.Todo, error) {
	var t dom.Todo
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.Priority, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Todo{}, ErrNotFound
	}
	return t, err
}

func (r *PGTodoRepo) Create(ctx context.Context, t dom.NewTodo) (dom.Todo, error) {
	query := `
		INSERT INTO todos (title, description, completed, priority)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + todoColumns
	return scanTodo(r.db.QueryRow(ctx, query, t.Title, t.Description, t.Completed, t.Priority))
}

func (r *PGTodoRepo) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = $1`
	return scanTodo(r.db.QueryRow(ctx, query, id))
}

func (r *PGTodoRepo) List(ctx context.Context, skip, limit int) ([]dom.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos ORDER BY id ASC OFFSET $1 LIMIT $2`
	rows, err := r.db.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]dom.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Update writes only the columns present in patch and bumps updated_at in one statement.
func (r *PGTodoRepo) Update(ctx context.Context, id int64, patch dom.TodoPatch) (dom.Todo, error) {
	query, args := pgUpdateQuery(id, patch)
	return scanTodo(r.db.QueryRow(ctx, query, args...))
}

// pgUpdateQuery builds the UPDATE for patch. $1 is the id, patch values follow from $2.
func pgUpdateQuery(id int64, patch dom.TodoPatch) (string, []any) {
	cols, vals := patchColumns(patch)
	set := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		set = append(set, fmt.Sprintf("%s = $%d", c, i+2))
	}
	set = append(set, "updated_at = NOW()")

	query := `UPDATE todos SET ` + strings.Join(set, ", ") + ` WHERE id = $1 RETURNING ` + todoColumns
	return query, append([]any{id}, vals...)
}

func (r *PGTodoRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGTodoRepo) Ping(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `SELECT 1`)
	return err
}
