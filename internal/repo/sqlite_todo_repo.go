package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	dom "github.com/Jeremieon/todo-api-cicd/internal/domain"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) the SQLite database at path and enables WAL mode.
// Schema is not touched; run migrations separately.
func OpenSQLite(path string) (*sqlx.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	return db, nil
}

// SQLiteTodoRepo implements TodoRepo on SQLite.
type SQLiteTodoRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLiteTodoRepo(db *sqlx.DB) *SQLiteTodoRepo {
	return &SQLiteTodoRepo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *SQLiteTodoRepo) Create(ctx context.Context, t dom.NewTodo) (dom.Todo, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO todos (title, description, completed, priority, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.Description, t.Completed, t.Priority, r.now(),
	)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("creating todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return dom.Todo{}, fmt.Errorf("reading todo id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteTodoRepo) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	var t dom.Todo
	err := r.db.GetContext(ctx, &t, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return dom.Todo{}, ErrNotFound
	}
	if err != nil {
		return dom.Todo{}, fmt.Errorf("getting todo %d: %w", id, err)
	}
	return normalizeTimes(t), nil
}

func (r *SQLiteTodoRepo) List(ctx context.Context, skip, limit int) ([]dom.Todo, error) {
	list := make([]dom.Todo, 0)
	err := r.db.SelectContext(ctx, &list,
		`SELECT `+todoColumns+` FROM todos ORDER BY id ASC LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	for i := range list {
		list[i] = normalizeTimes(list[i])
	}
	return list, nil
}

func (r *SQLiteTodoRepo) Update(ctx context.Context, id int64, patch dom.TodoPatch) (dom.Todo, error) {
	cols, args := patchColumns(patch)
	set := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		set = append(set, c+" = ?")
	}
	set = append(set, "updated_at = ?")
	args = append(args, r.now(), id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE todos SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("updating todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dom.Todo{}, fmt.Errorf("updating todo %d: %w", id, err)
	}
	if n == 0 {
		return dom.Todo{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteTodoRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteTodoRepo) Ping(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `SELECT 1`)
	return err
}

// normalizeTimes returns timestamps in UTC; the driver may hand them back in Local.
func normalizeTimes(t dom.Todo) dom.Todo {
	t.CreatedAt = t.CreatedAt.UTC()
	if t.UpdatedAt != nil {
		u := t.UpdatedAt.UTC()
		t.UpdatedAt = &u
	}
	return t
}
