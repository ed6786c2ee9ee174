package dto

import (
	"encoding/json"
	"time"

	dom "github.com/Jeremieon/todo-api-cicd/internal/domain"
)

// MaxListLimit caps ?limit=. The default of 100 lives in the ListTodosQuery binding tag.
const MaxListLimit = 1000

type CreateTodoRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	Priority    string  `json:"priority"`
}

// DecodeCreateTodo validates body against the create schema and fills defaults.
func DecodeCreateTodo(body []byte) (CreateTodoRequest, error) {
	if err := validateBody(createSchema, body); err != nil {
		return CreateTodoRequest{}, err
	}
	req := CreateTodoRequest{Priority: dom.DefaultPriority}
	if err := json.Unmarshal(body, &req); err != nil {
		return CreateTodoRequest{}, newValidationError([]string{"body"}, err.Error(), "json_invalid")
	}
	return req, nil
}

func (r CreateTodoRequest) ToDomain() dom.NewTodo {
	return dom.NewTodo{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		Priority:    r.Priority,
	}
}

// UpdateTodoBody documents the PUT body. Every field is optional; decoding goes through
// DecodeUpdateTodo so that absent and null keys can be told apart.
type UpdateTodoBody struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

// UpdateTodoRequest is a partial update. Only keys present in the payload are applied,
// so {"completed": false} and {} mean different things.
type UpdateTodoRequest struct {
	Patch dom.TodoPatch
}

// DecodeUpdateTodo validates body against the update schema and records which keys were sent.
func DecodeUpdateTodo(body []byte) (UpdateTodoRequest, error) {
	if err := validateBody(updateSchema, body); err != nil {
		return UpdateTodoRequest{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return UpdateTodoRequest{}, newValidationError([]string{"body"}, err.Error(), "json_invalid")
	}

	var p dom.TodoPatch
	if err := decodeField(fields, "title", &p.Title); err != nil {
		return UpdateTodoRequest{}, err
	}
	if err := decodeField(fields, "description", &p.Description); err != nil {
		return UpdateTodoRequest{}, err
	}
	if err := decodeField(fields, "completed", &p.Completed); err != nil {
		return UpdateTodoRequest{}, err
	}
	if err := decodeField(fields, "priority", &p.Priority); err != nil {
		return UpdateTodoRequest{}, err
	}
	return UpdateTodoRequest{Patch: p}, nil
}

func decodeField[T any](fields map[string]json.RawMessage, key string, dst *dom.Field[T]) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return newValidationError([]string{"body", key}, err.Error(), "type_error")
	}
	*dst = dom.Some(v)
	return nil
}

// ListTodosQuery binds ?skip=&limit= through gin's form binding.
type ListTodosQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=100" binding:"min=0"`
}

// Window returns skip and limit with limit capped at MaxListLimit.
func (q ListTodosQuery) Window() (skip, limit int) {
	limit = q.Limit
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return q.Skip, limit
}

type TodoResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func FromDomain(t dom.Todo) TodoResponse {
	return TodoResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func FromDomainList(list []dom.Todo) []TodoResponse {
	out := make([]TodoResponse, len(list))
	for i := range list {
		out[i] = FromDomain(list[i])
	}
	return out
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx answer. Detail is a string or a list of ErrorItem.
type ErrorResponse struct {
	Detail any `json:"detail"`
}
