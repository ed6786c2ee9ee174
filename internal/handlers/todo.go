package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Jeremieon/todo-api-cicd/internal/dto"
	"github.com/Jeremieon/todo-api-cicd/internal/logger"
	"github.com/Jeremieon/todo-api-cicd/internal/service"

	"github.com/gin-gonic/gin"
)

const detailTodoNotFound = "Todo not found"

type TodoHandler struct {
	svc *service.TodoService
	log *slog.Logger
}

func NewTodoHandler(svc *service.TodoService, log *slog.Logger) *TodoHandler {
	return &TodoHandler{svc: svc, log: log}
}

// List godoc
// @Summary      List todos
// @Tags         todos
// @Produce      json
// @Param        skip   query     int  false  "Offset"  default(0)
// @Param        limit  query     int  false  "Page size, capped at 1000"  default(100)
// @Success      200    {array}   dto.TodoResponse
// @Failure      422    {object}  dto.ErrorResponse
// @Router       /api/todos [get]
func (h *TodoHandler) List(c *gin.Context) {
	var q dto.ListTodosQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.validationError(c, dto.FromBindError("query", err))
		return
	}
	skip, limit := q.Window()
	list, err := h.svc.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomainList(list))
}

// GetByID godoc
// @Summary      Get a todo by ID
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.TodoResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/todos/{id} [get]
func (h *TodoHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	t, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomain(t))
}

// Create godoc
// @Summary      Create a todo
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTodoRequest  true  "Todo body"
// @Success      201   {object}  dto.TodoResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/todos [post]
func (h *TodoHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.internalError(c, err)
		return
	}
	req, err := dto.DecodeCreateTodo(body)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	t, err := h.svc.Create(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromDomain(t))
}

// Update godoc
// @Summary      Partially update a todo
// @Description  Only fields present in the body are changed. An empty body changes nothing.
// @Tags         todos
// @Accept       json
// @Produce      json
// @Param        id    path      int  true  "Todo ID"
// @Param        body  body      dto.UpdateTodoBody  true  "Fields to change, all optional"
// @Success      200   {object}  dto.TodoResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/todos/{id} [put]
func (h *TodoHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		h.internalError(c, err)
		return
	}
	req, err := dto.DecodeUpdateTodo(body)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	t, err := h.svc.Update(c.Request.Context(), id, req.Patch)
	if err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromDomain(t))
}

// Delete godoc
// @Summary      Delete a todo
// @Tags         todos
// @Produce      json
// @Param        id   path      int  true  "Todo ID"
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/todos/{id} [delete]
func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Todo deleted successfully"})
}

// parseID reads the :id path parameter. Any integer is accepted; unknown ids end up as 404.
func (h *TodoHandler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.validationError(c, &dto.ValidationError{Items: []dto.ErrorItem{{
			Loc:  []string{"path", "id"},
			Msg:  "value is not a valid integer",
			Type: "type_error.integer",
		}}})
		return 0, false
	}
	return id, true
}

func (h *TodoHandler) serviceError(c *gin.Context, err error) {
	var ve *dto.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Detail: detailTodoNotFound})
	case errors.As(err, &ve):
		h.validationError(c, ve)
	default:
		h.internalError(c, err)
	}
}

func (h *TodoHandler) validationError(c *gin.Context, ve *dto.ValidationError) {
	c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Detail: ve.Items})
}

func (h *TodoHandler) internalError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	logger.FromContext(ctx, h.log).ErrorContext(ctx, "todo request failed",
		"method", c.Request.Method, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "Internal server error"})
}
