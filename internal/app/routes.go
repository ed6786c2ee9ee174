package app

import (
	"net/http"

	"github.com/Jeremieon/todo-api-cicd/docs"
	"github.com/Jeremieon/todo-api-cicd/internal/cache"
	"github.com/Jeremieon/todo-api-cicd/internal/dto"
	"github.com/Jeremieon/todo-api-cicd/internal/handlers"
	"github.com/Jeremieon/todo-api-cicd/internal/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, a *App) {
	var (
		todoCache   *cache.TodoCache
		cachePinger handlers.Pinger
	)
	if a.redis != nil {
		todoCache = cache.NewTodoCache(a.redis, a.cfg.Redis.DefaultTTL.Duration())
		cachePinger = todoCache
	}

	system := handlers.NewSystemHandler(a.cfg.App, a.todos, cachePinger, a.started, a.log)
	r.GET("/", system.Root)
	r.GET("/health", system.Health)

	docs.SwaggerInfo.Title = a.cfg.App.Name
	docs.SwaggerInfo.Version = a.cfg.App.Version
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	api := r.Group("/api")
	api.GET("/info", system.Info)

	todoSvc := service.NewTodoService(a.todos, todoCache, a.log)
	todoHandler := handlers.NewTodoHandler(todoSvc, a.log)
	registerTodoRoutes(api, todoHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Detail: "Not Found"})
	})
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Detail: "swagger doc unavailable"})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTodoRoutes(api *gin.RouterGroup, h *handlers.TodoHandler) {
	api.GET("/todos", h.List)
	api.POST("/todos", h.Create)
	api.GET("/todos/:id", h.GetByID)
	api.PUT("/todos/:id", h.Update)
	api.DELETE("/todos/:id", h.Delete)
}
