package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/workflow-scheduler/internal/ratelimit"
	"github.com/ErlanBelekov/workflow-scheduler/internal/repository"
	"github.com/ErlanBelekov/workflow-scheduler/internal/transport/http/handler"
	"github.com/ErlanBelekov/workflow-scheduler/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type RouterDeps struct {
	Logger          *slog.Logger
	ScheduleHandler *handler.ScheduleHandler
	Users           repository.UserRepository
	Limiter         ratelimit.Limiter
	JWTKey          []byte
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.NewWithConfig(deps.Logger, sloggin.Config{
		WithRequestID: false,
		Filters:       []sloggin.Filter{sloggin.IgnorePath("/ping")},
	}))
	r.Use(middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	schedules := r.Group("/schedules",
		middleware.Auth(deps.JWTKey),
		middleware.RateLimit(deps.Limiter),
		middleware.EnsureUser(deps.Users, deps.Logger),
	)
	schedules.POST("", deps.ScheduleHandler.Save)
	schedules.GET("", deps.ScheduleHandler.Get)
	schedules.POST("/:id/reactivate", deps.ScheduleHandler.Reactivate)
	schedules.POST("/:id/disable", deps.ScheduleHandler.Disable)
	schedules.DELETE("/:id", deps.ScheduleHandler.Delete)

	return r
}
