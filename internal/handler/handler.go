package handler

import (
	"context"
	"database/sql"
	"net/http"
	"task_list/internal/activity"
	"task_list/internal/auth"
	"task_list/internal/cache"
	"task_list/internal/config"
	"task_list/internal/middleware"
	"task_list/internal/observability"
	"task_list/internal/task"
	"task_list/internal/user"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const healthTimeout = 2 * time.Second

// Stores groups the persistence behind the routes.
type Stores struct {
	Users    user.UserRepositoryInterface
	Tasks    task.TaskRepositoryInterface
	Activity activity.Lister
}

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Dependencies is everything the router needs. Redis, Publisher and
// Gatherer are optional: a nil Redis disables caching and rate limiting,
// a nil Publisher disables task events, a nil Gatherer hides /metrics.
type Dependencies struct {
	Config    *config.Config
	Tokens    *auth.JWTManager
	Stores    Stores
	Redis     *redis.Client
	Publisher task.Publisher
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer
	Health    map[string]HealthCheck
}

// SetupHandler builds the Postgres-backed stores and returns the router.
func SetupHandler(db *sql.DB, redisClient *redis.Client, publisher task.Publisher, tokens *auth.JWTManager, reg *prometheus.Registry, metrics *observability.Metrics, cfg *config.Config) *gin.Engine {
	health := map[string]HealthCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		health["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	var gatherer prometheus.Gatherer
	if reg != nil {
		gatherer = reg
	}

	return NewRouter(Dependencies{
		Config: cfg,
		Tokens: tokens,
		Stores: Stores{
			Users:    user.NewUserRepository(db),
			Tasks:    task.NewTaskRepository(db),
			Activity: activity.NewActivityRepository(db),
		},
		Redis:     redisClient,
		Publisher: publisher,
		Metrics:   metrics,
		Gatherer:  gatherer,
		Health:    health,
	})
}

// NewRouter initializes services, controllers and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.LoggingMiddleware("/healthz", "/metrics"),
		middleware.PrometheusMiddleware(deps.Metrics),
		cors.New(corsConfig(deps.Config)),
	)

	// The cache interface must stay nil when Redis is absent.
	var taskCache task.Cache
	if deps.Redis != nil {
		taskCache = cache.NewTaskCache(deps.Redis)
	}

	userService := user.NewUserService(deps.Stores.Users, deps.Tokens, deps.Metrics)
	taskService := task.NewTaskService(deps.Stores.Tasks, taskCache, deps.Publisher, deps.Metrics)

	userController := user.NewUserController(userService)
	taskController := task.NewTaskController(taskService)

	var activityController *activity.ActivityController
	if deps.Stores.Activity != nil {
		activityController = activity.NewActivityController(deps.Stores.Activity)
	}

	limiter := middleware.NewRateLimiter(deps.Redis, deps.Metrics)

	setupRoutes(r, routes{
		users:     userController,
		tasks:     taskController,
		activity:  activityController,
		auth:      middleware.AuthMiddleware(deps.Tokens, userService),
		limiter:   limiter,
		health:    deps.Health,
		gatherer:  deps.Gatherer,
		staticDir: staticDir(deps.Config),
	})

	return r
}

type routes struct {
	users     *user.UserController
	tasks     *task.TaskController
	activity  *activity.ActivityController
	auth      gin.HandlerFunc
	limiter   *middleware.RateLimiter
	health    map[string]HealthCheck
	gatherer  prometheus.Gatherer
	staticDir string
}

// setupRoutes configures all application routes
func setupRoutes(r *gin.Engine, rt routes) {
	// Public routes - credentials, limited per client address
	credentials := rt.limiter.PerClientIP(middleware.StrictRateLimiter())
	r.POST("/register", credentials, rt.users.Register)
	r.POST("/login", credentials, rt.users.Login)
	r.POST("/change-password", credentials, rt.users.ChangePassword)

	// Protected routes, limited per user
	reads := rt.limiter.PerUser(middleware.GenerousRateLimiter())
	writes := rt.limiter.PerUser(middleware.DefaultRateLimiterConfig())

	api := r.Group("/", rt.auth)
	{
		api.GET("/tasks", reads, rt.tasks.ListTasks)
		api.POST("/tasks", writes, rt.tasks.CreateTask)
		api.PUT("/tasks/:id", writes, rt.tasks.UpdateTask)
		api.DELETE("/tasks/:id", writes, rt.tasks.DeleteTask)

		if rt.activity != nil {
			api.GET("/activity", reads, rt.activity.ListActivity)
		}
	}

	r.GET("/healthz", healthHandler(rt.health))

	if rt.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{})))
	}

	r.NoRoute(notFoundHandler(rt.staticDir))
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = "down"
				continue
			}
			results[name] = "up"
		}

		body := gin.H{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "unavailable"
		}
		c.JSON(status, body)
	}
}

// notFoundHandler serves files from dir for unmatched GET and HEAD
// requests when dir is set.
func notFoundHandler(dir string) gin.HandlerFunc {
	var files http.Handler
	if dir != "" {
		files = http.FileServer(http.Dir(dir))
	}

	return func(c *gin.Context) {
		if files != nil && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
			files.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	if cfg == nil || len(cfg.CORSAllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	}

	return corsCfg
}

func staticDir(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.StaticDir
}
