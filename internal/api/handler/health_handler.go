package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthHandler handles GET /health, the liveness probe.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// HealthDependenciesHandler handles GET /health/ready. It checks MongoDB and
// Redis, and Postgres when role data is kept there.
type HealthDependenciesHandler struct {
	mongo    *mongo.Database
	redis    *redis.Client
	postgres *pgxpool.Pool
}

// NewHealthDependenciesHandler builds the readiness probe. pg may be nil.
func NewHealthDependenciesHandler(db *mongo.Database, rdb *redis.Client, pg *pgxpool.Pool) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{
		mongo:    db,
		redis:    rdb,
		postgres: pg,
	}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			deps[name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
			return
		}
		deps[name] = dependencyStatus{Status: "ok"}
	}

	check("mongodb", h.mongo.Client().Ping(ctx, nil))
	check("redis", h.redis.Ping(ctx).Err())
	if h.postgres != nil {
		check("postgres", h.postgres.Ping(ctx))
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
