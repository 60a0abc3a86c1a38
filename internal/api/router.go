package api

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/agrovagas/platform/docs"
	"github.com/agrovagas/platform/internal/api/handler"
	"github.com/agrovagas/platform/internal/api/middleware"
	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/ports"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	AuthService ports.AuthService
	Mongo       *mongo.Database
	Redis       *redis.Client
	// Postgres is nil unless role data is kept there.
	Postgres *pgxpool.Pool
	Gate     middleware.GateConfig
	// ExposeConfirmation returns confirmation tokens from /auth/signup.
	ExposeConfirmation bool
	Log                zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("agrovagas"))

	// --- Operational routes (no auth) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis, deps.Postgres)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Everything below sees the resolved user ---
	app := e.Group("", middleware.Authenticate(deps.AuthService, deps.Log))

	authHandler := handler.NewAuthHandler(deps.AuthService, deps.ExposeConfirmation)
	app.POST("/auth/signup", authHandler.SignUp)
	app.POST("/auth/signin", authHandler.SignIn)
	app.POST("/auth/signout", authHandler.SignOut)
	app.POST("/auth/confirm", authHandler.Confirm)
	app.GET("/auth/me", authHandler.Me)

	areaHandler := handler.NewAreaHandler()
	for _, area := range domain.Areas {
		app.GET(area.Path, areaHandler.Show(area), middleware.Gate(area, deps.Gate))
	}

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
