// Package router wires HTTP routes to their handlers. Routes fall into
// three tiers: open endpoints (health, auth), JWT-protected endpoints
// under /v1, and the public confirmation endpoints, which authenticate by
// token possession alone and sit behind the rate limiter.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/confiado/confiado-api/internal/config"
	"github.com/confiado/confiado-api/internal/handler"
	"github.com/confiado/confiado-api/internal/middleware"
)

// Handlers bundles every handler the router needs so RegisterAll takes one
// argument instead of nine.
type Handlers struct {
	Auth      *handler.AuthHandler
	Debts     *handler.DebtHandler
	Payments  *handler.PaymentHandler
	Confirm   *handler.ConfirmHandler
	Dashboard *handler.DashboardHandler
	Profile   *handler.ProfileHandler
	Anchors   *handler.AnchorHandler
}

// RegisterAll registers every route of the API on the provided Echo
// instance.
func RegisterAll(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Session endpoints need no existing session.
	ag := e.Group("/v1/auth")
	ag.POST("/register", h.Auth.Register)
	ag.POST("/login", h.Auth.Login)
	ag.POST("/refresh", h.Auth.Refresh)
	ag.POST("/logout", h.Auth.Logout)

	// Public confirmation endpoints. No JWT: the token in the request is
	// the credential. Rate limited per IP and route so token guessing
	// stays impractical on top of the 256-bit token space.
	pub := e.Group("/v1/confirmations")
	pub.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	pub.GET("/:token", h.Confirm.Resolve)
	pub.POST("/decision", h.Confirm.Decide)

	// Everything else requires a valid access token.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.GET("/me", h.Auth.Me)

	auth.POST("/debts", h.Debts.Create)
	auth.GET("/debts", h.Debts.List)
	auth.GET("/debts/:id", h.Debts.Get)
	auth.POST("/debts/:id/payments", h.Payments.Log)
	auth.POST("/payments/:id/decision", h.Payments.Decide)

	// Dashboard reads are cached per user.
	dash := auth.Group("/dashboard")
	dash.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	dash.GET("/summary", h.Dashboard.Summary)
	dash.GET("/kpis", h.Dashboard.KPIs)

	auth.GET("/profile", h.Profile.Get)
	auth.PUT("/profile", h.Profile.Update)
	auth.GET("/profile/missing", h.Profile.Missing)

	auth.POST("/anchors/run", h.Anchors.Run)
	auth.GET("/anchors", h.Anchors.List)
}
