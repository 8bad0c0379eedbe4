// Package server wires the HTTP routes and middleware chain.
package server

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"drivepulse/internal/auth"
	"drivepulse/internal/config"
	"drivepulse/internal/http/handlers"
	appmw "drivepulse/internal/http/middleware"
	"drivepulse/internal/telemetry"
)

// New builds the request handler: request logger, then CORS, then the
// router.
func New(cfg *config.Config, svc *telemetry.Service, authSvc *auth.Service) fasthttp.RequestHandler {
	handlers.InitPrometheusMetrics()

	r := router.New()
	r.SaveMatchedRoutePath = true
	r.NotFound = handlers.NotFound()
	r.MethodNotAllowed = handlers.MethodNotAllowed()
	r.PanicHandler = handlers.Panic

	requireUser := appmw.BearerAuth(authSvc)

	r.GET("/", handlers.Root())
	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})
	r.GET("/metrics", handlers.MetricsHandler())

	r.POST("/auth/register", handlers.Register(authSvc))
	r.POST("/auth/login", handlers.Login(authSvc))
	r.GET("/auth/me", requireUser(handlers.Me()))

	r.POST("/sessions/start", requireUser(handlers.StartSession(svc)))
	r.PATCH("/sessions/{id}/end", requireUser(handlers.EndSession(svc)))

	r.POST("/upload/batch", requireUser(handlers.BatchUpload(svc)))

	r.GET("/analytics/session/{id}/summary", requireUser(handlers.SessionSummary(svc)))
	r.GET("/analytics/session/{id}/map", requireUser(handlers.SessionMap(svc)))
	r.GET("/analytics/session/{id}/mos-correlation", requireUser(handlers.MosCorrelation(svc)))

	r.GET("/export/session/{id}/csv", requireUser(handlers.ExportCSV(svc)))

	return handlers.RequestLogger(appmw.CORS(cfg.CORSOrigins)(r.Handler))
}
