package api

import (
	"net/http"
	"parcel-dispatch-service/internal/api/handlers"
	"parcel-dispatch-service/internal/metrics"
	"parcel-dispatch-service/internal/ports"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps lists what the HTTP layer needs. Handlers stay unaware of
// concrete adapters.
type RouterDeps struct {
	Dispatcher handlers.Dispatcher
	Packages   ports.PackageStore
	Routes     ports.RouteStore
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root.
func NewRouter(d RouterDeps) http.Handler {
	metrics.RegisterDefault()

	pkgHandler := &handlers.PackageHandler{Dispatcher: d.Dispatcher, Packages: d.Packages}
	routeHandler := &handlers.RouteHandler{Dispatcher: d.Dispatcher, Routes: d.Routes}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Post("/packages", pkgHandler.Register)
	r.Get("/packages/{id}", pkgHandler.Get)
	r.Post("/packages/{id}/assign", pkgHandler.Assign)

	r.Get("/routes/{id}", routeHandler.Get)
	r.Post("/routes/{id}/resequence", routeHandler.Resequence)

	return r
}
