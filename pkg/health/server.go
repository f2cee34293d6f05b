package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes liveness and readiness over HTTP so an external supervisor
// (or the probe binary) can consume them by status code. The liveness and
// readiness funcs are independent contracts: readiness only requires a live
// mount point, liveness additionally requires the write probe to keep
// passing.
type Server struct {
	e    *echo.Echo
	port int
}

func NewServer(port int, live func() error, ready func() error, registrar *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		if err := live(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "not ok",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.GET("/readyz", func(c echo.Context) error {
		if err := ready(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
	})

	if registrar != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registrar, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})))
	}

	return &Server{e: e, port: port}
}

func (s *Server) Start() error {
	return s.e.Start(fmt.Sprintf(":%d", s.port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
