package consumer

import (
	"io"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// configureRequestLogger wires echo request logging through zerolog so the
// whole process emits one log stream. Health and readiness probes are
// skipped to keep the periodic supervisor traffic out of the logs.
func configureRequestLogger(e *echo.Echo, out io.Writer, debug bool) {
	var logger zerolog.Logger
	if debug {
		// Configure logger with better UI for debugging purposes (less efficient than the default logger)
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "2006-01-02T15:04:05",
		}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(out).With().Timestamp().Logger()
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogRoutePath: true,
		LogURIPath:   true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Err(v.Error).
					Str("method", c.Request().Method).
					Str("URI", v.URIPath).
					Int("status", v.Status).
					Msg("")
			} else {
				logger.Info().
					Str("method", c.Request().Method).
					Str("URI", v.URIPath).
					Int("status", v.Status).
					Msg("")
			}
			return nil
		},
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz" || c.Request().URL.Path == "/readyz"
		},
	}))
}
