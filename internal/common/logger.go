package common

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global zerolog logger.
// pretty switches to the human-readable console writer.
func InitLogger(level string, pretty bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	log.Info().Str("level", lvl.String()).Msg("Logger initialized")
}

// RequestLogger is an echo middleware that logs each request using zerolog.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			statusCode := c.Response().Status
			var event *zerolog.Event
			switch {
			case statusCode >= 500:
				event = log.Error()
			case statusCode >= 400:
				event = log.Warn()
			default:
				event = log.Info()
			}

			event.Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status_code", statusCode).
				Str("client_ip", c.RealIP()).
				Dur("latency", time.Since(start)).
				Msg("Request processed")

			return nil
		}
	}
}
