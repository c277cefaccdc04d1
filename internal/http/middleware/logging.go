// Package middleware contains the Gin middleware of the tablet gateway.
//
// This file provides request correlation, structured access logs and panic
// recovery:
//
//   - RequestID() reuses or generates X-Request-ID and stores it in the context.
//   - TabletID() picks up the caller's X-Tablet-ID so logs and rate limits can
//     be attributed to a tablet rather than an IP.
//   - Logger() emits one access log per request at a level chosen by outcome
//     and attaches a request-scoped zerolog.Logger for handlers.
//   - Recovery() turns panics into JSON 500 responses.
//
// Recommended order: RequestID, TabletID, Logger, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// tabletIDKey is the Gin context key for the calling tablet.
	tabletIDKey = "tabletID"
	// TabletIDHeader identifies the tablet behind a request.
	TabletIDHeader = "X-Tablet-ID"
	// maxTabletIDLength bounds the header value accepted as an identity.
	maxTabletIDLength = 64
	// loggerKey stores the request-scoped logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused, otherwise a UUIDv4 is generated. The ID
// is echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// TabletID stores a well-formed X-Tablet-ID header in the context. Values that
// are too long or contain non-printable characters are ignored, which leaves
// the request anonymous.
func TabletID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(TabletIDHeader); validTabletID(id) {
			c.Set(tabletIDKey, id)
		}
		c.Next()
	}
}

// TabletFrom returns the tablet identity set by TabletID, or "".
func TabletFrom(c *gin.Context) string {
	v, _ := c.Get(tabletIDKey)
	return asString(v)
}

func validTabletID(id string) bool {
	if id == "" || len(id) > maxTabletIDLength {
		return false
	}
	for _, r := range id {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Logger writes a structured access log for each request: method, route,
// remote IP, tablet, correlation ID, sizes, status and latency. 5xx and
// requests carrying gin errors log at error, 4xx at warn, the rest at info.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("tablet_id", TabletFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		ev := l.With().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch status := c.Writer.Status(); {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery intercepts panics, logs the stack, and answers with the standard
// internal_error envelope when nothing has been written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := asString(c.Value(requestIDKey))
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", rid).
					Msg("panic recovered")

				if c.Writer.Written() {
					c.AbortWithStatus(http.StatusInternalServerError)
					return
				}
				c.Header(requestIDHeader, rid)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"request_id": rid,
					"code":       "internal_error",
					"message":    "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by Logger, or the
// global logger when there is none.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate cuts s to max bytes plus an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
