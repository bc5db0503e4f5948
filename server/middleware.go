package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/minios-linux/livetrans/broker"
	"github.com/minios-linux/livetrans/i18n"
)

// ErrUnauthorizedSender is returned for messages whose Origin is not one of
// the configured extension or chat-site origins.
var ErrUnauthorizedSender = errors.New("unauthorized sender")

const (
	originKey        = "origin"
	requestIDHeader  = "X-Request-Id"
	maxBodyBytes     = 64 << 10
	corsAllowHeaders = "Content-Type, X-Request-Id"
)

// ExtensionOrigins turns extension ids into the origins browsers send for
// them. Chromium and Firefox use different schemes, so each id yields both.
func ExtensionOrigins(ids []string) []string {
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, "chrome-extension://"+id, "moz-extension://"+id)
	}
	return out
}

// originSet is an exact-match allow list. An empty Origin never matches.
type originSet map[string]struct{}

func newOriginSet(origins ...[]string) originSet {
	set := make(originSet)
	for _, list := range origins {
		for _, o := range list {
			o = strings.TrimRight(strings.TrimSpace(o), "/")
			if o != "" {
				set[o] = struct{}{}
			}
		}
	}
	return set
}

func (s originSet) allows(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := s[origin]
	return ok
}

// requireOrigin rejects requests from unknown senders before any body is
// read, echoes the validated origin for CORS and answers preflights.
func requireOrigin(allowed originSet, logger log.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if !allowed.allows(origin) {
			logger.WithField("origin", origin).Warn("rejected message from unknown sender")
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: ErrUnauthorizedSender.Error()})
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Expose-Headers", requestIDHeader)
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Set(originKey, origin)
		c.Next()
	}
}

// originLimiter keeps one token bucket per validated origin. Origins come
// from a fixed allow list, so the map is bounded.
type originLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newOriginLimiter(rps float64, burst int) *originLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &originLimiter{limiters: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

func (l *originLimiter) allow(origin string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[origin]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[origin] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func rateLimit(l *originLimiter, logger log.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetString(originKey)
		if !l.allow(origin) {
			logger.WithField("origin", origin).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
				Error: i18n.T("Too many requests from this origin"),
			})
			return
		}
		c.Next()
	}
}

// requestID propagates or assigns X-Request-Id and attaches it to the
// request context for the broker's log lines.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Request = c.Request.WithContext(broker.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// accessLog replaces gin's default logger with apex/log.
func accessLog(logger log.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": c.Writer.Header().Get(requestIDHeader),
		}).Debug("http request")
	}
}

func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		c.Next()
	}
}
