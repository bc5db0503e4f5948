// Package server exposes the broker to the browser extension over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minios-linux/livetrans/broker"
	"github.com/minios-linux/livetrans/i18n"
	"github.com/minios-linux/livetrans/metrics"
	"github.com/minios-linux/livetrans/queue"
	"github.com/minios-linux/livetrans/settings"
	"github.com/minios-linux/livetrans/translate"
)

// Message types.
const (
	TypeTranslateText = "TRANSLATE_TEXT"
	TypeGetSettings   = "GET_SETTINGS"
)

const (
	EndPointHealth   = "/healthz"
	EndPointMetrics  = "/metrics"
	EndPointMessages = "/v1/messages"

	typeKey         = "message_type"
	shutdownTimeout = 10 * time.Second
)

type message struct {
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Context []string `json:"context"`
}

type translateResponse struct {
	OK bool `json:"ok"`
	broker.Result
}

type settingsResponse struct {
	OK       bool                    `json:"ok"`
	Settings settings.PublicSettings `json:"settings"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Options configures a Server.
type Options struct {
	Broker *broker.State

	// ExtensionIDs are turned into chrome-extension:// and moz-extension://
	// origins. AllowedOrigins are accepted verbatim.
	ExtensionIDs   []string
	AllowedOrigins []string

	// RateLimit is the sustained per-origin request rate; zero disables it.
	RateLimit float64
	Burst     int

	Metrics bool
	Logger  log.Interface
}

// Server routes inbound messages to the broker.
type Server struct {
	broker *broker.State
	engine *gin.Engine
	logger log.Interface
}

// New builds the router.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Log
	}
	s := &Server{broker: opts.Broker, engine: gin.New(), logger: logger}

	s.engine.Use(gin.Recovery(), requestID(), accessLog(logger))

	s.engine.GET(EndPointHealth, s.health)
	if opts.Metrics {
		s.engine.GET(EndPointMetrics, gin.WrapH(promhttp.Handler()))
	}

	allowed := newOriginSet(ExtensionOrigins(opts.ExtensionIDs), opts.AllowedOrigins)
	messages := s.engine.Group(EndPointMessages)
	messages.Use(
		countMessages(),
		requireOrigin(allowed, logger),
		rateLimit(newOriginLimiter(opts.RateLimit, opts.Burst), logger),
		limitBody(),
	)
	{
		messages.POST("", s.handleMessage)
		messages.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info(i18n.T("Listening on %s", addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	st := s.broker.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "livetrans",
		"cacheEntries": st.CacheEntries,
		"pending":      st.Pending,
		"running":      st.Running,
	})
}

func (s *Server) handleMessage(c *gin.Context) {
	var msg message
	if err := c.ShouldBindJSON(&msg); err != nil {
		s.fail(c, http.StatusBadRequest, i18n.T("Invalid request"))
		return
	}

	switch msg.Type {
	case TypeTranslateText:
		c.Set(typeKey, msg.Type)
		s.translateText(c, msg)
	case TypeGetSettings:
		c.Set(typeKey, msg.Type)
		c.JSON(http.StatusOK, settingsResponse{OK: true, Settings: s.broker.Settings().Public()})
	default:
		s.fail(c, http.StatusBadRequest, i18n.T("Unknown message type"))
	}
}

func (s *Server) translateText(c *gin.Context, msg message) {
	res, err := s.broker.Submit(c.Request.Context(), broker.Request{Text: msg.Text, Context: msg.Context})
	if err != nil {
		status, text := statusFor(err)
		s.fail(c, status, text)
		return
	}
	c.JSON(http.StatusOK, translateResponse{OK: true, Result: res})
}

func (s *Server) fail(c *gin.Context, status int, text string) {
	c.JSON(status, errorResponse{Error: text})
}

// statusFor maps a broker error to an HTTP status and the message shown to
// the user.
func statusFor(err error) (int, string) {
	var te *translate.Error
	var se *translate.StatusError
	switch {
	case errors.Is(err, queue.ErrShed):
		return http.StatusServiceUnavailable, i18n.T("Chat is moving too fast, older translations were skipped")
	case errors.Is(err, translate.ErrTimeout):
		return http.StatusGatewayTimeout, err.Error()
	case errors.As(err, &se):
		return http.StatusBadGateway, se.Msg
	case errors.As(err, &te):
		return http.StatusBadGateway, te.Msg
	default:
		return http.StatusBadGateway, i18n.T("Translation failed")
	}
}

func countMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		typ := c.GetString(typeKey)
		if typ == "" {
			typ = "none"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(typ, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
