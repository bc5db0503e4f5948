package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/minios-linux/livetrans/broker"
	"github.com/minios-linux/livetrans/queue"
	"github.com/minios-linux/livetrans/settings"
	"github.com/minios-linux/livetrans/translate"
)

const extensionID = "abcdefghijklmnop"

var quiet = &log.Logger{Handler: discard.New(), Level: log.DebugLevel}

type fakeTranslator struct {
	calls int32
	out   translate.Output
	err   error
}

func (f *fakeTranslator) Call(ctx context.Context, req translate.Request) (translate.Output, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.out, f.err
}

func newTestServer(f *fakeTranslator, st settings.Settings, mutate func(*Options)) *Server {
	gin.SetMode(gin.TestMode)
	opts := Options{
		Broker: broker.New(broker.Options{
			Settings:   settings.NewLive(st),
			Translator: f,
			Logger:     quiet,
		}),
		ExtensionIDs:   []string{extensionID},
		AllowedOrigins: []string{"https://www.twitch.tv"},
		RateLimit:      100,
		Burst:          100,
		Metrics:        true,
		Logger:         quiet,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

func post(s *Server, origin, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, EndPointMessages, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %q", w.Body.String())
	}
	return body
}

func TestTranslateText_ValidRequest(t *testing.T) {
	f := &fakeTranslator{out: translate.Output{Translated: "你好", DetectedLanguage: "en", ShouldTranslate: true}}
	s := newTestServer(f, settings.Defaults(), nil)

	w := post(s, "chrome-extension://"+extensionID, `{"type":"TRANSLATE_TEXT","text":"hello","context":["hi"]}`)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["skip"])
	assert.Equal(t, "你好", body["translated"])
	assert.Equal(t, "en", body["detectedLanguage"])
	assert.Equal(t, "chrome-extension://"+extensionID, w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestTranslateText_SkipResponse(t *testing.T) {
	s := newTestServer(&fakeTranslator{}, settings.Defaults(), nil)

	w := post(s, "moz-extension://"+extensionID, `{"type":"TRANSLATE_TEXT","text":"/ban someone"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["skip"])
	assert.Equal(t, broker.ReasonNotTranslatable, body["reason"])
	assert.NotContains(t, body, "translated")
}

func TestMessages_UnauthorizedSender(t *testing.T) {
	f := &fakeTranslator{out: translate.Output{Translated: "x", ShouldTranslate: true}}
	s := newTestServer(f, settings.Defaults(), nil)

	for _, origin := range []string{"", "https://evil.example", "chrome-extension://other", "https://www.twitch.tv.evil.example"} {
		w := post(s, origin, `{"type":"TRANSLATE_TEXT","text":"hello"}`)
		assert.Equal(t, http.StatusForbidden, w.Code, "origin %q", origin)
		body := decode(t, w)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "unauthorized sender", body["error"])
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.calls))
}

func TestMessages_ChatSiteOriginAccepted(t *testing.T) {
	f := &fakeTranslator{out: translate.Output{Translated: "你好", ShouldTranslate: true}}
	s := newTestServer(f, settings.Defaults(), nil)

	w := post(s, "https://www.twitch.tv", `{"type":"TRANSLATE_TEXT","text":"hello"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMessages_Preflight(t *testing.T) {
	s := newTestServer(&fakeTranslator{}, settings.Defaults(), nil)

	req := httptest.NewRequest(http.MethodOptions, EndPointMessages, nil)
	req.Header.Set("Origin", "https://www.twitch.tv")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://www.twitch.tv", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestGetSettings_NeverExposesKey(t *testing.T) {
	st := settings.Sanitize(settings.Raw{Provider: "openai", APIKey: "sk-secret-value"})
	s := newTestServer(&fakeTranslator{}, st, nil)

	w := post(s, "chrome-extension://"+extensionID, `{"type":"GET_SETTINGS"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-secret-value")
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
	got, ok := body["settings"].(map[string]any)
	if !ok {
		t.Fatalf("settings missing from %q", w.Body.String())
	}
	assert.Equal(t, "openai", got["provider"])
	assert.Equal(t, true, got["hasApiKey"])
	assert.NotContains(t, got, "apiKey")
}

func TestMessages_BadRequests(t *testing.T) {
	s := newTestServer(&fakeTranslator{}, settings.Defaults(), nil)
	origin := "chrome-extension://" + extensionID

	cases := map[string]string{
		"unknown type": `{"type":"DELETE_EVERYTHING"}`,
		"invalid json": `not json`,
		"wrong shape":  `{"type":"TRANSLATE_TEXT","text":42}`,
		"too large":    `{"type":"TRANSLATE_TEXT","text":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := post(s, origin, body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, decode(t, w)["ok"])
		})
	}
}

func TestMessages_RateLimited(t *testing.T) {
	f := &fakeTranslator{out: translate.Output{Translated: "你好", ShouldTranslate: true}}
	s := newTestServer(f, settings.Defaults(), func(o *Options) {
		o.RateLimit = 0.001
		o.Burst = 2
	})
	origin := "chrome-extension://" + extensionID

	assert.Equal(t, http.StatusOK, post(s, origin, `{"type":"GET_SETTINGS"}`).Code)
	assert.Equal(t, http.StatusOK, post(s, origin, `{"type":"GET_SETTINGS"}`).Code)
	w := post(s, origin, `{"type":"GET_SETTINGS"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, false, decode(t, w)["ok"])

	// Buckets are per origin.
	assert.Equal(t, http.StatusOK, post(s, "https://www.twitch.tv", `{"type":"GET_SETTINGS"}`).Code)
}

func TestTranslateText_ProviderFailure(t *testing.T) {
	f := &fakeTranslator{err: &translate.StatusError{Provider: "OpenAI", Status: 401, Msg: "OpenAI authentication failed"}}
	s := newTestServer(f, settings.Defaults(), nil)

	w := post(s, "chrome-extension://"+extensionID, `{"type":"TRANSLATE_TEXT","text":"hello"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "OpenAI authentication failed", body["error"])
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"shed", queue.ErrShed, http.StatusServiceUnavailable, "Chat is moving too fast, older translations were skipped"},
		{"timeout", &translate.Error{Class: translate.ErrTimeout, Msg: "OpenAI request timed out"}, http.StatusGatewayTimeout, "OpenAI request timed out"},
		{"network", &translate.Error{Class: translate.ErrNetwork, Msg: "OpenAI connection failed"}, http.StatusBadGateway, "OpenAI connection failed"},
		{"status", fmt.Errorf("wrapped: %w", &translate.StatusError{Status: 500, Msg: "Groq API error (500)"}), http.StatusBadGateway, "Groq API error (500)"},
		{"unknown", errors.New("boom"), http.StatusBadGateway, "Translation failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := statusFor(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.msg, msg)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(&fakeTranslator{}, settings.Defaults(), nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, EndPointHealth, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, EndPointMetrics, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	noMetrics := newTestServer(&fakeTranslator{}, settings.Defaults(), func(o *Options) { o.Metrics = false })
	w = httptest.NewRecorder()
	noMetrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, EndPointMetrics, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := newTestServer(&fakeTranslator{}, settings.Defaults(), nil)

	req := httptest.NewRequest(http.MethodGet, EndPointHealth, nil)
	req.Header.Set("X-Request-Id", "trace-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "trace-123", w.Header().Get("X-Request-Id"))
}

func TestExtensionOrigins(t *testing.T) {
	got := ExtensionOrigins([]string{"abc", " ", "def"})
	assert.Equal(t, []string{
		"chrome-extension://abc", "moz-extension://abc",
		"chrome-extension://def", "moz-extension://def",
	}, got)
}
