// Package broker turns one chat line into a translation result. It owns the
// process-lifetime state every request shares: the live settings snapshot,
// the result cache, the in-flight coalescer, the admission queue and the
// provider client.
package broker

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/minios-linux/livetrans/cache"
	"github.com/minios-linux/livetrans/metrics"
	"github.com/minios-linux/livetrans/queue"
	"github.com/minios-linux/livetrans/settings"
	"github.com/minios-linux/livetrans/translate"
)

// Skip reasons.
const (
	ReasonDisabled        = "disabled"
	ReasonEmptyText       = "empty_text"
	ReasonTooShort        = "too_short"
	ReasonNotTranslatable = "not_translatable"
	ReasonNoNeed          = "already_translated_or_no_need"
)

const (
	MaxTextRunes    = 600
	MaxContextLines = 6
	MaxContextRunes = 240
)

// Request is one inbound translation request.
type Request struct {
	Text    string   `json:"text"`
	Context []string `json:"context,omitempty"`
}

// Result is either a skip with a reason or a translation.
type Result struct {
	Skip             bool   `json:"skip"`
	Translated       string `json:"translated,omitempty"`
	DetectedLanguage string `json:"detectedLanguage,omitempty"`
	Reason           string `json:"reason,omitempty"`
	Cached           bool   `json:"cached,omitempty"`
}

func skip(reason string) Result {
	return Result{Skip: true, Reason: reason}
}

func (r Result) entry() cache.Entry {
	return cache.Entry{
		Skip:             r.Skip,
		Translated:       r.Translated,
		DetectedLanguage: r.DetectedLanguage,
		Reason:           r.Reason,
	}
}

func fromEntry(e cache.Entry) Result {
	return Result{
		Skip:             e.Skip,
		Translated:       e.Translated,
		DetectedLanguage: e.DetectedLanguage,
		Reason:           e.Reason,
		Cached:           true,
	}
}

// Translator performs the provider call. *translate.Client implements it.
type Translator interface {
	Call(ctx context.Context, req translate.Request) (translate.Output, error)
}

// Options configures a State. Nil fields get defaults, except Translator.
type Options struct {
	Settings   *settings.Live
	Translator Translator
	Cache      *cache.Cache
	Queue      *queue.Queue[Result]
	Logger     log.Interface
}

// State is the broker. Create one per process with New.
type State struct {
	settings *settings.Live
	client   Translator
	cache    *cache.Cache
	inflight Coalescer
	queue    *queue.Queue[Result]
	logger   log.Interface
}

// Stats is a point-in-time view used by metrics and the CLI.
type Stats struct {
	CacheEntries int
	Pending      int
	Running      int
	Shed         uint64
}

// New builds the broker state.
func New(opts Options) *State {
	s := &State{
		settings: opts.Settings,
		client:   opts.Translator,
		cache:    opts.Cache,
		queue:    opts.Queue,
		logger:   opts.Logger,
	}
	if s.settings == nil {
		s.settings = settings.NewLive(settings.Defaults())
	}
	if s.cache == nil {
		s.cache = cache.New(cache.DefaultSize)
	}
	if s.queue == nil {
		s.queue = queue.New[Result](queue.DefaultLimits())
	}
	if s.logger == nil {
		s.logger = log.Log
	}
	return s
}

// Settings returns the current settings snapshot.
func (s *State) Settings() settings.Settings {
	return s.settings.Load()
}

// Stats returns cache and queue occupancy.
func (s *State) Stats() Stats {
	q := s.queue.Stats()
	return Stats{CacheEntries: s.cache.Len(), Pending: q.Pending, Running: q.Running, Shed: q.Shed}
}

// ---------------------------------------------------------------------------
// Request ids
// ---------------------------------------------------------------------------

type requestIDKey struct{}

// WithRequestID attaches id to ctx for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id attached to ctx, or a new one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// ---------------------------------------------------------------------------
// Submit / Handle
// ---------------------------------------------------------------------------

// Submit runs Handle through the admission queue. It fails with
// queue.ErrShed when the request was trimmed before being admitted. Once
// admitted, the request runs to completion even if ctx ends; only the wait
// is abandoned.
func (s *State) Submit(ctx context.Context, req Request) (Result, error) {
	id := RequestID(ctx)
	taskCtx := WithRequestID(context.WithoutCancel(ctx), id)

	res, err := s.queue.Do(ctx, func() (Result, error) {
		return s.Handle(taskCtx, req)
	})
	s.observeQueue()
	if errors.Is(err, queue.ErrShed) {
		metrics.RequestsTotal.WithLabelValues("shed").Inc()
		metrics.QueueShedTotal.Inc()
		s.logger.WithField("request_id", id).Debug("request shed by admission queue")
	}
	return res, err
}

// Handle decides whether req needs translating and, if so, serves it from
// the cache, from an identical in-flight call, or from the provider.
func (s *State) Handle(ctx context.Context, req Request) (Result, error) {
	logger := s.logger.WithField("request_id", RequestID(ctx))
	st := s.settings.Load()

	res, err := s.handle(ctx, logger, st, req)
	switch {
	case err != nil:
		metrics.RequestsTotal.WithLabelValues("error").Inc()
		logger.WithError(err).Warn("translation failed")
	case res.Skip:
		metrics.RequestsTotal.WithLabelValues("skipped").Inc()
		metrics.SkipsTotal.WithLabelValues(res.Reason).Inc()
		logger.WithField("reason", res.Reason).Debug("translation skipped")
	default:
		metrics.RequestsTotal.WithLabelValues("translated").Inc()
		logger.WithFields(log.Fields{
			"cached":   res.Cached,
			"detected": res.DetectedLanguage,
		}).Debug("translation done")
	}
	return res, err
}

func (s *State) handle(ctx context.Context, logger log.Interface, st settings.Settings, req Request) (Result, error) {
	if !st.Enabled {
		return skip(ReasonDisabled), nil
	}

	text := translate.Cap(translate.NormalizeText(req.Text), MaxTextRunes)
	if text == "" {
		return skip(ReasonEmptyText), nil
	}
	if utf8.RuneCountInString(text) < st.MinChars {
		return skip(ReasonTooShort), nil
	}
	if translate.IsUntranslatable(text) {
		return skip(ReasonNotTranslatable), nil
	}

	desc, fellBack := translate.Effective(st)
	if fellBack {
		metrics.FallbackTotal.Inc()
		logger.WithField("provider", st.Provider).Debug("no API key configured, using free translate")
	}

	key := cache.Key(desc, st, text)
	if e, ok := s.cache.Get(key); ok {
		metrics.CacheHitsTotal.Inc()
		return fromEntry(e), nil
	}
	metrics.CacheMissesTotal.Inc()

	contextLines := trimContext(req.Context)
	callCtx := context.WithoutCancel(ctx)

	res, err, leader := s.inflight.Do(key, func() (Result, error) {
		if e, ok := s.cache.Get(key); ok {
			return fromEntry(e), nil
		}

		logger.WithFields(log.Fields{
			"provider": desc.ID,
			"mode":     desc.Mode.String(),
			"chars":    utf8.RuneCountInString(text),
			"context":  len(contextLines),
		}).Debug("calling provider")

		out, err := s.client.Call(callCtx, translate.Request{
			Text:     text,
			Context:  contextLines,
			Settings: st,
			Provider: desc,
		})
		if err != nil {
			return Result{}, err
		}

		translated := translate.Cap(translate.NormalizeText(out.Translated), MaxTextRunes)
		if translated == "" || translated == text || !out.ShouldTranslate {
			r := skip(ReasonNoNeed)
			r.DetectedLanguage = out.DetectedLanguage
			return r, nil
		}

		r := Result{Translated: translated, DetectedLanguage: out.DetectedLanguage}
		s.cache.Put(key, r.entry())
		metrics.CacheEntries.Set(float64(s.cache.Len()))
		return r, nil
	})
	if !leader {
		metrics.CoalescedTotal.Inc()
		logger.Debug("joined in-flight translation")
	}
	return res, err
}

// trimContext keeps the last MaxContextLines entries, normalized, non-empty
// and capped.
func trimContext(lines []string) []string {
	if len(lines) > MaxContextLines {
		lines = lines[len(lines)-MaxContextLines:]
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if n := translate.Cap(translate.NormalizeText(l), MaxContextRunes); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func (s *State) observeQueue() {
	st := s.queue.Stats()
	metrics.QueuePending.Set(float64(st.Pending))
	metrics.QueueRunning.Set(float64(st.Running))
	metrics.CacheEntries.Set(float64(s.cache.Len()))
}
