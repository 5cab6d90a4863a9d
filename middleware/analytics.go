package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/posthog/posthog-go"
)

// Analytics forwards product events to PostHog. The zero value and a nil *Analytics drop every event.
type Analytics struct {
	client posthog.Client
	logger *slog.Logger
}

func NewAnalytics(apiKey, endpoint string, logger *slog.Logger) *Analytics {
	if apiKey == "" {
		logger.Warn("POSTHOG_API_KEY is empty, analytics disabled")
		return &Analytics{}
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		logger.Error("posthog client", "error", err)
		return &Analytics{}
	}
	return &Analytics{client: client, logger: logger}
}

func (a *Analytics) Enabled() bool {
	return a != nil && a.client != nil
}

func (a *Analytics) Enqueue(distinctID, event string, properties map[string]any) {
	if !a.Enabled() {
		return
	}
	if err := a.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: properties,
	}); err != nil {
		a.logger.Warn("posthog enqueue", "event", event, "error", err)
	}
}

func (a *Analytics) Close() {
	if !a.Enabled() {
		return
	}
	if err := a.client.Close(); err != nil {
		a.logger.Warn("posthog close", "error", err)
	}
}

// EventName turns a route pattern into an event name, e.g. "/api/profile/rent/{bookId}" -> "profile_rent".
func EventName(pattern string) string {
	var parts []string
	for _, p := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if p == "" || p == "api" || strings.HasPrefix(p, "{") {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "_")
}

// Track records a PostHog event for every successful request by an authenticated user. Must run after Auth.
func Track(a *Analytics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !a.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusBadRequest {
				return
			}
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				return
			}
			props := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": status,
			}
			event := r.Method + "_" + r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if name := EventName(rctx.RoutePattern()); name != "" {
					event = name
				}
				params := map[string]string{}
				for i, k := range rctx.URLParams.Keys {
					params[k] = rctx.URLParams.Values[i]
				}
				if len(params) > 0 {
					props["params"] = params
				}
			}
			a.Enqueue(userID.Hex(), event, props)
		})
	}
}
