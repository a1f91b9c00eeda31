// Package httpapi exposes the REST surface and the per-agent conversation
// websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/vaani/internal/agents"
	"github.com/ent0n29/vaani/internal/config"
	"github.com/ent0n29/vaani/internal/fallback"
	"github.com/ent0n29/vaani/internal/observability"
	"github.com/ent0n29/vaani/internal/provider"
	"github.com/ent0n29/vaani/internal/session"
	"github.com/ent0n29/vaani/internal/telephony"
	"github.com/ent0n29/vaani/internal/voice"
	"github.com/ent0n29/vaani/internal/voicelib"
)

// CapabilityInvoker runs one capability through its fallback chain.
type CapabilityInvoker interface {
	voice.Invoker
}

type Deps struct {
	Config   config.Config
	Catalog  *provider.Catalog
	Invoker  CapabilityInvoker
	Agents   *agents.Service
	Voices   *voicelib.Service
	Calls    *telephony.Service
	Sessions *session.Manager
	Runner   session.TurnRunner
	Metrics  *observability.Metrics
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

type Server struct {
	deps     Deps
	upgrader websocket.Upgrader
}

func New(deps Deps) *Server {
	allowAny := deps.Config.AllowAnyOrigin
	return &Server{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAny {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients usually omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(telemetry)
	r.Use(cors.Handler(s.corsOptions()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/perf/latency", s.handlePerfLatency)
		r.Get("/sessions", s.handleListSessions)

		r.Route("/config", func(r chi.Router) {
			r.Get("/languages", s.handleLanguages)
			r.Get("/providers/{capability}", s.handleProviders)
			r.Get("/free-tier", s.handleFreeTier)
			r.Get("/recommendations/{language}", s.handleRecommendation)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.handleListAgents)
			r.Post("/", s.handleCreateAgent)
			r.Post("/enhance-prompt", s.handleEnhancePrompt)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAgent)
				r.Patch("/", s.handleUpdateAgent)
				r.Delete("/", s.handleDeleteAgent)
				r.Post("/clone", s.handleCloneAgent)
				r.Get("/ws", s.handleConversationWS)
			})
		})

		r.Post("/llm/generate", s.handleGenerate)
		r.Post("/tts/synthesize", s.handleSynthesize)
		r.Post("/stt/transcribe", s.handleTranscribe)

		r.Route("/voices", func(r chi.Router) {
			r.Get("/", s.handleListVoices)
			r.Post("/clone", s.handleCloneVoice)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetVoice)
				r.Delete("/", s.handleDeleteVoice)
				r.Post("/synthesize", s.handleSynthesizeVoice)
			})
		})

		r.Route("/calls", func(r chi.Router) {
			r.Post("/", s.handlePlaceCall)
			r.Get("/providers", s.handleCallProviders)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleCallStatus)
				r.Post("/hangup", s.handleHangUp)
				r.Post("/record", s.handleRecordCall)
			})
		})
	})
	return r
}

func (s *Server) corsOptions() cors.Options {
	origins := s.deps.Config.CORSOrigins
	if s.deps.Config.AllowAnyOrigin || len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"store_backend": s.storeBackend(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"store_backend": s.storeBackend(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	counts := make(map[provider.Capability]int, len(provider.Capabilities))
	for _, capability := range provider.Capabilities {
		counts[capability] = len(s.deps.Catalog.Providers(capability))
	}
	activeCalls := 0
	if s.deps.Calls != nil {
		activeCalls = s.deps.Calls.ActiveCalls()
	}
	activeSessions := 0
	if s.deps.Sessions != nil {
		activeSessions = s.deps.Sessions.ActiveCount()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"languages":       len(s.deps.Catalog.Languages()),
		"providers":       counts,
		"credentials":     s.deps.Catalog.ValidateCredentials(s.deps.Config.Credential),
		"store_backend":   s.storeBackend(),
		"mock_providers":  s.deps.Config.MockProviders,
		"active_sessions": activeSessions,
		"tracked_calls":   activeCalls,
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"generated_at": "",
			"window_size":  0,
			"stages":       []any{},
		})
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Metrics.SnapshotTurnStages())
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Sessions == nil {
		respondJSON(w, http.StatusOK, map[string]any{"sessions": []any{}})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": s.deps.Sessions.List()})
}

func (s *Server) storeBackend() string {
	if b := strings.TrimSpace(s.deps.Config.StoreBackend); b != "" {
		return b
	}
	return config.StoreMemory
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// maxJSONBody leaves room for base64 voice samples.
const maxJSONBody = 64 << 20

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondDomainError maps service errors onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	var exhausted *fallback.ExhaustedError
	switch {
	case errors.Is(err, agents.ErrNotFound),
		errors.Is(err, voicelib.ErrNotFound),
		errors.Is(err, telephony.ErrCallNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, agents.ErrInvalid),
		errors.Is(err, voicelib.ErrInvalid),
		errors.Is(err, telephony.ErrInvalid),
		errors.Is(err, provider.ErrUnknownProvider):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, voicelib.ErrNotReady):
		respondError(w, http.StatusConflict, "voice_not_ready", err.Error())
	case errors.Is(err, telephony.ErrRecordingUnsupported):
		respondError(w, http.StatusNotImplemented, "unsupported", err.Error())
	case errors.As(err, &exhausted), errors.Is(err, provider.ErrAllProvidersExhausted):
		respondError(w, http.StatusBadGateway, "providers_exhausted", err.Error())
	case errors.Is(err, provider.ErrRejected):
		respondError(w, http.StatusBadGateway, "provider_rejected", err.Error())
	case errors.Is(err, provider.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "provider_timeout", err.Error())
	case errors.Is(err, provider.ErrUnavailable):
		respondError(w, http.StatusBadGateway, "provider_unavailable", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
