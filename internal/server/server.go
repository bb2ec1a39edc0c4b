// Package server wires the concierge HTTP API: one conversational turn per
// request, stateless handlers over the shared conversation store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"seraphine-concierge-backend/internal/catalog"
	"seraphine-concierge-backend/internal/config"
	"seraphine-concierge-backend/internal/conversation"
	"seraphine-concierge-backend/internal/db"
	"seraphine-concierge-backend/internal/dispatch"
	"seraphine-concierge-backend/internal/intent"
	"seraphine-concierge-backend/internal/module"
	"seraphine-concierge-backend/internal/render"
	"seraphine-concierge-backend/internal/types"
)

type Server struct {
	router     *chi.Mux
	cfg        config.Config
	log        *zap.SugaredLogger
	state      *conversation.Store
	provider   catalog.Provider
	dispatcher *dispatch.Dispatcher
	renderer   *render.Renderer
	database   *db.DB
}

func NewServer(cfg config.Config, log *zap.SugaredLogger) (*Server, error) {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var database *db.DB
	var provider catalog.Provider
	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.New(cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Infow("database connection established")
		if err := database.RunMigrations(cfg.MigrationsDir); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		provider = catalog.NewPostgresProvider(database)
	} else {
		log.Warnw("DB_URL not provided, using seeded in-memory catalog")
		provider = catalog.NewMemoryProvider()
	}

	var inferrer *intent.Inferrer
	if cfg.OpenAIAPIKey != "" {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		var err error
		inferrer, err = intent.LoadInferrer(cfg.IntentSpecPath, client, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to load intent spec: %w", err)
		}
	} else {
		log.Warnw("OPENAI_API_KEY not set; free-text intent uses keyword heuristics only")
	}

	themeClass := ""
	if cfg.AuroraTheme {
		themeClass = "cz-aurora"
	}
	renderer, err := render.New(themeClass)
	if err != nil {
		return nil, err
	}

	state := conversation.NewStore(40)
	s := &Server{
		router:     r,
		cfg:        cfg,
		log:        log,
		state:      state,
		provider:   provider,
		dispatcher: dispatch.New(state, provider, inferrer, log),
		renderer:   renderer,
		database:   database,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/concierge/converse", s.handleConverse)
	s.router.Get("/api/concierge/module", s.handleCurrentModule)
	s.router.Get("/api/concierge/shortlist", s.handleShortlist)
	s.router.Post("/api/concierge/reset", s.handleReset)
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases held resources (the DB pool when configured).
func (s *Server) Close() error {
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.database != nil {
		if err := s.database.HealthCheck(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// handleConverse runs one conversation turn: decode the action, dispatch it,
// render the next module. A turn already in flight for the session makes a
// second submission a no-op that just re-reports the current module.
func (s *Server) handleConverse(w http.ResponseWriter, r *http.Request) {
	var req types.ConverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, "", http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	sid := s.getOrCreateSessionID(r, w)
	if strings.TrimSpace(req.Action.Type) == "" {
		s.writeError(w, r, sid, http.StatusBadRequest, "validation_failed", "action.type is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if !s.state.BeginTurn(sid) {
		s.log.Infow("suppressing duplicate submission", "session", sid, "action", req.Action.Type)
		s.writeModule(w, r, sid, s.dispatcher.Resolve(ctx, sid))
		return
	}
	defer s.state.EndTurn(sid)

	m, err := s.dispatcher.Dispatch(ctx, sid, req.Action)
	if err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, r, sid, http.StatusBadRequest, "validation_failed", verr.Error())
			return
		}
		s.log.Errorw("dispatch failed", "session", sid, "action", req.Action.Type, "err", err)
		s.writeError(w, r, sid, http.StatusInternalServerError, "internal", "could not process that action")
		return
	}
	s.writeModule(w, r, sid, m)
}

// handleCurrentModule re-resolves the session's module, e.g. after a page
// reload, without consuming an action.
func (s *Server) handleCurrentModule(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	s.writeModule(w, r, sid, s.dispatcher.Resolve(ctx, sid))
}

func (s *Server) handleShortlist(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	m, err := intent.ShortlistModule(ctx, sid, s.provider)
	if err != nil {
		s.log.Errorw("shortlist load failed", "session", sid, "err", err)
		s.writeError(w, r, sid, http.StatusBadGateway, "provider_unavailable", "could not load shortlist")
		return
	}
	s.writeModule(w, r, sid, m)
}

// handleReset drops the session's state and its cookie; the next request
// starts a fresh session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sid := s.getOrCreateSessionID(r, w)
	s.state.Reset(sid)
	s.clearSessionCookie(w)
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	s.writeModule(w, r, sid, s.dispatcher.Resolve(ctx, sid))
}

func (s *Server) writeModule(w http.ResponseWriter, r *http.Request, sid string, m module.Module) {
	html, err := s.renderer.Render(m, false)
	if err != nil {
		s.log.Errorw("render failed", "session", sid, "kind", m.Kind, "err", err)
		s.writeError(w, r, sid, http.StatusInternalServerError, "render_failed", "could not render module")
		return
	}
	s.writeJSON(w, sid, http.StatusOK, types.Envelope{
		Success: true,
		Data:    types.ConverseData{Module: m, HTML: html},
		Meta:    s.meta(sid),
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, sid string, code int, errCode, msg string) {
	s.writeJSON(w, sid, code, types.Envelope{
		Success: false,
		Error:   &types.ErrorBody{Code: errCode, Message: msg},
		Meta:    s.meta(sid),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, sid string, code int, env types.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	if sid != "" {
		w.Header().Set("X-Session-Id", sid)
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}

func (s *Server) meta(sid string) types.Meta {
	return types.Meta{RequestID: uuid.NewString(), SessionID: sid, Time: time.Now().UTC()}
}

// getSessionID reads the session id from cookie, header, or query parameter.
func (s *Server) getSessionID(r *http.Request) string {
	if sid := s.sessionCookie(r); sid != "" {
		return sid
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

func (s *Server) getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := s.getSessionID(r)
	if sid == "" {
		sid = "s_" + uuid.NewString()
		s.log.Infow("creating new session", "session", sid, "path", r.URL.Path)
		s.setSessionCookie(w, sid)
	}
	return sid
}
