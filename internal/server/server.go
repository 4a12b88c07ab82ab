// Package server exposes the game over HTTP: webhook intake, player sign-in,
// tick triggering, and a live event feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gitforged/server/internal/character"
	"github.com/gitforged/server/internal/config"
	"github.com/gitforged/server/internal/game"
	"github.com/gitforged/server/internal/logger"
	"github.com/gitforged/server/internal/quest"
	"github.com/gitforged/server/internal/store"
	"github.com/gitforged/server/internal/tick"
	"github.com/gitforged/server/internal/webhook"
)

// maxBodySize bounds request bodies; webhook payloads are small.
const maxBodySize = 1 << 20

// Server handles the HTTP surface of the game.
type Server struct {
	cfg       *config.ServerConfig
	store     store.Store
	character character.Client
	engine    *quest.Engine
	hub       *Hub
	httpSrv   *http.Server
}

// New wires a server over its collaborators. Quest events are forwarded to
// the websocket event feed.
func New(cfg *config.ServerConfig, s store.Store, c character.Client, engine *quest.Engine) *Server {
	srv := &Server{
		cfg:       cfg,
		store:     s,
		character: c,
		engine:    engine,
		hub:       NewHub(),
	}
	engine.Events = srv.hub.Broadcast
	return srv
}

// Handler returns the route table wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/github", s.handleWebhook)
	mux.HandleFunc("POST /auth/github", s.handleAuth)
	mux.HandleFunc("POST /tick", s.handleTick)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.corsMiddleware(mux)
}

// ListenAndServe starts the event hub and serves HTTP until Shutdown.
func (s *Server) ListenAndServe() error {
	go s.hub.Run()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout(),
		WriteTimeout: s.cfg.HTTP.WriteTimeout(),
	}
	logger.Info("Server listening", "addr", s.cfg.HTTP.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the event feed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.cfg.CORS.IsOriginAllowed(origin, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook receives GitHub fork deliveries: it verifies the signature,
// finds or references the forking user, creates their game, and starts the
// entry quest. Redelivery of the same fork just re-runs an execution pass,
// which is inert once the quest has moved on.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if s.cfg.Webhook.Secret != "" {
		sig := r.Header.Get(webhook.SignatureHeader)
		if err := webhook.VerifySignature([]byte(s.cfg.Webhook.Secret), body, sig); err != nil {
			logger.Warning("Webhook signature rejected", "remote_addr", r.RemoteAddr)
			writeError(w, http.StatusForbidden, "invalid signature")
			return
		}
	}

	if event := r.Header.Get("X-GitHub-Event"); event != "fork" {
		// Ping and other event types are acknowledged and dropped.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	fork, err := webhook.ParseForkEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation error")
		return
	}
	if !fork.IsFor(s.cfg.Webhook.Repo) {
		logger.Warning("Fork of foreign repository", "repo", fork.Repository.FullName)
		writeError(w, http.StatusNotFound, "not our repository")
		return
	}

	ctx := r.Context()
	g, err := s.gameForFork(ctx, fork)
	if err != nil {
		logger.Error("Failed to create game from fork", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}

	if err := s.engine.StartFirstQuest(ctx, g, tick.Full); err != nil {
		logger.Error("Entry quest failed", "game", g.Key(), "error", err)
		writeError(w, statusForQuestError(err), "quest execution failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "game": g.Key()})
}

// gameForFork finds or creates the user behind a fork and upserts their
// game. A user who has never signed in gets a bare reference record.
func (s *Server) gameForFork(ctx context.Context, fork *webhook.ForkEvent) (*game.Game, error) {
	owner := fork.Forkee.Owner
	user, err := game.NewGitHubUser(owner.ID, owner.Login)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.FindUserBySource(ctx, string(user.Source), user.UserID)
	if errors.Is(err, store.ErrNotFound) {
		rec = &store.UserRecord{
			Key:    user.Key(),
			Source: string(user.Source),
			UserID: user.UserID,
			Handle: user.Handle,
			Joined: time.Now().UTC(),
		}
		if err := s.store.PutUser(ctx, rec); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	g, err := game.NewGame(user, fork.Forkee.URL, owner.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutGame(ctx, &store.GameRecord{
		Key:       g.Key(),
		UserKey:   g.UserKey,
		ForkURL:   g.ForkURL,
		PlayerID:  g.PlayerID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	return g, nil
}

type authRequest struct {
	Token string `json:"token"`
}

// handleAuth signs a player in: the access token proves they control the
// GitHub account, and the response carries their stable UID.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}

	ctx := r.Context()
	identity, err := s.character.UserForToken(ctx, req.Token)
	if err != nil {
		var charErr *character.Error
		if errors.As(err, &charErr) && charErr.Status == http.StatusUnauthorized {
			writeError(w, http.StatusForbidden, "invalid token")
			return
		}
		logger.Error("Token verification failed", "error", err)
		writeError(w, http.StatusBadGateway, "token verification failed")
		return
	}

	user, err := game.NewGitHubUser(identity.ID, identity.Login)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account")
		return
	}

	rec, err := s.store.FindUserBySource(ctx, string(user.Source), user.UserID)
	if errors.Is(err, store.ErrNotFound) {
		rec = &store.UserRecord{
			Key:    user.Key(),
			Source: string(user.Source),
			UserID: user.UserID,
			Joined: time.Now().UTC(),
		}
	} else if err != nil {
		logger.Error("User lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "user lookup failed")
		return
	}

	// First sign-in mints the UID; later sign-ins refresh the profile.
	if rec.UID == "" {
		rec.UID = uuid.NewString()
	}
	rec.Name = identity.Name
	rec.Handle = identity.Login
	if err := s.store.PutUser(ctx, rec); err != nil {
		logger.Error("User save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "user save failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"uid": rec.UID, "handle": rec.Handle})
}

type tickRequest struct {
	Cadence string `json:"cadence"`
}

// handleTick drives every incomplete quest. The endpoint is guarded by a
// bcrypt-hashed token so only the scheduler can call it.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Tick.TokenHash != "" {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.Tick.TokenHash), []byte(token)); err != nil {
			writeError(w, http.StatusForbidden, "invalid tick token")
			return
		}
	}

	var req tickRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	cadence, err := tick.ParseCadence(req.Cadence)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown cadence")
		return
	}

	if err := s.engine.TickAll(r.Context(), cadence); err != nil {
		logger.Error("Tick failed", "cadence", cadence, "error", err)
		writeError(w, statusForQuestError(err), "tick failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusForQuestError maps the quest error taxonomy onto response codes.
func statusForQuestError(err error) int {
	if errors.Is(err, quest.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
