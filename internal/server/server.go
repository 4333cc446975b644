package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spacesim/internal/auth"
	"spacesim/internal/match"
	"spacesim/internal/protocol"
	"spacesim/internal/scenario"
	"spacesim/internal/store"
	"spacesim/internal/transport"
)

const maxScenarioSize = 1 << 20

// Server wires HTTP routes to matches, the archive and the spectator hub
type Server struct {
	DB        *store.DB
	Auth      *auth.Auth
	Hub       *transport.Hub
	Limiter   *transport.Limiter
	Matches   *match.Manager
	PublicURL string
	TokenTTL  time.Duration
	Log       zerolog.Logger
}

// Routes configures HTTP routes
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "conns": s.Limiter.Total()})
	})

	// WebSocket endpoints
	mux.HandleFunc("GET /agent", s.handleAgent)
	mux.HandleFunc("GET /watch", s.handleWatch)

	mux.HandleFunc("POST /operators/register", s.handleRegister)
	mux.HandleFunc("POST /operators/login", s.handleLogin)

	mux.HandleFunc("GET /matches", s.handleListMatches)
	mux.HandleFunc("POST /matches", s.operator(s.handleCreateMatch))
	mux.HandleFunc("GET /matches/{id}", s.handleGetMatch)
	mux.HandleFunc("DELETE /matches/{id}", s.operator(s.handleStopMatch))
	mux.HandleFunc("GET /matches/{id}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /matches/{id}/events", s.handleEvents)
	mux.HandleFunc("POST /matches/{id}/tokens/{ship}", s.operator(s.handleIssueToken))
	mux.HandleFunc("GET /pair/{file}", s.operator(s.handlePair))

	return mux
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	claims, err := s.Auth.VerifyShipToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	runner := s.Matches.Get(claims.Match)
	if runner == nil {
		http.Error(w, "match not running", http.StatusNotFound)
		return
	}

	ip := transport.RemoteIP(r)
	if !s.Limiter.Acquire(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer s.Limiter.Release(ip)

	ws, err := transport.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn().Err(err).Msg("upgrade")
		return
	}
	ra := transport.NewRemoteAgent(transport.NewConn(ws, ip, s.Log), claims.Ship, s.Log)
	if err := runner.Attach(claims.Ship, ra); err != nil {
		s.Log.Warn().Err(err).Str("ship", claims.Ship).Msg("attach")
		ra.Close()
		ws.Close()
		return
	}
	ra.Serve()
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("match")
	if s.Matches.Get(id) == nil {
		http.Error(w, "match not running", http.StatusNotFound)
		return
	}
	ip := transport.RemoteIP(r)
	if !s.Limiter.Acquire(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	defer s.Limiter.Release(ip)

	ws, err := transport.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn().Err(err).Msg("upgrade")
		return
	}
	s.Hub.Watch(id, transport.NewConn(ws, ip, s.Log))
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&c); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	id, token, err := s.Auth.Register(c.Username, c.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{ID: id, Username: c.Username, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&c); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	id, token, err := s.Auth.Login(c.Username, c.Password, transport.RemoteIP(r))
	switch {
	case errors.Is(err, auth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err)
		return
	case err != nil:
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{ID: id, Username: c.Username, Token: token})
}

// operator rejects requests without a valid operator bearer token
func (s *Server) operator(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if _, _, err := s.Auth.VerifyOperatorToken(token); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type createdMatch struct {
	match.Info
	Tokens map[string]string `json:"tokens,omitempty"` // remote ship -> agent URL
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxScenarioSize))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	sc, err := scenario.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// the match outlives the request
	runner, err := s.Matches.Start(context.WithoutCancel(r.Context()), sc)
	switch {
	case errors.Is(err, match.ErrTooManyMatches):
		writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := createdMatch{Info: runner.Info(), Tokens: make(map[string]string)}
	for _, ship := range out.Waiting {
		link, err := s.agentURL(runner.ID, ship)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out.Tokens[ship] = link
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp := map[string]any{"live": s.Matches.List()}
	if s.DB != nil {
		archived, err := s.DB.ListMatches(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp["archived"] = archived
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if runner := s.Matches.Get(id); runner != nil {
		writeJSON(w, http.StatusOK, runner.Info())
		return
	}
	if s.DB == nil {
		http.NotFound(w, r)
		return
	}
	row, err := s.DB.GetMatch(id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleStopMatch(w http.ResponseWriter, r *http.Request) {
	runner := s.Matches.Get(r.PathValue("id"))
	if runner == nil {
		http.NotFound(w, r)
		return
	}
	runner.Stop()
	<-runner.Done()
	writeJSON(w, http.StatusOK, runner.Result())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.NotFound(w, r)
		return
	}
	tick := int64(-1)
	if v := r.URL.Query().Get("tick"); v != "" {
		t, err := strconv.ParseInt(v, 10, 64)
		if err != nil || t < 0 {
			http.Error(w, "bad tick", http.StatusBadRequest)
			return
		}
		tick = t
	}
	_, data, err := s.DB.LoadSnapshot(r.PathValue("id"), tick)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	snap, err := protocol.DecodeSnapshot(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.NotFound(w, r)
		return
	}
	events, err := s.DB.Events(r.PathValue("id"), r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	id, ship := r.PathValue("id"), r.PathValue("ship")
	if s.Matches.Get(id) == nil {
		http.NotFound(w, r)
		return
	}
	link, err := s.agentURL(id, ship)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"ship": ship, "url": link})
}

// handlePair serves /pair/{ship}.png?match=id, a QR code of the agent URL
func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	ship, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	id := r.URL.Query().Get("match")
	if !ok || ship == "" || s.Matches.Get(id) == nil {
		http.NotFound(w, r)
		return
	}
	link, err := s.agentURL(id, ship)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := auth.PairingQR(link, size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (s *Server) agentURL(matchID, ship string) (string, error) {
	token, err := s.Auth.IssueShipToken(matchID, ship, s.TokenTTL)
	if err != nil {
		return "", err
	}
	return auth.AgentURL(s.PublicURL, token)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
