// Package server is the control plane's REST API: operator auth,
// agent CRUD, read-only ticket observation, and integration config.
// It speaks the same /api surface the dashboard's gateway client
// consumes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/fixdeck-io/fixdeck/internal/store"
	"github.com/fixdeck-io/fixdeck/pkg/model"
)

// Syncer pulls fresh tickets from the helpdesk on demand. The
// simulator implements it; a nil Syncer disables the endpoint.
type Syncer interface {
	SyncZoho(ctx context.Context) (int, error)
}

// Config holds API server configuration.
type Config struct {
	Host       string
	Port       int
	Secret     string // HMAC secret for JWT signing
	TokenTTL   time.Duration
	BcryptCost int
}

// Server is the fixdeck control plane REST server.
type Server struct {
	st      store.Store
	syncer  Syncer
	cfg     Config
	logger  *slog.Logger
	authLim *rate.Limiter
	srv     *http.Server
}

// NewServer wires the route table. syncer may be nil.
func NewServer(st store.Store, syncer Syncer, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	s := &Server{
		st:     st,
		syncer: syncer,
		cfg:    cfg,
		logger: logger,
		// Login and register share one bucket: brute force against any
		// account slows them all down.
		authLim: rate.NewLimiter(rate.Every(time.Second), 5),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.rateLimited(s.handleLogin))
	mux.HandleFunc("POST /api/auth/register", s.rateLimited(s.handleRegister))

	mux.HandleFunc("GET /api/profile", s.requireAuth(s.handleGetProfile))
	mux.HandleFunc("PUT /api/profile", s.requireAuth(s.handlePutProfile))

	mux.HandleFunc("GET /api/agents", s.requireAuth(s.handleListAgents))
	mux.HandleFunc("POST /api/agents", s.requireAuth(s.handleCreateAgent))
	mux.HandleFunc("GET /api/agents/{id}", s.requireAuth(s.handleGetAgent))
	mux.HandleFunc("PUT /api/agents/{id}", s.requireAuth(s.handleUpdateAgent))
	mux.HandleFunc("DELETE /api/agents/{id}", s.requireAuth(s.handleDeleteAgent))
	mux.HandleFunc("PUT /api/agents/{id}/activate", s.requireAuth(s.handleToggleAgent(model.AgentActive)))
	mux.HandleFunc("PUT /api/agents/{id}/deactivate", s.requireAuth(s.handleToggleAgent(model.AgentInactive)))

	mux.HandleFunc("GET /api/admin/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("GET /api/admin/tickets/{id}", s.requireAuth(s.handleGetTicket))
	mux.HandleFunc("GET /api/admin/tickets/status/{status}", s.requireAuth(s.handleTicketsByStatus))
	mux.HandleFunc("GET /api/admin/tickets/{id}/logs", s.requireAuth(s.handleTicketLogs))
	mux.HandleFunc("GET /api/admin/health", s.requireAuth(s.handleHealth))
	mux.HandleFunc("POST /api/admin/sync/zoho", s.requireAuth(s.handleSyncZoho))

	mux.HandleFunc("GET /api/config/zoho", s.requireAuth(s.handleListZoho))
	mux.HandleFunc("POST /api/config/zoho", s.requireAuth(s.handleAddZoho))
	mux.HandleFunc("DELETE /api/config/zoho/{id}", s.requireAuth(s.handleDeleteZoho))
	mux.HandleFunc("GET /api/config/gitlab", s.requireAuth(s.handleListGitLab))
	mux.HandleFunc("POST /api/config/gitlab", s.requireAuth(s.handleAddGitLab))
	mux.HandleFunc("DELETE /api/config/gitlab/{id}", s.requireAuth(s.handleDeleteGitLab))
	mux.HandleFunc("GET /api/config/bot", s.requireAuth(s.handleGetBotConfig))
	mux.HandleFunc("POST /api/config/bot", s.requireAuth(s.handleSaveBotConfig))

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authLim.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many auth attempts")
			return
		}
		next(w, r)
	}
}

type userKey struct{}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		username, err := s.verifyToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, username)))
	}
}

func requestUser(r *http.Request) string {
	u, _ := r.Context().Value(userKey{}).(string)
	return u
}

// --- Tokens ---

func (s *Server) issueToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		Issuer:    "fixdeckd",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("server: sign token: %w", err)
	}
	return signed, nil
}

func (s *Server) verifyToken(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("token carries no subject")
	}
	return claims.Subject, nil
}

// --- Auth handlers ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := s.st.UserByUsername(creds.Username)
	if err != nil {
		// Same response as a bad password; usernames are not probeable.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.issueToken(user.Username)
	if err != nil {
		s.logger.Error("token issue failed", "user", user.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.logger.Info("operator logged in", "user", user.Username)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if reg.Username == "" || reg.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if len(reg.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cfg.BcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not hash password")
		return
	}
	err = s.st.CreateUser(store.User{
		Username:     reg.Username,
		PasswordHash: string(hash),
		Profile: model.UserProfile{
			Username: reg.Username,
			Email:    reg.Email,
			FullName: reg.FullName,
		},
	})
	if err != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	s.logger.Info("operator registered", "user", reg.Username)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

// --- Profile handlers ---

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.st.UserByUsername(requestUser(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Profile)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p model.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	username := requestUser(r)
	if err := s.st.SaveProfile(username, p); err != nil {
		writeStoreError(w, err)
		return
	}
	user, err := s.st.UserByUsername(username)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Profile)
}

// --- Agent handlers ---

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	agents, err := s.st.Agents()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if agents == nil {
		agents = []model.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var a model.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if a.AgentName == "" {
		writeError(w, http.StatusBadRequest, "agentName is required")
		return
	}
	a.ID = ""
	a.Status = model.AgentInactive
	created, err := s.st.SaveAgent(a)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.logger.Info("agent created", "agent", created.ID, "name", created.AgentName)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.st.AgentByID(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.st.AgentByID(id); err != nil {
		writeStoreError(w, err)
		return
	}
	var a model.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	a.ID = id
	updated, err := s.st.SaveAgent(a)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.st.DeleteAgent(id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.logger.Info("agent deleted", "agent", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleAgent(status model.AgentStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := s.st.SetAgentStatus(r.PathValue("id"), status)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		s.logger.Info("agent status changed", "agent", a.ID, "status", a.Status)
		writeJSON(w, http.StatusOK, a)
	}
}

// --- Ticket handlers ---

func (s *Server) handleListTickets(w http.ResponseWriter, _ *http.Request) {
	tickets, err := s.st.Tickets(nil)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.st.TicketByID(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTicketsByStatus(w http.ResponseWriter, r *http.Request) {
	status := model.TicketStatus(r.PathValue("status"))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	tickets, err := s.st.Tickets(&status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleTicketLogs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.st.TicketByID(id); err != nil {
		writeStoreError(w, err)
		return
	}
	logs, err := s.st.Logs(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if logs == nil {
		logs = []model.ProcessingLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// --- Admin handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h, err := s.st.Health()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleSyncZoho(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "helpdesk sync is not available")
		return
	}
	n, err := s.syncer.SyncZoho(r.Context())
	if err != nil {
		s.logger.Error("zoho sync failed", "error", err)
		writeError(w, http.StatusBadGateway, "helpdesk sync failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("synced %d new tickets", n),
	})
}

// --- Integration config handlers ---

func (s *Server) handleListZoho(w http.ResponseWriter, _ *http.Request) {
	configs, err := s.st.ZohoConfigs()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if configs == nil {
		configs = []model.ZohoConfig{}
	}
	writeJSON(w, http.StatusOK, configs)
}

func (s *Server) handleAddZoho(w http.ResponseWriter, r *http.Request) {
	var cfg model.ZohoConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if cfg.ConfigName == "" || cfg.OrgID == "" {
		writeError(w, http.StatusBadRequest, "configName and orgId are required")
		return
	}
	created, err := s.st.AddZohoConfig(cfg)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteZoho(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteZohoConfig(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGitLab(w http.ResponseWriter, _ *http.Request) {
	configs, err := s.st.GitLabConfigs()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if configs == nil {
		configs = []model.GitLabConfig{}
	}
	writeJSON(w, http.StatusOK, configs)
}

func (s *Server) handleAddGitLab(w http.ResponseWriter, r *http.Request) {
	var cfg model.GitLabConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if cfg.ConfigName == "" || cfg.GitLabURL == "" {
		writeError(w, http.StatusBadRequest, "configName and gitlabUrl are required")
		return
	}
	created, err := s.st.AddGitLabConfig(cfg)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteGitLab(w http.ResponseWriter, r *http.Request) {
	if err := s.st.DeleteGitLabConfig(r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBotConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, err := s.st.BotConfig()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSaveBotConfig(w http.ResponseWriter, r *http.Request) {
	var cfg model.BotConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if cfg.LLMProvider == "" || cfg.LLMModel == "" {
		writeError(w, http.StatusBadRequest, "llmProvider and llmModel are required")
		return
	}
	if err := s.st.SaveBotConfig(cfg); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
