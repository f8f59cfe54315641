// Package api provides the HTTP handler for the stub Registration API.
//
// The stub mimics the production Registration API closely enough to
// exercise the bootstrap end-to-end: it exposes an OAuth2
// client-credentials token endpoint and a bearer-authenticated
// /register endpoint that answers 201 with the assigned site identity.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/edencehealth/BRIDGE-Node/internal/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// tokenTTL is the lifetime of tokens issued by the stub.
const tokenTTL = time.Hour

// Credentials are the OIDC client credentials the stub token endpoint
// accepts.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Handler is the stub Registration API handler.
type Handler struct {
	reg   *registry.Registry
	creds Credentials
	log   *zap.Logger
	mux   *chi.Mux

	mu     sync.Mutex
	tokens map[string]time.Time // access token -> expiry
}

// NewHandler creates a new Handler and registers routes.
func NewHandler(reg *registry.Registry, creds Credentials, log *zap.Logger) http.Handler {
	h := &Handler{
		reg:    reg,
		creds:  creds,
		log:    log,
		mux:    chi.NewRouter(),
		tokens: make(map[string]time.Time),
	}
	h.routes()
	return h
}

func (h *Handler) routes() {
	r := h.mux

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(zapMiddleware(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", h.healthz)
	r.Post("/token", h.issueToken)
	r.Post("/register", h.registerSite)
	r.Get("/sites", h.listSites)
	r.Get("/sites/{id}", h.getSite)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// healthz returns service health status.
func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// issueToken handles POST /token, the OAuth2 client-credentials
// exchange. Errors follow the OAuth2 error envelope.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	if r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	clientID := r.PostForm.Get("client_id")
	clientSecret := r.PostForm.Get("client_secret")
	if clientID != h.creds.ClientID || clientSecret != h.creds.ClientSecret {
		h.log.Warn("token request rejected", zap.String("client_id", clientID))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	token := uuid.NewString()
	h.mu.Lock()
	h.tokens[token] = time.Now().Add(tokenTTL)
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(tokenTTL.Seconds()),
	})
}

// validBearer reports whether the Authorization header carries a token
// issued by the stub that has not expired.
func (h *Handler) validBearer(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(auth, "Bearer ")

	h.mu.Lock()
	defer h.mu.Unlock()
	expiry, ok := h.tokens[token]
	return ok && time.Now().Before(expiry)
}

// registerSite handles POST /register.
func (h *Handler) registerSite(w http.ResponseWriter, r *http.Request) {
	if !h.validBearer(r) {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid bearer token")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "unreadable body")
		return
	}
	if err := registry.ValidateRegisterPayload(raw); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	var req registry.RegisterSiteRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON")
		return
	}

	site, err := h.reg.RegisterSite(r.Context(), &req, h.creds.ClientID)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrDuplicate):
			writeError(w, http.StatusConflict, "DUPLICATE_SITE", err.Error())
		default:
			h.log.Error("register site", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, site)
}

// listSites handles GET /sites.
func (h *Handler) listSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.reg.ListSites(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": sites})
}

// getSite handles GET /sites/{id}.
func (h *Handler) getSite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "site id must be an integer")
		return
	}

	site, err := h.reg.GetSite(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, http.StatusNotFound, "SITE_NOT_FOUND", "site not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var e apiError
	e.Error.Code = code
	e.Error.Message = message
	writeJSON(w, status, e)
}

func zapMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
			)
		})
	}
}
