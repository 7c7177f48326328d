package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"popquiz-service/internal/app"
	"popquiz-service/internal/auth"
	"popquiz-service/internal/logging"
)

// APIHandler serves the request/response surface: catalog, one-shot
// leaderboard and the identity provider.
type APIHandler struct {
	service  *app.QuizService
	identity auth.Provider
	logger   zerolog.Logger
}

func NewAPIHandler(service *app.QuizService, identity auth.Provider, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		service:  service,
		identity: identity,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/categories", h.categories)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("POST /api/auth/signup", h.signUp)
	mux.HandleFunc("POST /api/auth/signin", h.signIn)
	mux.HandleFunc("POST /api/auth/signout", h.signOut)
}

func (h *APIHandler) categories(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Categories())
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	viewerID := ""
	if token := bearerToken(r); token != "" {
		id, err := h.identity.Verify(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		viewerID = id.UserID
	}
	lb, err := h.service.Leaderboard(r.Context(), viewerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, lb)
}

func (h *APIHandler) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorPayload{Code: CodeBadRequest, Message: errBadPayload.Error()})
		return
	}
	creds, err := h.identity.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, creds)
}

func (h *APIHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorPayload{Code: CodeBadRequest, Message: errBadPayload.Error()})
		return
	}
	creds, err := h.identity.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, creds)
}

func (h *APIHandler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.SignOut(r.Context(), bearerToken(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	payload, status := describeError(err)
	if status >= http.StatusInternalServerError {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("request failed")
	}
	h.writeJSON(w, status, payload)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug().Err(err).Msg("write response")
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
