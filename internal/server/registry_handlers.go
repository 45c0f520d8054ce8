package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/autonome/autonome/internal/consts"
	"github.com/autonome/autonome/internal/logger"
	"github.com/autonome/autonome/internal/registry"
)

type registryHandler struct {
	store      registry.Store
	corsOrigin string
}

type registerResponse struct {
	Message string         `json:"message"`
	User    *registry.User `json:"user"`
}

type usersResponse struct {
	Users []registry.User `json:"users"`
}

type monitoringRequest struct {
	TelegramUsername string `json:"telegramUsername"`
}

type monitoringResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// RegisterRegistryRoutes mounts the registration API behind CORS for the frontend origin
func RegisterRegistryRoutes(s *Server, store registry.Store, corsOrigin string) {
	h := &registryHandler{store: store, corsOrigin: corsOrigin}

	s.Handle("/api/register", h.cors(http.MethodPost, h.handleRegister))
	s.Handle("/api/users", h.cors(http.MethodGet, h.handleUsers))
	s.Handle("/api/startMonitoring", h.cors(http.MethodPost, h.handleStartMonitoring))
	s.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "registry"})
	})
}

func (h *registryHandler) cors(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", method+", OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if !allowMethod(w, r, method) {
			return
		}
		next(w, r)
	}
}

func (h *registryHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg registry.Registration
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, consts.ErrorInvalidRequestBody, err.Error())
		return
	}

	user, err := h.store.Register(r.Context(), reg)
	switch {
	case errors.Is(err, registry.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, consts.ErrorEmailRegistered, "")
		return
	case errors.Is(err, registry.ErrMissingFields):
		writeError(w, http.StatusBadRequest, consts.ErrorInvalidRequestBody, err.Error())
		return
	case err != nil:
		logger.Error("Registration failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, consts.ErrorRegistrationFailed, "")
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{Message: "Registration successful", User: user})
}

func (h *registryHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List(r.Context())
	if err != nil {
		logger.Error("Failed to fetch users", map[string]interface{}{
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, consts.ErrorFetchUsersFailed, "")
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: users})
}

func (h *registryHandler) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	var req monitoringRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, consts.ErrorInvalidRequestBody, err.Error())
		return
	}
	if strings.TrimSpace(req.TelegramUsername) == "" {
		writeError(w, http.StatusBadRequest, consts.ErrorUsernameRequired, "")
		return
	}

	user, err := h.store.StartMonitoring(r.Context(), req.TelegramUsername)
	if errors.Is(err, registry.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, consts.ErrorMonitoringFailed, err.Error())
		return
	}
	if err != nil {
		logger.Error("Failed to start monitoring", map[string]interface{}{
			"telegram_username": req.TelegramUsername,
			"error":             err.Error(),
		})
		writeError(w, http.StatusInternalServerError, consts.ErrorMonitoringFailed, "")
		return
	}

	writeJSON(w, http.StatusOK, monitoringResponse{
		Success:  true,
		Message:  "Monitoring started",
		Username: user.TelegramUsername,
	})
}
