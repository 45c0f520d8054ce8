package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autonome/autonome/internal/consts"
	"github.com/autonome/autonome/internal/logger"
	"github.com/autonome/autonome/internal/queue"
	"github.com/autonome/autonome/internal/service"
)

type aiHandler struct {
	svc           *service.Service
	callerTimeout time.Duration
}

// RegisterAIRoutes mounts the endpoints of an AI service
func RegisterAIRoutes(s *Server, svc *service.Service, callerTimeout time.Duration) {
	h := &aiHandler{svc: svc, callerTimeout: callerTimeout}

	s.HandleFunc("/discuss-crypto", h.handleDiscuss)
	s.HandleFunc("/health", h.handleHealth)
	s.HandleFunc("/stats", h.handleStats)
	if svc.History != nil {
		s.HandleFunc("/chat-history", h.handleChatHistory)
	}
}

func (h *aiHandler) handleDiscuss(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, consts.ErrorInvalidRequestBody, err.Error())
		return
	}

	var payload queue.Payload
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, consts.ErrorInvalidRequestBody, err.Error())
			return
		}
	}
	if h.svc.RequireQuestion && strings.TrimSpace(payload.Question) == "" {
		writeError(w, http.StatusBadRequest, consts.ErrorInvalidRequestBody, service.ErrEmptyQuestion.Error())
		return
	}

	future := h.svc.Queue.Enqueue(payload)
	logger.Info("Received request for AI discussion", map[string]interface{}{
		"service":    h.svc.Name,
		"request_id": future.ID(),
	})

	ctx := r.Context()
	if h.callerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.callerTimeout)
		defer cancel()
	}

	resp, err := future.Wait(ctx)
	if err != nil {
		resp, err = h.svc.Queue.Policy().Resolve(err)
	}
	if err != nil {
		logger.Error("Discussion failed", map[string]interface{}{
			"service":    h.svc.Name,
			"request_id": future.ID(),
			"error":      err.Error(),
		})
		writeError(w, http.StatusInternalServerError, consts.ErrorDiscussionFailed, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *aiHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.svc.Name,
	})
}

func (h *aiHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Queue.Stats())
}

func (h *aiHandler) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	data, err := h.svc.History.Raw()
	if err != nil {
		writeError(w, http.StatusInternalServerError, consts.ErrorChatHistoryFailed, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
