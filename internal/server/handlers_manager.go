package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/service/manager"
)

// HandleManagerChat handles POST /api/chat, the stateless manager proxy.
//
// This route keeps its own wire shape: {content} on success and {error} on
// failure, without the standard envelope. The error text never carries the
// upstream cause.
func (h *Handlers) HandleManagerChat(w http.ResponseWriter, r *http.Request) {
	var req model.ManagerChatRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeProxyJSON(w, http.StatusRequestEntityTooLarge, model.ManagerChatError{Error: "request body too large"})
			return
		}
		writeProxyJSON(w, http.StatusBadRequest, model.ManagerChatError{Error: "invalid request body"})
		return
	}
	if err := model.ValidateManagerChat(req); err != nil {
		writeProxyJSON(w, http.StatusBadRequest, model.ManagerChatError{Error: err.Error()})
		return
	}

	content, err := h.proxy.Reply(r.Context(), req.Messages)
	if err != nil {
		attrs := []any{
			"provider", h.proxy.ProviderName(),
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		}
		if errors.Is(err, manager.ErrNotConfigured) {
			h.logger.Error("manager chat: provider not configured", attrs...)
			writeProxyJSON(w, http.StatusInternalServerError, model.ManagerChatError{Error: "server configuration error"})
			return
		}
		h.logger.Error("manager chat: completion failed", attrs...)
		writeProxyJSON(w, http.StatusBadGateway, model.ManagerChatError{Error: "failed to get response"})
		return
	}
	writeProxyJSON(w, http.StatusOK, model.ManagerChatResponse{Content: content})
}

func writeProxyJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
