package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/service/chat"
)

const sseKeepalive = 15 * time.Second

// HandleCreateSession handles POST /v1/sessions.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Persona == "" {
		req.Persona = model.PersonaSimulation
	}

	s, err := h.store.Create(req.Persona)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrInvalidPersona):
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "persona must be simulation or manager")
		case errors.Is(err, chat.ErrTooManySessions):
			writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeBusy, "too many open sessions, try again later")
		case errors.Is(err, chat.ErrClosed):
			writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError, "server is shutting down")
		default:
			h.writeInternalError(w, r, "failed to create session", err)
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, model.SessionCreated{
		ID:      s.ID(),
		Persona: s.Persona(),
		State:   s.State(),
	})
}

// HandleGetSession handles GET /v1/sessions/{id}.
func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, s.Snapshot())
}

// HandleDeleteSession handles DELETE /v1/sessions/{id}.
func (h *Handlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "session not found")
			return
		}
		h.writeInternalError(w, r, "failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSendMessage handles POST /v1/sessions/{id}/messages. The reply
// arrives asynchronously; the response carries only the accepted user turn.
func (h *Handlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req model.SendMessageRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	msg, err := s.Submit(r.Context(), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "content must not be empty")
		case errors.Is(err, chat.ErrMessageTooLong):
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		case errors.Is(err, chat.ErrBusy):
			writeError(w, r, http.StatusConflict, model.ErrCodeBusy, "a reply is already pending for this session")
		case errors.Is(err, chat.ErrClosed):
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "session not found")
		default:
			h.writeInternalError(w, r, "failed to submit message", err)
		}
		return
	}
	writeJSON(w, r, http.StatusAccepted, msg)
}

// HandleConfirmSchedule handles
// POST /v1/sessions/{id}/messages/{message_id}/schedule/confirm.
func (h *Handlers) HandleConfirmSchedule(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	msgID, ok := pathUUID(w, r, "message_id")
	if !ok {
		return
	}
	var req model.ConfirmScheduleRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.ExpectedVersion < 1 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "expected_version must be at least 1")
		return
	}
	if utf8.RuneCountInString(req.BlockID) > model.MaxScheduleBlockID {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "block_id is too long")
		return
	}

	var (
		list model.ScheduleList
		err  error
	)
	if req.BlockID == "" {
		list, err = s.ConfirmAll(msgID, req.ExpectedVersion)
	} else {
		list, err = s.ConfirmBlock(msgID, req.BlockID, req.ExpectedVersion)
	}
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrVersionConflict):
			writeErrorDetails(w, r, http.StatusConflict, model.ErrCodeConflict,
				"schedule was modified; reload and retry", list)
		case errors.Is(err, chat.ErrNoSchedule):
			writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeInvalidInput, "message has no schedule")
		case errors.Is(err, chat.ErrNotFound):
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "message or block not found")
		default:
			h.writeInternalError(w, r, "failed to confirm schedule", err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

// HandleSessionEvents handles GET /v1/sessions/{id}/events (SSE). The stream
// opens with a snapshot event, then carries every change to the session
// until the client disconnects or the session is closed.
func (h *Handlers) HandleSessionEvents(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError, "event stream not available")
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported")
		return
	}

	// Subscribe before taking the snapshot so no change falls between them.
	ch := h.broker.Subscribe(s.ID())
	defer h.broker.Unsubscribe(s.ID(), ch)

	snapshot, err := json.Marshal(s.Snapshot())
	if err != nil {
		h.writeInternalError(w, r, "failed to encode snapshot", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Disable the server's WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	if _, err := w.Write(formatSSE("snapshot", snapshot)); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// session resolves the {id} path parameter, writing 400/404 on failure.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return nil, false
	}
	s, err := h.store.Get(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "session not found")
		return nil, false
	}
	return s, true
}
