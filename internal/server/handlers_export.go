package server

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ashita-ai/nouki/internal/export"
	"github.com/ashita-ai/nouki/internal/model"
)

// HandleExportSchedule handles
// GET /v1/sessions/{id}/messages/{message_id}/schedule.xlsx.
func (h *Handlers) HandleExportSchedule(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	msgID, ok := pathUUID(w, r, "message_id")
	if !ok {
		return
	}
	msg, err := s.Message(msgID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "message not found")
		return
	}
	if msg.Simulation == nil {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "message has no schedule")
		return
	}

	// Render fully before writing headers so a failure can still be a 500.
	var buf bytes.Buffer
	if err := export.WriteSchedule(&buf, *msg.Simulation); err != nil {
		h.writeInternalError(w, r, "failed to render schedule", err)
		return
	}

	name := export.FileName(msg.Simulation.ProjectName)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition",
		`attachment; filename="schedule.xlsx"; filename*=UTF-8''`+url.PathEscape(name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
