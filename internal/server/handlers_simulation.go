package server

import (
	"errors"
	"net/http"

	"github.com/ashita-ai/nouki/internal/model"
	"github.com/ashita-ai/nouki/internal/service/simulation"
)

// HandleSimulate handles POST /v1/simulate. A request without a project name
// gets 422 with the guidance text as the error message.
func (h *Handlers) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req model.SimulateRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := model.ValidateMessage(req.Text); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "text: "+err.Error())
		return
	}

	result, err := h.simulationSvc.Simulate(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, simulation.ErrNoProjectName) {
			writeError(w, r, http.StatusUnprocessableEntity, model.ErrCodeNoProjectName, simulation.GuidanceMessage)
			return
		}
		h.writeInternalError(w, r, "simulation failed", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// HandleExtract handles POST /v1/extract.
func (h *Handlers) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var req model.SimulateRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := model.ValidateMessage(req.Text); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "text: "+err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, h.simulationSvc.Extract(req.Text))
}

// HandleListProfiles handles GET /v1/profiles.
func (h *Handlers) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.simulationSvc.Table().Summaries())
}

// HandleGetProfile handles GET /v1/profiles/{key}.
func (h *Handlers) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	p, ok := h.simulationSvc.Table().Lookup(key)
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "profile not found: "+key)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}
