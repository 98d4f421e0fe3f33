// Package rest exposes the charge point registry, reservation estimator
// and session simulator over HTTP.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chargeflow/chargeflow/core/estimate"
	"github.com/chargeflow/chargeflow/core/lifecycle"
	"github.com/chargeflow/chargeflow/core/logger"
	"github.com/chargeflow/chargeflow/core/model"
	"github.com/chargeflow/chargeflow/core/registry"
	"github.com/chargeflow/chargeflow/core/session"
)

// Handler serves the REST API.
type Handler struct {
	reg      registry.Registry
	machine  *lifecycle.Machine
	sessions *session.Manager
	log      logger.Logger
}

// New builds a Handler over the given components.
func New(reg registry.Registry, machine *lifecycle.Machine, sessions *session.Manager, log logger.Logger) *Handler {
	return &Handler{reg: reg, machine: machine, sessions: sessions, log: log}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /evses", h.listEVSEs)
	mux.HandleFunc("GET /evses/summary", h.summary)
	mux.HandleFunc("GET /evses/statuses", h.statuses)
	mux.HandleFunc("POST /evses", h.addEVSE)
	mux.HandleFunc("DELETE /evses/{id}", h.removeEVSE)
	mux.HandleFunc("POST /evses/{id}/connect", h.transition(h.machine.Connect))
	mux.HandleFunc("POST /evses/{id}/disconnect", h.transition(h.machine.Disconnect))
	mux.HandleFunc("POST /evses/{id}/plug", h.transition(h.machine.Plug))
	mux.HandleFunc("POST /evses/{id}/start", h.startCharging)
	mux.HandleFunc("POST /evses/{id}/stop", h.transition(h.machine.Stop))

	mux.HandleFunc("GET /evs", h.listVehicles)
	mux.HandleFunc("GET /evs/{id}", h.getVehicle)
	mux.HandleFunc("PATCH /evs/{id}/soc", h.patchSoC)

	mux.HandleFunc("GET /reservation/estimate", h.estimateReservation)
	mux.HandleFunc("POST /ocpp/reserve", h.reserve)

	mux.HandleFunc("GET /sessions", h.listSessions)
	mux.HandleFunc("GET /sessions/{id}", h.getSession)
	mux.HandleFunc("PUT /sessions/focus", h.setFocus)
	mux.HandleFunc("DELETE /sessions/focus", h.clearFocus)
	mux.HandleFunc("GET /sessions/focus", h.getFocus)

	return mux
}

func (h *Handler) listEVSEs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.List())
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.Summary())
}

func (h *Handler) statuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Statuses())
}

func (h *Handler) addEVSE(w http.ResponseWriter, r *http.Request) {
	var e model.EVSE
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.reg.Add(e)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) removeEVSE(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Remove(r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transition wraps the single-argument lifecycle operations.
func (h *Handler) transition(op func(string) (model.Status, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := op(r.PathValue("id"))
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
	}
}

func (h *Handler) startCharging(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DurationSec int `json:"duration_sec"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
	}
	snap, err := h.machine.Start(r.PathValue("id"), body.DurationSec)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.Vehicles())
}

func (h *Handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.reg.Vehicle(r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) patchSoC(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SoC *float64 `json:"current_soc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SoC == nil {
		writeError(w, http.StatusBadRequest, "current_soc is required")
		return
	}
	id := r.PathValue("id")
	if err := h.reg.SetVehicleSoC(id, *body.SoC); err != nil {
		h.writeDomainError(w, err)
		return
	}
	v, err := h.reg.Vehicle(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) estimateReservation(w http.ResponseWriter, r *http.Request) {
	evID := r.URL.Query().Get("ev_id")
	evseID := r.URL.Query().Get("evse_id")
	if evID == "" || evseID == "" {
		writeError(w, http.StatusBadRequest, "ev_id and evse_id are required")
		return
	}
	v, err := h.reg.Vehicle(evID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	e, err := h.reg.Get(evseID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate.Estimate(v, e))
}

type reserveRequest struct {
	EVID   string `json:"ev_id"`
	EVSEID string `json:"evse_id"`
}

type reserveResponse struct {
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
}

// reserve mirrors the OCPP ReserveNow answer shape: a rejected
// reservation is a 200 with status "Rejected", not an error status.
func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EVID == "" || req.EVSEID == "" {
		writeError(w, http.StatusBadRequest, "ev_id and evse_id are required")
		return
	}
	res, err := h.machine.Reserve(req.EVID, req.EVSEID)
	if err != nil {
		if rej, ok := lifecycle.IsRejected(err); ok {
			writeJSON(w, http.StatusOK, reserveResponse{Status: "Rejected", Reason: rej.Reason})
			return
		}
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reserveResponse{
		Status:           "Accepted",
		EstimatedMinutes: int(res.EstimatedDuration.Minutes()),
	})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.List())
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.sessions.Snapshot(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "no active session for this EVSE")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) setFocus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EVSEID string `json:"evse_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.EVSEID == "" {
		writeError(w, http.StatusBadRequest, "evse_id is required")
		return
	}
	if !h.sessions.Active(body.EVSEID) {
		writeError(w, http.StatusNotFound, "no active session for this EVSE")
		return
	}
	h.sessions.Focus(body.EVSEID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearFocus(w http.ResponseWriter, r *http.Request) {
	h.sessions.Blur()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getFocus(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Focused()
	if id == "" {
		writeError(w, http.StatusNotFound, "no focused session")
		return
	}
	snap, ok := h.sessions.Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no focused session")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// writeDomainError maps domain errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrNoMatchedVehicle):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		if _, ok := lifecycle.IsRejected(err); ok {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.log.Errorf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
