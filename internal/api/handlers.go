// Package api provides HTTP handlers for AshaSetu endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ashasetu/ashasetu/internal/models"
	"github.com/ashasetu/ashasetu/internal/util"
)

// addPatientRequest is the enrollment payload. The LMP date arrives as a
// plain calendar date.
type addPatientRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Language string `json:"language"`
	LMPDate  string `json:"lmp_date"`
}

func (s *Server) patientsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.listPatients(w, r)
	case http.MethodPost:
		s.addPatient(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.patientsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := s.store.ListPatients()
	if err != nil {
		slog.Error("Server.listPatients: failed to list patients", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list patients"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(patients))
}

func (s *Server) addPatient(w http.ResponseWriter, r *http.Request) {
	var req addPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addPatient: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	lmp, err := time.Parse("2006-01-02", req.LMPDate)
	if err != nil {
		slog.Warn("Server.addPatient: invalid LMP date", "error", err, "lmp_date", req.LMPDate)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid lmp_date, expected YYYY-MM-DD"))
		return
	}

	p := models.Patient{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Phone:     util.FormatPhone(req.Phone),
		Language:  models.NormalizeLanguage(req.Language),
		LMPDate:   lmp,
		Status:    models.PatientStatusActive,
		CreatedAt: time.Now(),
	}
	if err := p.Validate(); err != nil {
		slog.Warn("Server.addPatient: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if err := s.store.AddPatient(p); err != nil {
		slog.Error("Server.addPatient: failed to store patient", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store patient"))
		return
	}
	slog.Info("Server.addPatient: patient enrolled", "patientID", p.ID, "language", p.Language)
	writeJSONResponse(w, http.StatusCreated, models.Success(p))
}

// triggerCallHandler places an immediate IVR call to one patient, bypassing
// the dedup gate. It backs the "call now" button of the admin surface.
func (s *Server) triggerCallHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.triggerCallHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		PatientID string `json:"patient_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.triggerCallHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.PatientID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("patient_id is required"))
		return
	}

	p, err := s.store.GetPatient(req.PatientID)
	if err != nil {
		if errors.Is(err, models.ErrPatientNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Patient not found"))
			return
		}
		slog.Error("Server.triggerCallHandler: failed to load patient", "error", err, "patientID", req.PatientID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load patient"))
		return
	}

	sid, err := s.dispatcher.DispatchCallTo(r.Context(), *p, time.Now())
	if err != nil {
		slog.Error("Server.triggerCallHandler: call dispatch failed", "error", err, "patientID", p.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to place call"))
		return
	}
	slog.Info("Server.triggerCallHandler: call placed", "patientID", p.ID, "sid", sid)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"call_sid": sid}))
}

func (s *Server) dispatchCallsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.dispatchCallsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, err := s.dispatcher.RunCallBatch(r.Context(), time.Now())
	if err != nil {
		slog.Error("Server.dispatchCallsHandler: call batch failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Call batch failed"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) dispatchMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.dispatchMessagesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	result, err := s.dispatcher.RunMessageBatch(r.Context(), time.Now())
	if err != nil {
		slog.Error("Server.dispatchMessagesHandler: message batch failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Message batch failed"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.alertsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	alerts, err := s.store.ListPendingAlerts()
	if err != nil {
		slog.Error("Server.alertsHandler: failed to list alerts", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list alerts"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(alerts))
}

func (s *Server) alertAckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.alertAckHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.alertAckHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("id is required"))
		return
	}

	if err := s.store.AcknowledgeAlert(req.ID); err != nil {
		if errors.Is(err, models.ErrAlertNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Alert not found"))
			return
		}
		slog.Error("Server.alertAckHandler: failed to acknowledge alert", "error", err, "alertID", req.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to acknowledge alert"))
		return
	}
	slog.Info("Server.alertAckHandler: alert acknowledged", "alertID", req.ID)
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}
