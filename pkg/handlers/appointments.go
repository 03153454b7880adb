package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/auth"
	"github.com/autodirecto/autodirecto-engine/pkg/jsonutil"
	"github.com/autodirecto/autodirecto-engine/pkg/logging"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
	"github.com/autodirecto/autodirecto-engine/pkg/services"
)

// AppointmentsHandler handles the lead-capture wizard submissions and the
// admin Grid listing.
type AppointmentsHandler struct {
	service  services.AppointmentService // nil when the datastore is not configured
	sessions *auth.SessionStore
	logger   *zap.Logger
}

// NewAppointmentsHandler creates a new AppointmentsHandler.
func NewAppointmentsHandler(service services.AppointmentService, sessions *auth.SessionStore, logger *zap.Logger) *AppointmentsHandler {
	return &AppointmentsHandler{service: service, sessions: sessions, logger: logger}
}

// RegisterRoutes registers the appointment routes on the given mux.
// The wizard POST is public; the Grid listing requires an admin session.
func (h *AppointmentsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/appointments", h.Schedule)
	mux.HandleFunc("GET /api/appointments", auth.RequireAdmin(h.sessions, h.List))
}

// scheduleRequest mirrors the wizard's submission payload. Field names
// are the camelCase keys the form posts.
type scheduleRequest struct {
	FirstName       string               `json:"firstName"`
	LastName        string               `json:"lastName"`
	RUT             string               `json:"rut"`
	CountryCode     string               `json:"countryCode"`
	Phone           string               `json:"phone"`
	Email           string               `json:"email"`
	Region          string               `json:"region"`
	Commune         string               `json:"commune"`
	Address         string               `json:"address"`
	Plate           string               `json:"plate"`
	Mileage         jsonutil.FlexibleInt `json:"mileage"`
	Version         string               `json:"version"`
	AppointmentDate string               `json:"appointmentDate"`
	AppointmentTime string               `json:"appointmentTime"`
	CarData         *carData             `json:"carData"`
}

// carData carries the vehicle descriptor from the plate lookup, when the
// lookup succeeded.
type carData struct {
	Make  string               `json:"make"`
	Model string               `json:"model"`
	Year  jsonutil.FlexibleInt `json:"year"`
}

// Schedule handles POST /api/appointments.
func (h *AppointmentsHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Cuerpo JSON inválido"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// Demo mode: without a datastore the wizard still completes, the
	// record just isn't persisted anywhere.
	if h.service == nil {
		h.logger.Warn("Datastore not configured, returning mock appointment")
		if err := WriteJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"id":         fmt.Sprintf("mock-%d", time.Now().UnixMilli()),
			"message":    "Cita registrada (modo demo)",
			"match_hint": "Datastore no configurado — define DATASTORE_URL y DATASTORE_KEY para activar el matching.",
		}); err != nil {
			h.logger.Error("Failed to write mock response", zap.Error(err))
		}
		return
	}

	appt, err := req.toAppointment()
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_fields", err.Error()); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.service.Schedule(r.Context(), appt); err != nil {
		if errors.Is(err, services.ErrMissingRequiredFields) {
			if err := ErrorResponse(w, http.StatusBadRequest, "missing_fields", "Faltan campos obligatorios"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to schedule appointment",
			zap.String("plate", req.Plate),
			zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Error al guardar la cita"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"id":      appt.ID,
		"message": "Cita agendada exitosamente",
	}); err != nil {
		h.logger.Error("Failed to write schedule response", zap.Error(err))
	}
}

// List handles GET /api/appointments (admin Grid view).
// Supported filters: status, plate, car_make, car_model, name,
// mileage (±5000 km), from, to.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		if err := ErrorResponse(w, http.StatusServiceUnavailable, "service_not_configured",
			"La base de datos compartida no está configurada"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	params := r.URL.Query()
	filter := models.AppointmentFilter{
		Status:   params.Get("status"),
		Plate:    params.Get("plate"),
		CarMake:  params.Get("car_make"),
		CarModel: params.Get("car_model"),
		Name:     params.Get("name"),
		DateFrom: params.Get("from"),
		DateTo:   params.Get("to"),
	}
	if raw := params.Get("mileage"); raw != "" {
		var km int
		if _, err := fmt.Sscanf(raw, "%d", &km); err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_mileage", "El kilometraje debe ser numérico"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.Mileage = &km
	}

	appointments, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list appointments", zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Error interno del servidor"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if appointments == nil {
		appointments = []*models.Appointment{}
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    appointments,
	}); err != nil {
		h.logger.Error("Failed to write list response", zap.Error(err))
	}
}

func (r *scheduleRequest) toAppointment() (*models.Appointment, error) {
	var apptDate time.Time
	if r.AppointmentDate != "" {
		parsed, err := time.Parse("2006-01-02", r.AppointmentDate)
		if err != nil {
			return nil, fmt.Errorf("fecha de cita inválida: se espera YYYY-MM-DD")
		}
		apptDate = parsed
	}

	appt := &models.Appointment{
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		RUT:             optional(r.RUT),
		CountryCode:     r.CountryCode,
		Phone:           r.Phone,
		Email:           optional(r.Email),
		Region:          optional(r.Region),
		Commune:         optional(r.Commune),
		Address:         optional(r.Address),
		Plate:           r.Plate,
		Mileage:         r.Mileage.Value,
		Version:         optional(r.Version),
		AppointmentDate: apptDate,
		AppointmentTime: optional(r.AppointmentTime),
	}

	if r.CarData != nil {
		appt.CarMake = optional(r.CarData.Make)
		appt.CarModel = optional(r.CarData.Model)
		appt.CarYear = r.CarData.Year.Value
	}

	return appt, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
