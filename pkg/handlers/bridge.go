package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/jsonutil"
	"github.com/autodirecto/autodirecto-engine/pkg/logging"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
	"github.com/autodirecto/autodirecto-engine/pkg/services"
)

// BridgeHandler exposes "The Bridge": the endpoint the external funnel
// system calls to reconcile its leads with appointments created here.
type BridgeHandler struct {
	matcher services.MatcherService // nil when the datastore is not configured
	logger  *zap.Logger
}

// NewBridgeHandler creates a new BridgeHandler. Pass a nil matcher to run
// in unconfigured mode, where every request answers 503.
func NewBridgeHandler(matcher services.MatcherService, logger *zap.Logger) *BridgeHandler {
	return &BridgeHandler{matcher: matcher, logger: logger}
}

// RegisterRoutes registers the bridge handler's routes on the given mux.
func (h *BridgeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/bridge/match", h.Match)
}

// matchRequest is the inbound lead descriptor. Funnels are inconsistent
// about numeric fields, so car_year and mileage accept numbers or
// numeric strings.
type matchRequest struct {
	Name         string               `json:"name"`
	CarMake      string               `json:"car_make"`
	CarModel     string               `json:"car_model"`
	CarYear      jsonutil.FlexibleInt `json:"car_year"`
	Mileage      jsonutil.FlexibleInt `json:"mileage"`
	Phone        string               `json:"phone"`
	FunnelLeadID string               `json:"funnel_lead_id"`
}

type matchDetails struct {
	FieldsMatched       []string `json:"fields_matched"`
	CandidatesEvaluated int      `json:"candidates_evaluated"`
}

type matchResponse struct {
	Success      bool                `json:"success"`
	Matched      bool                `json:"matched"`
	Confidence   models.Confidence   `json:"confidence"`
	Score        int                 `json:"score"`
	MatchDetails matchDetails        `json:"match_details"`
	Appointment  *models.Appointment `json:"appointment"`
	Suggestions  string              `json:"suggestions,omitempty"`
}

// Match handles POST /api/bridge/match.
func (h *BridgeHandler) Match(w http.ResponseWriter, r *http.Request) {
	if h.matcher == nil {
		if err := ErrorResponse(w, http.StatusServiceUnavailable, "service_not_configured",
			"La base de datos compartida no está configurada. Define DATASTORE_URL y DATASTORE_KEY."); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Cuerpo JSON inválido"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	query := &models.MatchQuery{
		Name:         req.Name,
		CarMake:      req.CarMake,
		CarModel:     req.CarModel,
		CarYear:      req.CarYear.Value,
		Mileage:      req.Mileage.Value,
		Phone:        req.Phone,
		FunnelLeadID: req.FunnelLeadID,
	}

	result, err := h.matcher.Match(r.Context(), query)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFields) {
			if err := ErrorResponse(w, http.StatusBadRequest, "insufficient_fields",
				"Se necesita al menos: car_make, car_model, name o phone para buscar coincidencia"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		h.logger.Error("Match attempt failed",
			zap.String("funnel_lead_id", req.FunnelLeadID),
			zap.String("phone", logging.MaskPhone(req.Phone)),
			zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error",
			"Error interno del servidor"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := matchResponse{
		Success:    true,
		Matched:    result.Matched,
		Confidence: result.Confidence,
		Score:      result.Score,
		MatchDetails: matchDetails{
			FieldsMatched:       result.FieldsMatched,
			CandidatesEvaluated: result.CandidatesEvaluated,
		},
		Appointment: result.Appointment,
	}
	if response.MatchDetails.FieldsMatched == nil {
		response.MatchDetails.FieldsMatched = []string{}
	}
	if result.Appointment == nil {
		response.Suggestions = "No se encontró coincidencia. Verifica: nombre, marca, modelo, año o kilometraje del auto."
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write match response", zap.Error(err))
	}
}
