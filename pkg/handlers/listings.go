package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/logging"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
	"github.com/autodirecto/autodirecto-engine/pkg/repositories"
)

// ListingsHandler serves the catalog data consumed by the site.
type ListingsHandler struct {
	repo   repositories.ListingRepository // nil when the datastore is not configured
	logger *zap.Logger
}

// NewListingsHandler creates a new ListingsHandler.
func NewListingsHandler(repo repositories.ListingRepository, logger *zap.Logger) *ListingsHandler {
	return &ListingsHandler{repo: repo, logger: logger}
}

// RegisterRoutes registers the listings routes on the given mux.
func (h *ListingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/listings", h.List)
	mux.HandleFunc("GET /api/listings/{id}", h.Get)
}

// List handles GET /api/listings: all available catalog vehicles,
// newest first.
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.notConfigured(w)
		return
	}

	listings, err := h.repo.ListAvailable(r.Context())
	if err != nil {
		h.logger.Error("Failed to list catalog", zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Error interno del servidor"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if listings == nil {
		listings = []*models.Listing{}
	}
	if err := WriteJSON(w, http.StatusOK, listings); err != nil {
		h.logger.Error("Failed to write listings response", zap.Error(err))
	}
}

// Get handles GET /api/listings/{id}.
func (h *ListingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		h.notConfigured(w)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Identificador inválido"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	listing, err := h.repo.GetAvailableByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Vehículo no encontrado"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to get listing",
			zap.String("id", id.String()),
			zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Error interno del servidor"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, listing); err != nil {
		h.logger.Error("Failed to write listing response", zap.Error(err))
	}
}

func (h *ListingsHandler) notConfigured(w http.ResponseWriter) {
	if err := ErrorResponse(w, http.StatusServiceUnavailable, "service_not_configured",
		"La base de datos compartida no está configurada"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
