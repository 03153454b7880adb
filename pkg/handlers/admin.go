package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/auth"
	"github.com/autodirecto/autodirecto-engine/pkg/crm"
	"github.com/autodirecto/autodirecto-engine/pkg/logging"
)

// AdminHandler manages the admin session: login validated against
// SimplyAPI, logout clears the cookie.
type AdminHandler struct {
	crm      *crm.Client
	sessions *auth.SessionStore
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(crmClient *crm.Client, sessions *auth.SessionStore, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{crm: crmClient, sessions: sessions, logger: logger}
}

// RegisterRoutes registers the admin routes on the given mux.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/login", h.Login)
	mux.HandleFunc("POST /api/admin/logout", h.Logout)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/admin/login.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_credentials", "Email y contraseña requeridos"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.crm.ValidateCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_credentials", "Credenciales inválidas"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if errors.Is(err, apperrors.ErrUpstreamUnavailable) {
			if err := ErrorResponse(w, http.StatusServiceUnavailable, "crm_unavailable",
				"SimplyAPI no disponible. Asegúrate de que esté corriendo."); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Admin login failed",
			zap.String("email", logging.MaskEmail(req.Email)),
			zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Error interno del servidor"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.sessions.SignIn(r, w, user.Email, user.Name); err != nil {
		h.logger.Error("Failed to save admin session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "session_error", "No se pudo iniciar la sesión"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	h.logger.Info("Admin login", zap.String("email", logging.MaskEmail(user.Email)))
	if err := WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "user": user}); err != nil {
		h.logger.Error("Failed to write login response", zap.Error(err))
	}
}

// Logout handles POST /api/admin/logout.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r, w); err != nil {
		h.logger.Error("Failed to clear admin session", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "session_error", "No se pudo cerrar la sesión"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, map[string]any{"ok": true}); err != nil {
		h.logger.Error("Failed to write logout response", zap.Error(err))
	}
}
