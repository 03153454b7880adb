package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/config"
	"github.com/autodirecto/autodirecto-engine/pkg/logging"
)

// quotesTimeout bounds one round trip to the quoting service.
const quotesTimeout = 15 * time.Second

// QuotesHandler forwards quote and plate-lookup requests to the MrCar
// service. MrCar only answers requests that look like they came from its
// own frontend, so the forwarded request mimics a browser. Upstream
// payloads are validated as JSON before being relayed.
type QuotesHandler struct {
	cfg        *config.QuotesConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewQuotesHandler creates a new QuotesHandler.
func NewQuotesHandler(cfg *config.QuotesConfig, logger *zap.Logger) *QuotesHandler {
	return &QuotesHandler{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: quotesTimeout},
		logger:     logger,
	}
}

// RegisterRoutes registers the quotes routes on the given mux.
func (h *QuotesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quotes/{path...}", h.Forward)
	mux.HandleFunc("POST /api/quotes/{path...}", h.Forward)
}

// Forward relays the request to MrCar and the JSON answer back.
func (h *QuotesHandler) Forward(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimRight(h.cfg.BaseURL, "/") + "/" + r.PathValue("path")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body io.Reader
	if r.Method == http.MethodPost {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil || !json.Valid(raw) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Cuerpo JSON inválido"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		h.logger.Error("Failed to build upstream request", zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Error interno del servidor"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	h.setUpstreamHeaders(req)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn("Quoting service unreachable",
			zap.String("target", target),
			zap.String("error", logging.SanitizeError(err)))
		if err := ErrorResponse(w, http.StatusBadGateway, "upstream_unreachable", "Proxy Connection Failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadGateway, "upstream_read_failed", "Proxy Connection Failed"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !json.Valid(payload) {
		h.logger.Warn("Quoting service returned non-JSON payload",
			zap.String("target", target),
			zap.Int("status", resp.StatusCode))
		if err := ErrorResponse(w, http.StatusBadGateway, "upstream_invalid",
			"Invalid response from upstream server (not JSON)"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("Failed to relay upstream payload", zap.Error(err))
	}
}

// setUpstreamHeaders mimics the MrCar frontend; the upstream rejects
// requests without a matching Origin/Referer pair.
func (h *QuotesHandler) setUpstreamHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	if u, err := url.Parse(h.cfg.BaseURL); err == nil {
		origin := u.Scheme + "://" + u.Host
		req.Header.Set("Origin", origin)
		req.Header.Set("Referer", origin+"/")
	}
}
