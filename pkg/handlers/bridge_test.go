package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
)

func postMatch(t *testing.T, h *BridgeHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/bridge/match", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Match(rec, req)
	return rec
}

func TestBridgeMatchNotConfigured(t *testing.T) {
	h := NewBridgeHandler(nil, zap.NewNop())

	rec := postMatch(t, h, `{"car_make":"Toyota"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "service_not_configured", body["error"])
}

func TestBridgeMatchInvalidBody(t *testing.T) {
	h := NewBridgeHandler(&mockMatcherService{}, zap.NewNop())

	rec := postMatch(t, h, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBridgeMatchInsufficientFields(t *testing.T) {
	matcher := &mockMatcherService{err: apperrors.ErrInsufficientFields}
	h := NewBridgeHandler(matcher, zap.NewNop())

	rec := postMatch(t, h, `{"car_year":2020}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_fields", body["error"])
}

func TestBridgeMatchRetrievalFailure(t *testing.T) {
	matcher := &mockMatcherService{err: errors.New("phone strategy failed: broken")}
	h := NewBridgeHandler(matcher, zap.NewNop())

	rec := postMatch(t, h, `{"car_make":"Toyota"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBridgeMatchSuccess(t *testing.T) {
	appt := &models.Appointment{ID: uuid.New(), FullName: "Juan Pérez"}
	matcher := &mockMatcherService{result: &models.MatchResult{
		Matched:             true,
		Confidence:          models.ConfidenceHigh,
		Score:               8,
		FieldsMatched:       []string{models.TagCarMake, models.TagCarModel, models.TagCarYearExact, models.TagName},
		CandidatesEvaluated: 3,
		Appointment:         appt,
	}}
	h := NewBridgeHandler(matcher, zap.NewNop())

	rec := postMatch(t, h, `{"name":"Juan Pérez","car_make":"Toyota","car_model":"Corolla","car_year":2020,"funnel_lead_id":"abc123"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success      bool              `json:"success"`
		Matched      bool              `json:"matched"`
		Confidence   models.Confidence `json:"confidence"`
		Score        int               `json:"score"`
		MatchDetails struct {
			FieldsMatched       []string `json:"fields_matched"`
			CandidatesEvaluated int      `json:"candidates_evaluated"`
		} `json:"match_details"`
		Appointment *models.Appointment `json:"appointment"`
		Suggestions string              `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.True(t, body.Matched)
	assert.Equal(t, models.ConfidenceHigh, body.Confidence)
	assert.Equal(t, 8, body.Score)
	assert.Len(t, body.MatchDetails.FieldsMatched, 4)
	assert.Equal(t, 3, body.MatchDetails.CandidatesEvaluated)
	require.NotNil(t, body.Appointment)
	assert.Equal(t, appt.ID, body.Appointment.ID)
	assert.Empty(t, body.Suggestions)

	// Flexible year decoding landed in the query.
	require.NotNil(t, matcher.lastQuery.CarYear)
	assert.Equal(t, 2020, *matcher.lastQuery.CarYear)
	assert.Equal(t, "abc123", matcher.lastQuery.FunnelLeadID)
}

func TestBridgeMatchAcceptsNumericStrings(t *testing.T) {
	matcher := &mockMatcherService{result: &models.MatchResult{Confidence: models.ConfidenceNone}}
	h := NewBridgeHandler(matcher, zap.NewNop())

	rec := postMatch(t, h, `{"car_make":"Toyota","car_year":"2020","mileage":" 50000 "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, matcher.lastQuery.CarYear)
	assert.Equal(t, 2020, *matcher.lastQuery.CarYear)
	require.NotNil(t, matcher.lastQuery.Mileage)
	assert.Equal(t, 50000, *matcher.lastQuery.Mileage)
}

func TestBridgeMatchNoMatchIncludesSuggestions(t *testing.T) {
	matcher := &mockMatcherService{result: &models.MatchResult{
		Matched:    false,
		Confidence: models.ConfidenceNone,
	}}
	h := NewBridgeHandler(matcher, zap.NewNop())

	rec := postMatch(t, h, `{"car_make":"Mazda"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["matched"])
	assert.Equal(t, "none", body["confidence"])
	assert.Equal(t, float64(0), body["score"])
	assert.Nil(t, body["appointment"])
	assert.NotEmpty(t, body["suggestions"])

	// fields_matched serializes as an empty array, not null.
	details := body["match_details"].(map[string]any)
	fields, ok := details["fields_matched"].([]any)
	require.True(t, ok)
	assert.Empty(t, fields)
}
