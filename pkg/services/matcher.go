package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/apperrors"
	"github.com/autodirecto/autodirecto-engine/pkg/logging"
	"github.com/autodirecto/autodirecto-engine/pkg/models"
	"github.com/autodirecto/autodirecto-engine/pkg/repositories"
)

// MatcherService reconciles inbound funnel leads with appointment records.
// Candidates are retrieved through a cascade of strategies and scored with
// the fuzzy multi-field rules in models.ScoreCandidate; high and medium
// confidence matches are linked back onto the winning record.
type MatcherService interface {
	Match(ctx context.Context, query *models.MatchQuery) (*models.MatchResult, error)
}

type matcherService struct {
	repo       repositories.AppointmentRepository
	strategies []candidateStrategy
	logger     *zap.Logger
}

// candidateStrategy is one step of the retrieval cascade. Strategies run
// in order; the first eligible strategy returning any candidates wins and
// later ones are never consulted (results are not merged).
type candidateStrategy struct {
	name     string
	eligible func(q *models.MatchQuery) bool
	fetch    func(ctx context.Context, q *models.MatchQuery) ([]*models.Appointment, error)
}

// NewMatcherService creates a new MatcherService.
func NewMatcherService(repo repositories.AppointmentRepository, logger *zap.Logger) MatcherService {
	s := &matcherService{
		repo:   repo,
		logger: logger.Named("matcher"),
	}
	s.strategies = []candidateStrategy{
		{
			name:     "phone",
			eligible: func(q *models.MatchQuery) bool { return q.Phone != "" },
			fetch: func(ctx context.Context, q *models.MatchQuery) ([]*models.Appointment, error) {
				return repo.FindByPhoneSuffix(ctx, models.PhoneSuffix(q.Phone))
			},
		},
		{
			name:     "car",
			eligible: func(q *models.MatchQuery) bool { return q.CarMake != "" || q.CarModel != "" },
			fetch: func(ctx context.Context, q *models.MatchQuery) ([]*models.Appointment, error) {
				return repo.FindUnmatchedByCar(ctx, q.CarMake, q.CarModel)
			},
		},
		{
			name:     "name",
			eligible: func(q *models.MatchQuery) bool { return q.Name != "" },
			fetch: func(ctx context.Context, q *models.MatchQuery) ([]*models.Appointment, error) {
				return repo.FindUnmatchedByName(ctx, q.Name)
			},
		},
	}
	return s
}

var _ MatcherService = (*matcherService)(nil)

func (s *matcherService) Match(ctx context.Context, query *models.MatchQuery) (*models.MatchResult, error) {
	if !query.HasDiscriminator() {
		return nil, apperrors.ErrInsufficientFields
	}

	candidates, err := s.retrieveCandidates(ctx, query)
	if err != nil {
		return nil, err
	}

	var best *models.Appointment
	bestScore := 0
	var bestFields []string

	for _, candidate := range candidates {
		score, fields := models.ScoreCandidate(query, candidate)
		// Strict comparison: an equal-scoring later candidate never
		// displaces an earlier one.
		if score > bestScore {
			bestScore = score
			best = candidate
			bestFields = fields
		}
	}

	confidence := models.ConfidenceForScore(bestScore)

	result := &models.MatchResult{
		Matched:             best != nil && confidence != models.ConfidenceNone,
		Confidence:          confidence,
		Score:               bestScore,
		FieldsMatched:       bestFields,
		CandidatesEvaluated: len(candidates),
		Appointment:         best,
	}

	s.linkIfConfident(ctx, query, result)

	return result, nil
}

// retrieveCandidates walks the strategy cascade. A query error aborts the
// whole attempt: no partial candidate set is ever scored.
func (s *matcherService) retrieveCandidates(ctx context.Context, query *models.MatchQuery) ([]*models.Appointment, error) {
	for _, strategy := range s.strategies {
		if !strategy.eligible(query) {
			continue
		}

		candidates, err := strategy.fetch(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("%s strategy failed: %w", strategy.name, err)
		}
		if len(candidates) > 0 {
			s.logger.Debug("Candidate strategy hit",
				zap.String("strategy", strategy.name),
				zap.Int("candidates", len(candidates)))
			return candidates, nil
		}
	}

	return nil, nil
}

// linkIfConfident persists the match link when the best candidate cleared
// the medium-confidence bar and the lead carries a funnel id. The link is
// fire-and-forget; a persistence failure is logged and the returned
// record keeps its stored, unlinked state so the response never claims a
// link the datastore does not have.
func (s *matcherService) linkIfConfident(ctx context.Context, query *models.MatchQuery, result *models.MatchResult) {
	if result.Appointment == nil || query.FunnelLeadID == "" {
		return
	}
	if result.Confidence != models.ConfidenceHigh && result.Confidence != models.ConfidenceMedium {
		return
	}

	if err := s.repo.LinkFunnelLead(ctx, result.Appointment.ID, query.FunnelLeadID); err != nil {
		s.logger.Error("Failed to persist match link",
			zap.String("appointment_id", result.Appointment.ID.String()),
			zap.String("funnel_lead_id", query.FunnelLeadID),
			zap.String("error", logging.SanitizeError(err)))
		return
	}

	funnelID := query.FunnelLeadID
	result.Appointment.Matched = true
	result.Appointment.MatchedFunnelID = &funnelID
	result.Appointment.Status = models.StatusAgendado
}
