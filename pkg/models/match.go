package models

import "strings"

// Confidence buckets a numeric match score. Only high and medium
// confidence matches are persisted back onto the appointment.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ConfidenceForScore maps a final score to its confidence tier.
// high: 6+ points (e.g. make+model+year+name)
// medium: 4-5 points (e.g. make+model+name_partial)
// low: 2-3 points
func ConfidenceForScore(score int) Confidence {
	switch {
	case score >= 6:
		return ConfidenceHigh
	case score >= 4:
		return ConfidenceMedium
	case score >= 2:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// MatchQuery is the partial lead descriptor posted by the funnel system.
// Leads arrive from Facebook funnels without a plate, so matching runs on
// whatever contact and vehicle fragments the funnel captured.
type MatchQuery struct {
	Name         string
	CarMake      string
	CarModel     string
	CarYear      *int
	Mileage      *int
	Phone        string
	FunnelLeadID string
}

// HasDiscriminator reports whether the query carries at least one field
// usable to find candidates. Queries without any are rejected before any
// datastore access.
func (q *MatchQuery) HasDiscriminator() bool {
	return q.CarMake != "" || q.CarModel != "" || q.Name != "" || q.Phone != ""
}

// MatchResult is the outcome of one match attempt.
type MatchResult struct {
	Matched             bool
	Confidence          Confidence
	Score               int
	FieldsMatched       []string
	CandidatesEvaluated int
	Appointment         *Appointment
}

// Match signal tags, reported in fields_matched.
const (
	TagCarMake      = "car_make"
	TagCarModel     = "car_model"
	TagCarYearExact = "car_year_exact"
	TagCarYearClose = "car_year_close"
	TagName         = "name"
	TagNamePartial  = "name_partial"
	TagMileageClose = "mileage_close"
	TagMileageRange = "mileage_range"
	TagPhone        = "phone"
)

// NormalizePhone strips whitespace, hyphens and plus signs so phones
// captured as "+56 9 1234-5678" and "56912345678" compare equal.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '+':
			return -1
		}
		return r
	}, phone)
}

// PhoneSuffix returns the trailing 8 characters of the normalized phone,
// the portion stable across country-code and formatting differences.
func PhoneSuffix(phone string) string {
	clean := NormalizePhone(phone)
	if len(clean) <= 8 {
		return clean
	}
	return clean[len(clean)-8:]
}

// ScoreCandidate scores one appointment against the query and returns the
// total with the contributing signal tags. Signals are additive and
// independent; the name and mileage signals award a single tier each.
//
//	make   substring either direction  +2
//	model  substring either direction  +2
//	year   exact +2, off-by-one +1
//	name   containment +2, else shared token +1
//	km     |diff| <= 2000 +2, <= 5000 +1
//	phone  equal 8-char suffix         +3
func ScoreCandidate(q *MatchQuery, c *Appointment) (int, []string) {
	score := 0
	var fields []string

	if q.CarMake != "" && c.CarMake != nil && containsFold(*c.CarMake, q.CarMake) {
		score += 2
		fields = append(fields, TagCarMake)
	}

	if q.CarModel != "" && c.CarModel != nil && containsFold(*c.CarModel, q.CarModel) {
		score += 2
		fields = append(fields, TagCarModel)
	}

	if q.CarYear != nil && c.CarYear != nil {
		yearDiff := abs(*c.CarYear - *q.CarYear)
		if yearDiff == 0 {
			score += 2
			fields = append(fields, TagCarYearExact)
		} else if yearDiff <= 1 {
			score += 1
			fields = append(fields, TagCarYearClose)
		}
	}

	if q.Name != "" && c.FullName != "" {
		if containsFold(c.FullName, q.Name) {
			score += 2
			fields = append(fields, TagName)
		} else if tokensOverlap(q.Name, c.FullName) {
			score += 1
			fields = append(fields, TagNamePartial)
		}
	}

	if q.Mileage != nil && c.Mileage != nil {
		kmDiff := abs(*c.Mileage - *q.Mileage)
		if kmDiff <= 2000 {
			score += 2
			fields = append(fields, TagMileageClose)
		} else if kmDiff <= 5000 {
			score += 1
			fields = append(fields, TagMileageRange)
		}
	}

	if q.Phone != "" && c.Phone != "" && PhoneSuffix(q.Phone) == PhoneSuffix(c.Phone) {
		score += 3
		fields = append(fields, TagPhone)
	}

	return score, fields
}

// containsFold reports whether either string contains the other,
// case-insensitively.
func containsFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}

// tokensOverlap reports whether any whitespace-split token of one name
// contains, or is contained by, a token of the other. Catches first-name
// or last-name only leads.
func tokensOverlap(a, b string) bool {
	aTokens := strings.Fields(strings.ToLower(a))
	bTokens := strings.Fields(strings.ToLower(b))
	for _, at := range aTokens {
		for _, bt := range bTokens {
			if strings.Contains(at, bt) || strings.Contains(bt, at) {
				return true
			}
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
