package scoring

import (
	"context"
	"strings"

	"github.com/lshigami/quizcore/internal/model"
)

const (
	FeedbackNoAnswer        = "No answer provided."
	FeedbackExactMatch      = "Answer matches an accepted answer."
	FeedbackInvalidCriteria = "Invalid evaluation criteria."
	FeedbackExcellent       = "Excellent answer! All key points covered."
	FeedbackGood            = "Good answer. You covered most key points but could be more complete."
	FeedbackIncomplete      = "Incomplete answer. Many key points are missing."
	FeedbackNoKeyPoints     = "Answer does not cover any of the key points."
)

// KeywordPolicy is the offline fallback: the share of keywords present in the answer
// is mapped onto three coarse payouts.
type KeywordPolicy struct {
	FullRatio      float64
	PartialRatio   float64
	FullPercent    float64
	PartialPercent float64
	LowPercent     float64
}

func DefaultKeywordPolicy() KeywordPolicy {
	return KeywordPolicy{
		FullRatio:      0.8,
		PartialRatio:   0.5,
		FullPercent:    100,
		PartialPercent: 60,
		LowPercent:     20,
	}
}

// PercentFor maps a match ratio onto a payout. A ratio of zero pays nothing.
func (p KeywordPolicy) PercentFor(ratio float64) float64 {
	switch {
	case ratio <= 0:
		return 0
	case ratio >= p.FullRatio:
		return p.FullPercent
	case ratio >= p.PartialRatio:
		return p.PartialPercent
	default:
		return p.LowPercent
	}
}

func (p KeywordPolicy) feedbackFor(ratio float64) string {
	switch {
	case ratio <= 0:
		return FeedbackNoKeyPoints
	case ratio >= p.FullRatio:
		return FeedbackExcellent
	case ratio >= p.PartialRatio:
		return FeedbackGood
	default:
		return FeedbackIncomplete
	}
}

// Evaluate lets the policy stand in as a FreeTextEvaluator when no external
// service is configured.
func (p KeywordPolicy) Evaluate(_ context.Context, req FreeTextRequest) Evaluation {
	return p.Score(req)
}

// Score never calls out. With no keywords the result is flagged Unavailable.
func (p KeywordPolicy) Score(req FreeTextRequest) Evaluation {
	ev := Evaluation{Source: model.EvaluatedByFallbackKeyword}

	answer := strings.ToLower(strings.TrimSpace(req.Answer))
	if answer == "" {
		ev.Feedback = FeedbackNoAnswer
		return ev
	}

	keywords := Keywords(req.Keywords, req.Guidance)
	ev.KeywordsTotal = len(keywords)
	if len(keywords) == 0 {
		ev.Feedback = FeedbackInvalidCriteria
		ev.Unavailable = true
		return ev
	}

	for _, kw := range keywords {
		if strings.Contains(answer, kw) {
			ev.KeywordsMatched++
		}
	}
	ratio := float64(ev.KeywordsMatched) / float64(ev.KeywordsTotal)

	ev.Percent = p.PercentFor(ratio)
	ev.Points = PointsForPercent(ev.Percent, req.MaxPoints)
	ev.Feedback = p.feedbackFor(ratio)
	return ev
}

// Keywords returns the lowercase, de-duplicated keyword set. Accepted answers win;
// the guidance is split on commas only when there are none.
func Keywords(accepted []string, guidance string) []string {
	var raw []string
	for _, a := range accepted {
		raw = append(raw, strings.Split(a, ",")...)
	}
	if len(nonBlank(raw)) == 0 {
		raw = strings.Split(guidance, ",")
	}

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
