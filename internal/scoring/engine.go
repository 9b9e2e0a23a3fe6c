// Package scoring turns a question and a submitted answer into points and a verdict.
// Choice questions are scored here directly; free text is delegated to a FreeTextEvaluator.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lshigami/quizcore/internal/model"
)

var ErrMalformedQuestion = errors.New("malformed question")

// Kind is the closed set of question shapes. Each variant carries only what its
// scoring rule needs.
type Kind interface {
	Type() model.QuestionType
}

type SingleChoice struct {
	Options []string
	Correct string
}

func (SingleChoice) Type() model.QuestionType { return model.QuestionTypeSingleChoice }

type MultipleChoice struct {
	Options []string
	Correct []string
}

func (MultipleChoice) Type() model.QuestionType { return model.QuestionTypeMultipleChoice }

type FreeText struct {
	Guidance string
	// Accepted doubles as literal accepted answers and as fallback keywords.
	Accepted []string
}

func (FreeText) Type() model.QuestionType { return model.QuestionTypeFreeText }

type Question struct {
	ID     uint
	Text   string
	Points float64
	Kind   Kind
}

// FromModel converts a stored question into its scoring shape.
func FromModel(q *model.Question) (Question, error) {
	out := Question{ID: q.ID, Text: q.Text, Points: q.Points}
	if q.Points <= 0 {
		return out, fmt.Errorf("%w: question %d has non-positive points", ErrMalformedQuestion, q.ID)
	}
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		if len(q.CorrectAnswers) != 1 {
			return out, fmt.Errorf("%w: single choice question %d needs exactly one correct answer, has %d", ErrMalformedQuestion, q.ID, len(q.CorrectAnswers))
		}
		out.Kind = SingleChoice{Options: q.Options, Correct: q.CorrectAnswers[0]}
	case model.QuestionTypeMultipleChoice:
		if len(q.CorrectAnswers) == 0 {
			return out, fmt.Errorf("%w: multiple choice question %d has no correct answers", ErrMalformedQuestion, q.ID)
		}
		out.Kind = MultipleChoice{Options: q.Options, Correct: q.CorrectAnswers}
	case model.QuestionTypeFreeText:
		out.Kind = FreeText{Guidance: q.EvaluationGuidance, Accepted: q.CorrectAnswers}
	default:
		return out, fmt.Errorf("%w: question %d has unknown type %q", ErrMalformedQuestion, q.ID, q.Type)
	}
	return out, nil
}

// Outcome is the score of one question. Evaluation is set for free text only.
type Outcome struct {
	Points     float64
	MaxPoints  float64
	Verdict    model.Verdict
	Evaluation *Evaluation
}

// Breakdown holds the sub-scores the evaluator reported. A nil field was missing
// or not numeric.
type Breakdown struct {
	Correctness  *float64
	Completeness *float64
	Clarity      *float64
}

// Evaluation describes how a free-text answer was judged.
type Evaluation struct {
	Points          float64
	Percent         float64
	Feedback        string
	Reasoning       string
	Breakdown       *Breakdown
	Strengths       []string
	Improvements    []string
	Suggestions     []string
	Source          model.EvaluationSource
	ModelVersion    string
	Unavailable     bool
	KeywordsTotal   int
	KeywordsMatched int
}

type FreeTextRequest struct {
	QuestionID   uint
	QuestionText string
	Answer       string
	Guidance     string
	Keywords     []string
	MaxPoints    float64
}

// FreeTextEvaluator never fails: failures degrade into a fallback Evaluation.
type FreeTextEvaluator interface {
	Evaluate(ctx context.Context, req FreeTextRequest) Evaluation
}

type Option func(*Engine)

// WithPartialCredit awards multiple choice answers proportionally when no wrong
// option is selected. Off by default.
func WithPartialCredit(enabled bool) Option {
	return func(e *Engine) { e.partialCredit = enabled }
}

type Engine struct {
	freeText      FreeTextEvaluator
	partialCredit bool
}

// NewEngine builds an engine. A nil evaluator scores free text with the default
// keyword policy only.
func NewEngine(freeText FreeTextEvaluator, opts ...Option) *Engine {
	if freeText == nil {
		freeText = DefaultKeywordPolicy()
	}
	e := &Engine{freeText: freeText}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Score(ctx context.Context, q Question, answer []string) Outcome {
	switch k := q.Kind.(type) {
	case SingleChoice:
		return scoreSingle(k, q.Points, answer)
	case MultipleChoice:
		return scoreMultiple(k, q.Points, answer, e.partialCredit)
	case FreeText:
		return e.scoreFreeText(ctx, q, k, answer)
	default:
		return Outcome{MaxPoints: q.Points, Verdict: model.VerdictIncorrect}
	}
}

func scoreSingle(k SingleChoice, points float64, answer []string) Outcome {
	selected := nonBlank(answer)
	if len(selected) == 0 {
		return Outcome{MaxPoints: points, Verdict: model.VerdictUnanswered}
	}
	if len(selected) == 1 && selected[0] == k.Correct {
		return Outcome{Points: points, MaxPoints: points, Verdict: model.VerdictCorrect}
	}
	return Outcome{MaxPoints: points, Verdict: model.VerdictIncorrect}
}

func scoreMultiple(k MultipleChoice, points float64, answer []string, partial bool) Outcome {
	selected := toSet(nonBlank(answer))
	if len(selected) == 0 {
		return Outcome{MaxPoints: points, Verdict: model.VerdictUnanswered}
	}
	correct := toSet(k.Correct)
	if setEqual(selected, correct) {
		return Outcome{Points: points, MaxPoints: points, Verdict: model.VerdictCorrect}
	}
	if !partial {
		return Outcome{MaxPoints: points, Verdict: model.VerdictIncorrect}
	}
	hits := 0
	for s := range selected {
		if _, ok := correct[s]; !ok {
			return Outcome{MaxPoints: points, Verdict: model.VerdictIncorrect}
		}
		hits++
	}
	return Outcome{
		Points:    points * float64(hits) / float64(len(correct)),
		MaxPoints: points,
		Verdict:   model.VerdictPartial,
	}
}

func (e *Engine) scoreFreeText(ctx context.Context, q Question, k FreeText, answer []string) Outcome {
	text := strings.TrimSpace(strings.Join(answer, " "))
	if text == "" {
		return Outcome{
			MaxPoints:  q.Points,
			Verdict:    model.VerdictUnanswered,
			Evaluation: &Evaluation{Feedback: FeedbackNoAnswer, Source: model.EvaluatedByFallbackKeyword},
		}
	}
	for _, accepted := range k.Accepted {
		if strings.EqualFold(text, strings.TrimSpace(accepted)) {
			return freeTextOutcome(q.Points, Evaluation{
				Points:   q.Points,
				Feedback: FeedbackExactMatch,
				Source:   model.EvaluatedByFallbackKeyword,
			})
		}
	}

	ev := e.freeText.Evaluate(ctx, FreeTextRequest{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		Answer:       text,
		Guidance:     k.Guidance,
		Keywords:     k.Accepted,
		MaxPoints:    q.Points,
	})
	return freeTextOutcome(q.Points, ev)
}

func freeTextOutcome(maxPoints float64, ev Evaluation) Outcome {
	ev.Points = Clamp(ev.Points, maxPoints)
	if maxPoints > 0 {
		ev.Percent = ev.Points / maxPoints * 100
	}
	verdict := model.VerdictPartial
	switch {
	case ev.Points >= maxPoints:
		verdict = model.VerdictCorrect
	case ev.Points == 0:
		verdict = model.VerdictIncorrect
	}
	return Outcome{Points: ev.Points, MaxPoints: maxPoints, Verdict: verdict, Evaluation: &ev}
}

// Clamp bounds v to [0, limit]. NaN becomes 0.
func Clamp(v, limit float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

// PointsForPercent converts a 0..100 percentage of maxPoints into points.
func PointsForPercent(percent, maxPoints float64) float64 {
	return Clamp(percent/100*maxPoints, maxPoints)
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
