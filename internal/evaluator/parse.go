package evaluator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/scoring"
)

var (
	errNoJSONObject   = errors.New("no JSON object in response")
	errMalformedScore = errors.New("score missing or not a number")
)

type rawEvaluation struct {
	Score          json.RawMessage `json:"score"`
	Feedback       string          `json:"feedback"`
	Reasoning      string          `json:"reasoning"`
	ScoreBreakdown *struct {
		Correctness  json.RawMessage `json:"correctness"`
		Completeness json.RawMessage `json:"completeness"`
		Clarity      json.RawMessage `json:"clarity"`
	} `json:"score_breakdown"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Suggestions  []string `json:"suggestions"`
}

// firstJSONObject returns the first balanced {...} in s, honouring string literals
// so braces inside quoted text do not count.
func firstJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errNoJSONObject
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}

// parseEvaluation decodes a model response into an evaluation clamped to [0, maxPoints].
func parseEvaluation(raw string, maxPoints float64) (scoring.Evaluation, error) {
	obj, err := firstJSONObject(raw)
	if err != nil {
		return scoring.Evaluation{}, err
	}
	var parsed rawEvaluation
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return scoring.Evaluation{}, fmt.Errorf("decode evaluation JSON: %w", err)
	}
	score, ok := number(parsed.Score)
	if !ok {
		return scoring.Evaluation{}, errMalformedScore
	}

	ev := scoring.Evaluation{
		Points:       scoring.Clamp(score, maxPoints),
		Feedback:     strings.TrimSpace(parsed.Feedback),
		Reasoning:    strings.TrimSpace(parsed.Reasoning),
		Strengths:    parsed.Strengths,
		Improvements: parsed.Improvements,
		Suggestions:  parsed.Suggestions,
		Source:       model.EvaluatedByExternalService,
	}
	if ev.Feedback == "" {
		ev.Feedback = "No feedback available."
	}
	if bd := parsed.ScoreBreakdown; bd != nil {
		ev.Breakdown = &scoring.Breakdown{
			Correctness:  subScore(bd.Correctness, maxPoints),
			Completeness: subScore(bd.Completeness, maxPoints),
			Clarity:      subScore(bd.Clarity, maxPoints),
		}
	}
	return ev, nil
}

func subScore(raw json.RawMessage, maxPoints float64) *float64 {
	v, ok := number(raw)
	if !ok {
		return nil
	}
	clamped := scoring.Clamp(v, maxPoints)
	return &clamped
}

// number accepts a JSON number or a numeric string.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
