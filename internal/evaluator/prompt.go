package evaluator

import (
	"fmt"
	"strings"

	"github.com/lshigami/quizcore/internal/scoring"
)

// BuildPrompt asks the model for a strict JSON verdict on one free-text answer.
func BuildPrompt(req scoring.FreeTextRequest) string {
	maxScore := formatPoints(req.MaxPoints)
	criteria := strings.TrimSpace(req.Guidance)
	if criteria == "" {
		criteria = strings.Join(req.Keywords, ", ")
	}
	if criteria == "" {
		criteria = "(none provided, judge on correctness and completeness)"
	}

	var b strings.Builder
	b.WriteString("You are an expert educational evaluator specialized in assessing student answers.\n\n")
	b.WriteString("QUESTION:\n")
	b.WriteString(req.QuestionText)
	b.WriteString("\n\nSTUDENT'S ANSWER:\n---\n")
	b.WriteString(req.Answer)
	b.WriteString("\n---\n\nEVALUATION CRITERIA / KEY POINTS:\n")
	b.WriteString(criteria)
	b.WriteString(fmt.Sprintf("\n\nMAXIMUM SCORE: %s points\n\n", maxScore))

	b.WriteString("EVALUATION GUIDELINES:\n")
	b.WriteString("1. Correctness: Is the answer factually correct?\n")
	b.WriteString("2. Completeness: Does the answer address all aspects of the question?\n")
	b.WriteString("3. Clarity: Is the explanation clear and well-structured?\n")
	b.WriteString("4. Understanding: Does the answer show understanding rather than memorization?\n\n")

	b.WriteString(fmt.Sprintf(`Return ONLY a JSON object, no markdown and no text around it, in exactly this shape:
{
  "score": <number between 0 and %[1]s>,
  "feedback": "<feedback addressed to the student>",
  "reasoning": "<why this score was assigned>",
  "score_breakdown": {
    "correctness": <0-%[1]s>,
    "completeness": <0-%[1]s>,
    "clarity": <0-%[1]s>
  },
  "strengths": ["<specific strength>", "..."],
  "improvements": ["<specific area to improve>", "..."],
  "suggestions": ["<actionable suggestion>", "..."]
}
`, maxScore))
	return b.String()
}

func formatPoints(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%.2f", p)
}
