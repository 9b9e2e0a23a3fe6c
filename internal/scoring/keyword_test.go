package scoring

import (
	"reflect"
	"testing"
)

func TestKeywordPolicy_PercentBreakpoints(t *testing.T) {
	p := DefaultKeywordPolicy()
	tests := []struct {
		ratio float64
		want  float64
	}{
		{ratio: 1.0, want: 100},
		{ratio: 0.8, want: 100},
		{ratio: 0.79999, want: 60},
		{ratio: 0.5, want: 60},
		{ratio: 0.49999, want: 20},
		{ratio: 0.01, want: 20},
		{ratio: 0, want: 0},
	}
	for _, tc := range tests {
		if got := p.PercentFor(tc.ratio); got != tc.want {
			t.Errorf("PercentFor(%v) = %v, want %v", tc.ratio, got, tc.want)
		}
	}
}

func TestKeywordPolicy_Score(t *testing.T) {
	p := DefaultKeywordPolicy()
	five := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	tests := []struct {
		name        string
		answer      string
		keywords    []string
		guidance    string
		points      float64
		matched     int
		feedback    string
		unavailable bool
	}{
		{name: "all keywords", answer: "Newton's law of force", keywords: []string{"newton", "force"}, points: 10, matched: 2, feedback: FeedbackExcellent},
		{name: "four of five is 0.8", answer: "alpha beta gamma delta", keywords: five, points: 10, matched: 4, feedback: FeedbackExcellent},
		{name: "three of five is 0.6", answer: "alpha beta gamma", keywords: five, points: 6, matched: 3, feedback: FeedbackGood},
		{name: "one of two is 0.5", answer: "Newton was here", keywords: []string{"newton", "force"}, points: 6, matched: 1, feedback: FeedbackGood},
		{name: "two of five is 0.4", answer: "alpha beta", keywords: five, points: 2, matched: 2, feedback: FeedbackIncomplete},
		{name: "no keyword matched", answer: "something else", keywords: five, points: 0, matched: 0, feedback: FeedbackNoKeyPoints},
		{name: "empty answer", answer: "   ", keywords: five, points: 0, matched: 0, feedback: FeedbackNoAnswer},
		{name: "guidance keywords", answer: "the FORCE equals mass times acceleration", guidance: "force, mass, acceleration", points: 10, matched: 3, feedback: FeedbackExcellent},
		{name: "no keywords at all", answer: "anything", points: 0, feedback: FeedbackInvalidCriteria, unavailable: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Score(FreeTextRequest{Answer: tc.answer, Keywords: tc.keywords, Guidance: tc.guidance, MaxPoints: 10})
			if !floatEquals(got.Points, tc.points) {
				t.Errorf("points = %v, want %v", got.Points, tc.points)
			}
			if got.KeywordsMatched != tc.matched {
				t.Errorf("matched = %d, want %d", got.KeywordsMatched, tc.matched)
			}
			if got.Feedback != tc.feedback {
				t.Errorf("feedback = %q, want %q", got.Feedback, tc.feedback)
			}
			if got.Unavailable != tc.unavailable {
				t.Errorf("unavailable = %v, want %v", got.Unavailable, tc.unavailable)
			}
			if got.Source != "fallback_keyword" {
				t.Errorf("source = %s, want fallback_keyword", got.Source)
			}
		})
	}
}

func TestKeywordPolicy_Configurable(t *testing.T) {
	p := KeywordPolicy{FullRatio: 1, PartialRatio: 0.25, FullPercent: 90, PartialPercent: 40, LowPercent: 10}
	got := p.Score(FreeTextRequest{Answer: "a b", Keywords: []string{"a", "b", "c"}, MaxPoints: 10})
	if !floatEquals(got.Points, 4) {
		t.Errorf("points = %v, want 4", got.Points)
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		name     string
		accepted []string
		guidance string
		want     []string
	}{
		{name: "accepted wins", accepted: []string{"Newton", "force"}, guidance: "ignored, words", want: []string{"newton", "force"}},
		{name: "comma separated accepted", accepted: []string{"newton, force ,"}, want: []string{"newton", "force"}},
		{name: "guidance fallback", guidance: "Mass, acceleration", want: []string{"mass", "acceleration"}},
		{name: "dedupe", accepted: []string{"force", "FORCE"}, want: []string{"force"}},
		{name: "nothing", accepted: []string{" "}, guidance: "", want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Keywords(tc.accepted, tc.guidance); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Keywords() = %#v, want %#v", got, tc.want)
			}
		})
	}
}
