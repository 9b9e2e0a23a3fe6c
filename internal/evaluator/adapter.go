// Package evaluator scores free-text answers with an external language model and
// degrades to keyword matching whenever that call cannot produce a usable result.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/quizcore/config"
	"github.com/lshigami/quizcore/internal/monitoring"
	"github.com/lshigami/quizcore/internal/scoring"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type FailureKind string

const (
	FailureUnconfigured FailureKind = "unconfigured"
	FailureRateLimited  FailureKind = "rate_limited"
	FailureTimeout      FailureKind = "timeout"
	FailureTransport    FailureKind = "transport"
	FailureParse        FailureKind = "parse"
)

// Failure explains why the external path produced no evaluation.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

type Option func(*Adapter)

func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

func WithLimiter(l *rate.Limiter) Option {
	return func(a *Adapter) { a.limiter = l }
}

func WithFallbackPolicy(p scoring.KeywordPolicy) Option {
	return func(a *Adapter) { a.fallback = p }
}

// Adapter implements scoring.FreeTextEvaluator.
type Adapter struct {
	generator Generator
	fallback  scoring.KeywordPolicy
	timeout   time.Duration
	limiter   *rate.Limiter
}

const defaultTimeout = 20 * time.Second

// New builds an adapter. A nil generator means every evaluation uses the fallback.
func New(generator Generator, opts ...Option) *Adapter {
	a := &Adapter{
		generator: generator,
		fallback:  scoring.DefaultKeywordPolicy(),
		timeout:   defaultTimeout,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func NewFromConfig(cfg *config.Config, generator Generator) *Adapter {
	opts := []Option{
		WithTimeout(cfg.Evaluator.Timeout),
		WithFallbackPolicy(PolicyFromConfig(cfg)),
	}
	if cfg.Evaluator.RatePerSecond > 0 {
		burst := cfg.Evaluator.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, WithLimiter(rate.NewLimiter(rate.Limit(cfg.Evaluator.RatePerSecond), burst)))
	}
	return New(generator, opts...)
}

func PolicyFromConfig(cfg *config.Config) scoring.KeywordPolicy {
	return scoring.KeywordPolicy{
		FullRatio:      cfg.Keyword.FullRatio,
		PartialRatio:   cfg.Keyword.PartialRatio,
		FullPercent:    cfg.Keyword.FullPercent,
		PartialPercent: cfg.Keyword.PartialPercent,
		LowPercent:     cfg.Keyword.LowPercent,
	}
}

// Evaluate tries the external service once and falls back to keywords on any failure.
func (a *Adapter) Evaluate(ctx context.Context, req scoring.FreeTextRequest) scoring.Evaluation {
	ev, err := a.External(ctx, req)
	if err != nil {
		var failure *Failure
		reason := FailureTransport
		if errors.As(err, &failure) {
			reason = failure.Kind
		}
		if reason != FailureUnconfigured {
			log.Warn().Err(err).Uint("questionID", req.QuestionID).Msg("Evaluate: external evaluation failed, using keyword fallback")
		}
		monitoring.EvaluationFallbacks.WithLabelValues(string(reason)).Inc()
		ev = a.fallback.Score(req)
	}
	monitoring.Evaluations.WithLabelValues(string(ev.Source)).Inc()
	return ev
}

type generation struct {
	text string
	err  error
}

// External runs only the primary path. The call is bounded by the adapter timeout even
// if the generator ignores its context.
func (a *Adapter) External(ctx context.Context, req scoring.FreeTextRequest) (scoring.Evaluation, error) {
	if a.generator == nil {
		return scoring.Evaluation{}, &Failure{Kind: FailureUnconfigured}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if a.limiter != nil {
		if err := a.limiter.Wait(callCtx); err != nil {
			return scoring.Evaluation{}, &Failure{Kind: FailureRateLimited, Err: err}
		}
	}

	start := time.Now()
	done := make(chan generation, 1)
	prompt := BuildPrompt(req)
	go func() {
		text, err := a.generator.GenerateText(callCtx, prompt)
		done <- generation{text: text, err: err}
	}()

	var out generation
	select {
	case out = <-done:
	case <-callCtx.Done():
		return scoring.Evaluation{}, &Failure{Kind: FailureTimeout, Err: callCtx.Err()}
	}
	monitoring.EvaluationLatency.Observe(time.Since(start).Seconds())

	if out.err != nil {
		if errors.Is(out.err, context.DeadlineExceeded) {
			return scoring.Evaluation{}, &Failure{Kind: FailureTimeout, Err: out.err}
		}
		return scoring.Evaluation{}, &Failure{Kind: FailureTransport, Err: out.err}
	}

	ev, err := parseEvaluation(out.text, req.MaxPoints)
	if err != nil {
		return scoring.Evaluation{}, &Failure{Kind: FailureParse, Err: err}
	}
	ev.ModelVersion = a.generator.ModelVersion()
	return ev, nil
}
