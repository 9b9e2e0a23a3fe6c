package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/quizcore/config"
	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// QuestionCatalog is the read-only source of quizzes and their ordered questions.
type QuestionCatalog interface {
	Quiz(ctx context.Context, quizID uint) (*model.Quiz, error)
}

type questionCatalog struct {
	quizRepo repository.QuizRepository
	cache    *redis.Client
	ttl      time.Duration
}

// NewQuestionCatalog caches quizzes in redis when a client is available. Questions are
// immutable once published, so entries only expire by TTL.
func NewQuestionCatalog(quizRepo repository.QuizRepository, cache *redis.Client, cfg *config.Config) QuestionCatalog {
	return &questionCatalog{quizRepo: quizRepo, cache: cache, ttl: cfg.Redis.CacheTTL}
}

func catalogKey(quizID uint) string {
	return fmt.Sprintf("quizcore:quiz:%d", quizID)
}

func (c *questionCatalog) Quiz(ctx context.Context, quizID uint) (*model.Quiz, error) {
	if c.cache != nil {
		raw, err := c.cache.Get(ctx, catalogKey(quizID)).Bytes()
		if err == nil {
			var quiz model.Quiz
			if err := json.Unmarshal(raw, &quiz); err == nil {
				return &quiz, nil
			}
			log.Warn().Uint("quizID", quizID).Msg("Catalog: discarding undecodable cache entry")
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Uint("quizID", quizID).Msg("Catalog: cache read failed")
		}
	}

	quiz, err := c.quizRepo.FindByIDWithQuestions(ctx, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("quiz %d: %w", quizID, ErrNotFound)
		}
		return nil, fmt.Errorf("load quiz %d: %w", quizID, err)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(quiz); err == nil {
			if err := c.cache.Set(ctx, catalogKey(quizID), raw, c.ttl).Err(); err != nil {
				log.Warn().Err(err).Uint("quizID", quizID).Msg("Catalog: cache write failed")
			}
		}
	}
	return quiz, nil
}
