package service

import (
	"context"

	"github.com/lshigami/quizcore/internal/model"
	"github.com/lshigami/quizcore/internal/repository"
)

// EligibilityChecker answers whether a student may take a quiz.
type EligibilityChecker interface {
	CanTake(ctx context.Context, caller Caller, quiz *model.Quiz) (bool, error)
}

type groupEligibility struct {
	groupRepo repository.GroupRepository
}

func NewEligibilityChecker(groupRepo repository.GroupRepository) EligibilityChecker {
	return &groupEligibility{groupRepo: groupRepo}
}

// CanTake admits every student to an unrestricted quiz and only group members
// to a restricted one.
func (e *groupEligibility) CanTake(ctx context.Context, caller Caller, quiz *model.Quiz) (bool, error) {
	if !caller.IsStudent() {
		return false, nil
	}
	if quiz.GroupID == nil {
		return true, nil
	}
	return e.groupRepo.IsMember(ctx, *quiz.GroupID, caller.ID)
}
