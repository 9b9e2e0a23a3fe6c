package service

import "errors"

var (
	ErrNotEligible      = errors.New("caller is not eligible to take this quiz")
	ErrNotOwner         = errors.New("caller does not own this resource")
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyCompleted = errors.New("attempt is already completed")
	ErrAlreadyDisputed  = errors.New("evaluation has already been disputed")
	ErrNotInProgress    = errors.New("attempt is not in progress")
	ErrReportNotPending = errors.New("report is not pending review")
	ErrInvalidDecision  = errors.New("invalid review decision")
	ErrInvalidAnswer    = errors.New("answer refers to a question outside this quiz")
	ErrInvalidQuiz      = errors.New("invalid quiz definition")
	ErrEmptyReason      = errors.New("dispute reason must not be empty")
	ErrForbidden        = errors.New("operation not permitted for this role")
	ErrConcurrentUpdate = errors.New("attempt kept changing during the update, retry")
)
