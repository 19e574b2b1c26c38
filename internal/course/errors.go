package course

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrUnanswered aborts a grading pass; nothing is written.
	ErrUnanswered = errors.New("unanswered question")
	// ErrIntegrity marks a question without exactly one correct answer.
	ErrIntegrity = errors.New("quiz is misconfigured")

	ErrAttemptCompleted = errors.New("attempt already graded")
	ErrAlreadyTaken     = errors.New("quiz already taken")
	ErrNoAttempt        = errors.New("quiz has not been started")
)
