package course

import (
	"context"
	"errors"
	"math/rand"

	"github.com/mind-engage/learning-site/internal/grading"
	"github.com/mind-engage/learning-site/internal/logger"
	"github.com/mind-engage/learning-site/internal/storage"
)

// Viewer is the caller as seen by the workflows. An empty UserID is an
// anonymous visitor.
type Viewer struct {
	UserID string
	Staff  bool
}

func (v Viewer) authenticated() bool { return v.UserID != "" }

// Service runs the browsing, authoring and quiz-taking workflows on top of a
// Store.
type Service struct {
	store   Store
	grader  grading.Grader
	blobs   storage.BlobStore
	log     *logger.Logger
	shuffle func(n int, swap func(i, j int))
}

type Option func(*Service)

func WithGrader(g grading.Grader) Option   { return func(s *Service) { s.grader = g } }
func WithBlobs(b storage.BlobStore) Option { return func(s *Service) { s.blobs = b } }
func WithLogger(l *logger.Logger) Option   { return func(s *Service) { s.log = l } }

// WithShuffle replaces the permutation used for shuffled answer lists.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *Service) { s.shuffle = fn }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		grader:  grading.NewDefaultGrader(),
		log:     logger.Nop(),
		shuffle: rand.Shuffle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Store() Store { return s.store }

// visibleCourse loads a course the viewer may see. Drafts are hidden from
// everyone but staff.
func (s *Service) visibleCourse(ctx context.Context, v Viewer, id int64) (Course, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !c.Published && !v.Staff {
		return Course{}, ErrNotFound
	}
	return c, nil
}

// quizIn loads quizID and checks it belongs to courseID.
func (s *Service) quizIn(ctx context.Context, courseID, quizID int64) (Quiz, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if q.CourseID != courseID {
		return Quiz{}, ErrNotFound
	}
	return q, nil
}

func (s *Service) steps(ctx context.Context, courseID int64) ([]Step, error) {
	texts, err := s.store.ListTexts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.store.ListQuizzes(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return Steps(texts, quizzes), nil
}

func requireStaff(v Viewer) error {
	if !v.Staff {
		return ErrForbidden
	}
	return nil
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
