package course

import "context"

type CourseDetail struct {
	Course Course `json:"course"`
	Steps  []Step `json:"steps"`
}

type TextDetail struct {
	Course Course `json:"course"`
	Text   Text   `json:"text"`
	Steps  []Step `json:"steps"`
}

// ListCourses returns published courses, newest first. q filters on title
// and description; teacher (user id or username) limits to one author. Staff also see drafts.
func (s *Service) ListCourses(ctx context.Context, v Viewer, q, teacher string) ([]Course, error) {
	return s.store.ListCourses(ctx, CourseListOpts{Q: q, Teacher: teacher, PublishedOnly: !v.Staff})
}

func (s *Service) CourseDetail(ctx context.Context, v Viewer, courseID int64) (CourseDetail, error) {
	c, err := s.visibleCourse(ctx, v, courseID)
	if err != nil {
		return CourseDetail{}, err
	}
	steps, err := s.steps(ctx, courseID)
	if err != nil {
		return CourseDetail{}, err
	}
	return CourseDetail{Course: c, Steps: steps}, nil
}

func (s *Service) TextDetail(ctx context.Context, v Viewer, courseID, textID int64) (TextDetail, error) {
	c, err := s.visibleCourse(ctx, v, courseID)
	if err != nil {
		return TextDetail{}, err
	}
	t, err := s.store.GetText(ctx, textID)
	if err != nil {
		return TextDetail{}, err
	}
	if t.CourseID != courseID {
		return TextDetail{}, ErrNotFound
	}
	steps, err := s.steps(ctx, courseID)
	if err != nil {
		return TextDetail{}, err
	}
	return TextDetail{Course: c, Text: t, Steps: steps}, nil
}
