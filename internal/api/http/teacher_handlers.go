package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/learning-site/internal/course"
	"github.com/mind-engage/learning-site/internal/forms"
	"github.com/mind-engage/learning-site/internal/logger"
)

// Quiz, question and answer authoring. Routes are guarded by quiz:author.

// POST /courses/{courseID}/quizzes
func CreateQuizHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		var f forms.QuizForm
		if !decodeJSON(w, r, &f) {
			return
		}
		q, err := svc.CreateQuiz(r.Context(), viewer(r), courseID, f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"form": f})
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /courses/{courseID}/quizzes/{quizID}
func EditQuizHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		var f forms.QuizForm
		if !decodeJSON(w, r, &f) {
			return
		}
		q, err := svc.EditQuiz(r.Context(), viewer(r), courseID, quizID, f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"form": f})
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GET /courses/{courseID}/quizzes/{quizID}/questions/new/{code}
func NewQuestionFormHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		writeJSON(w, http.StatusOK, map[string]any{
			"type_code": course.TypeFromCode(code).Code(),
			"form":      course.NewQuestionForm(code),
		})
	}
}

// POST /courses/{courseID}/quizzes/{quizID}/questions/new/{code}
func CreateQuestionHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		var f forms.QuestionForm
		if !decodeJSON(w, r, &f) {
			return
		}
		code := chi.URLParam(r, "code")
		q, err := svc.CreateQuestion(r.Context(), viewer(r), courseID, quizID, code, f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"type_code": code, "form": f})
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// GET /courses/{courseID}/quizzes/{quizID}/questions/{questionID}/edit
func EditQuestionFormHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, quizID, questionID, ok := questionParams(w, r)
		if !ok {
			return
		}
		q, f, err := svc.EditQuestionForm(r.Context(), viewer(r), courseID, quizID, questionID)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"question": q, "type_code": q.Type.Code(), "form": f})
	}
}

// PUT /courses/{courseID}/quizzes/{quizID}/questions/{questionID}
func EditQuestionHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, quizID, questionID, ok := questionParams(w, r)
		if !ok {
			return
		}
		var f forms.QuestionForm
		if !decodeJSON(w, r, &f) {
			return
		}
		q, err := svc.EditQuestion(r.Context(), viewer(r), courseID, quizID, questionID, f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"form": f})
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /courses/{courseID}/quizzes/{quizID}/questions/{questionID}
func DeleteQuestionHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, quizID, questionID, ok := questionParams(w, r)
		if !ok {
			return
		}
		if err := svc.DeleteQuestion(r.Context(), viewer(r), courseID, quizID, questionID); err != nil {
			fail(w, r, log, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /questions/{questionID}/answers
func AnswerFormHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, ok := idParam(w, r, "questionID")
		if !ok {
			return
		}
		q, f, err := svc.AnswerForm(r.Context(), viewer(r), questionID)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"question": q, "form": f})
	}
}

// PUT /questions/{questionID}/answers
func SaveAnswersHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionID, ok := idParam(w, r, "questionID")
		if !ok {
			return
		}
		var f forms.AnswerFormSet
		if !decodeJSON(w, r, &f) {
			return
		}
		answers, err := svc.SaveAnswers(r.Context(), viewer(r), questionID, f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"form": f})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"answers": answers})
	}
}

func questionParams(w http.ResponseWriter, r *http.Request) (courseID, quizID, questionID int64, ok bool) {
	if courseID, ok = idParam(w, r, "courseID"); !ok {
		return
	}
	if quizID, ok = idParam(w, r, "quizID"); !ok {
		return
	}
	questionID, ok = idParam(w, r, "questionID")
	return
}

// GET /courses/{courseID}/quizzes/{quizID}/attempts?completed=1&limit=50&offset=0
func QuizAttemptsHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		q := r.URL.Query()
		opts := course.AttemptListOpts{
			CompletedOnly: q.Get("completed") == "1" || q.Get("completed") == "true",
			Limit:         atoiDefault(q.Get("limit"), 50),
			Offset:        atoiDefault(q.Get("offset"), 0),
		}
		list, err := svc.QuizAttempts(r.Context(), viewer(r), courseID, quizID, opts)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
