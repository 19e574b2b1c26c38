package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/mind-engage/learning-site/internal/course"
	"github.com/mind-engage/learning-site/internal/logger"
)

// GET /courses/{courseID}/quizzes/{quizID}
func QuizDetailHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		d, err := svc.QuizDetail(r.Context(), viewer(r), courseID, quizID)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// POST /courses/{courseID}/quizzes/{quizID}/take   action=take|retake
func TakeQuizHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		action, err := readAction(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a, err := svc.Take(r.Context(), viewer(r), courseID, quizID, action == "retake")
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/courses/%d/quizzes/%d/questions", courseID, quizID))
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /courses/{courseID}/quizzes/{quizID}/questions
func QuestionsHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		sheet, err := svc.Questions(r.Context(), viewer(r), courseID, quizID)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, sheet)
	}
}

// POST /courses/{courseID}/quizzes/{quizID}/questions
//
// Body is either JSON {"answers": {"<question id>": <answer id or text>}}
// or a form with one field per question id.
func SubmitHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		responses, err := readResponses(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		v := viewer(r)
		res, err := svc.Submit(r.Context(), v, courseID, quizID, responses)
		if err != nil {
			var sheet any
			if s, qerr := svc.Questions(r.Context(), v, courseID, quizID); qerr == nil {
				sheet = s
			}
			fail(w, r, log, err, sheet)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /courses/{courseID}/quizzes/{quizID}/result
func LatestResultHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		quizID, ok := idParam(w, r, "quizID")
		if !ok {
			return
		}
		res, err := svc.LatestResult(r.Context(), viewer(r), courseID, quizID)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /profile
func ProfileHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewer(r)
		taken, err := svc.TakenQuizzes(r.Context(), v)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": v.UserID, "staff": v.Staff, "taken_quizzes": taken})
	}
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

func readAction(r *http.Request) (string, error) {
	action := ""
	if isJSON(r) {
		var body struct {
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return "", errors.New("bad json")
		}
		action = body.Action
	} else {
		action = r.FormValue("action")
	}
	switch action {
	case "", "take":
		return "take", nil
	case "retake":
		return "retake", nil
	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

func readResponses(r *http.Request) (map[int64]string, error) {
	out := map[int64]string{}
	if isJSON(r) {
		var body struct {
			Answers map[string]json.RawMessage `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, errors.New("bad json")
		}
		for k, raw := range body.Answers {
			id, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				s = strings.TrimSpace(string(raw)) // numeric answer id
			}
			out[id] = s
		}
		return out, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, errors.New("bad form")
	}
	for k, vs := range r.PostForm {
		id, err := strconv.ParseInt(strings.TrimPrefix(k, "answer_"), 10, 64)
		if err != nil || len(vs) == 0 {
			continue
		}
		out[id] = vs[0]
	}
	return out, nil
}
