package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mind-engage/learning-site/internal/course"
	"github.com/mind-engage/learning-site/internal/forms"
	"github.com/mind-engage/learning-site/internal/logger"
	"github.com/mind-engage/learning-site/internal/rbac"
	"github.com/mind-engage/learning-site/internal/storage"
)

// User-facing messages for workflow failures.
const (
	MsgUnanswered      = "You didn't answer a question"
	MsgMisconfigured   = "This quiz is misconfigured. Please contact the course staff."
	MsgAttemptGraded   = "This attempt has already been graded. Retake the quiz to answer again."
	MsgNotStarted      = "You have not started this quiz"
	MsgInvalidForm     = "Please correct the errors below."
	MsgInternal        = "internal error"
	MsgNotFound        = "not found"
	MsgForbidden       = "forbidden"
	MsgUnauthenticated = "unauthorized"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	// Data is the bundle needed to re-render the screen that failed.
	Data any `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// viewer builds the workflow caller from the identity in the request
// context. Authoring rights decide staff status.
func viewer(r *http.Request) course.Viewer {
	ctx := r.Context()
	return course.Viewer{
		UserID: rbac.SubjectFromContext(ctx),
		Staff:  rbac.Can(ctx, rbac.PermQuizAuthor),
	}
}

// idParam reads an int64 URL parameter. It writes a 404 and returns false
// when the value is not a positive integer.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, MsgNotFound, http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// fail maps a workflow error to a status and JSON body. data is attached
// to validation and unanswered-question failures so the caller can
// re-render the form.
func fail(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error, data any) {
	reqID := middleware.GetReqID(r.Context())
	var ve *forms.ValidationError
	switch {
	case errors.As(err, &ve):
		log.Debug("invalid form", "path", r.URL.Path, "fields", ve.Fields, "request_id", reqID)
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: MsgInvalidForm, Fields: ve.Fields, Data: data})
	case errors.Is(err, course.ErrUnanswered):
		log.Debug("unanswered question", "path", r.URL.Path, "err", err, "request_id", reqID)
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: MsgUnanswered, Data: data})
	case errors.Is(err, course.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: MsgNotFound})
	case errors.Is(err, course.ErrForbidden):
		if rbac.SubjectFromContext(r.Context()) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: MsgUnauthenticated})
			return
		}
		writeJSON(w, http.StatusForbidden, errorBody{Error: MsgForbidden})
	case errors.Is(err, course.ErrAlreadyTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: course.MsgAlreadyTaken})
	case errors.Is(err, course.ErrAttemptCompleted):
		writeJSON(w, http.StatusConflict, errorBody{Error: MsgAttemptGraded})
	case errors.Is(err, course.ErrNoAttempt):
		writeJSON(w, http.StatusConflict, errorBody{Error: MsgNotStarted})
	case errors.Is(err, storage.ErrInvalidKey):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, course.ErrIntegrity):
		log.Error("quiz integrity", "path", r.URL.Path, "err", err, "request_id", reqID)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: MsgMisconfigured})
	default:
		log.Error("request failed", "path", r.URL.Path, "err", err, "request_id", reqID)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: MsgInternal})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}
