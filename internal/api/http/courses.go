package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/learning-site/internal/course"
	"github.com/mind-engage/learning-site/internal/forms"
	"github.com/mind-engage/learning-site/internal/logger"
)

// maxVideoBytes caps a single text-step video upload.
const maxVideoBytes = 512 << 20

// GET /courses?q=...&teacher=...
// GET /courses/by/{teacher}   teacher is a username or user id
func ListCoursesHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		teacher := chi.URLParam(r, "teacher")
		if teacher == "" {
			teacher = strings.TrimSpace(r.URL.Query().Get("teacher"))
		}
		list, err := svc.ListCourses(r.Context(), viewer(r), q, teacher)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"courses": list, "q": q, "teacher": teacher})
	}
}

// GET /courses/{courseID}
func CourseDetailHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		d, err := svc.CourseDetail(r.Context(), viewer(r), courseID)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// GET /courses/{courseID}/texts/{textID}
func TextDetailHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		textID, ok := idParam(w, r, "textID")
		if !ok {
			return
		}
		d, err := svc.TextDetail(r.Context(), viewer(r), courseID, textID)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// POST /courses
func CreateCourseHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f forms.CourseForm
		if !decodeJSON(w, r, &f) {
			return
		}
		c, err := svc.CreateCourse(r.Context(), viewer(r), f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"form": f})
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// PUT /courses/{courseID}
func EditCourseHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		var f forms.CourseForm
		if !decodeJSON(w, r, &f) {
			return
		}
		c, err := svc.EditCourse(r.Context(), viewer(r), courseID, f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"form": f})
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// POST /courses/{courseID}/texts
func CreateTextHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		var f forms.TextForm
		if !decodeJSON(w, r, &f) {
			return
		}
		t, err := svc.CreateText(r.Context(), viewer(r), courseID, f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"form": f})
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

// PUT /courses/{courseID}/texts/{textID}
func EditTextHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		textID, ok := idParam(w, r, "textID")
		if !ok {
			return
		}
		var f forms.TextForm
		if !decodeJSON(w, r, &f) {
			return
		}
		t, err := svc.EditText(r.Context(), viewer(r), courseID, textID, f)
		if err != nil {
			fail(w, r, log, err, map[string]any{"form": f})
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// POST /courses/{courseID}/texts/{textID}/video  (multipart, field "file")
func UploadVideoHandler(svc *course.Service, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, ok := idParam(w, r, "courseID")
		if !ok {
			return
		}
		textID, ok := idParam(w, r, "textID")
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxVideoBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		t, err := svc.AttachVideo(r.Context(), viewer(r), courseID, textID, hdr.Filename, f)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}
