package http

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authmw "github.com/mind-engage/learning-site/internal/auth/middleware"
	"github.com/mind-engage/learning-site/internal/course"
	"github.com/mind-engage/learning-site/internal/logger"
	"github.com/mind-engage/learning-site/internal/rbac"
	"github.com/mind-engage/learning-site/internal/storage"
	syncx "github.com/mind-engage/learning-site/internal/sync"
)

type Deps struct {
	Courses *course.Service
	Auth    *authmw.AuthService
	Users   *authmw.UserStore
	DB      *sql.DB
	Blobs   storage.BlobStore
	Events  *syncx.EventRepo
	Log     *logger.Logger

	EnableRegistration bool
	CORSOrigins        []string
	RequestTimeout     time.Duration
}

// NewRouter wires every route. Public pages accept an optional bearer
// token; everything else requires one.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Events == nil {
		d.Events = syncx.NewEventRepo("")
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	svc, log := d.Courses, d.Log

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logger.Middleware(log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Users))
	if d.EnableRegistration {
		r.Post("/auth/register", authmw.RegisterHandler(d.Auth, d.Users))
	}

	// Browsing: anonymous or signed in.
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.OptionalJWT(d.Auth), authmw.AttachRoleFromDB(d.DB))
		pr.Get("/courses", ListCoursesHandler(svc, log))
		pr.Get("/courses/by/{teacher}", ListCoursesHandler(svc, log))
		pr.Get("/courses/{courseID}", CourseDetailHandler(svc, log))
		pr.Get("/courses/{courseID}/texts/{textID}", TextDetailHandler(svc, log))
		pr.Get("/courses/{courseID}/quizzes/{quizID}", QuizDetailHandler(svc, log))
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth), authmw.AttachRoleFromDB(d.DB))

		pr.Post("/auth/password", ChangePasswordHandler(d.Users, log))

		// Quiz taking
		pr.With(rbac.Require(rbac.PermQuizTake)).
			Post("/courses/{courseID}/quizzes/{quizID}/take", TakeQuizHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizTake)).
			Get("/courses/{courseID}/quizzes/{quizID}/questions", QuestionsHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizTake)).
			Post("/courses/{courseID}/quizzes/{quizID}/questions", SubmitHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptViewOwn)).
			Get("/courses/{courseID}/quizzes/{quizID}/result", LatestResultHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptViewOwn)).
			Get("/profile", ProfileHandler(svc, log))

		// Course and text authoring
		pr.Group(func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermCourseAuthor))
			ar.Post("/courses", CreateCourseHandler(svc, log))
			ar.Put("/courses/{courseID}", EditCourseHandler(svc, log))
			ar.Post("/courses/{courseID}/texts", CreateTextHandler(svc, log))
			ar.Put("/courses/{courseID}/texts/{textID}", EditTextHandler(svc, log))
			ar.Post("/courses/{courseID}/texts/{textID}/video", UploadVideoHandler(svc, log))
		})

		// Quiz, question and answer authoring
		pr.Group(func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermQuizAuthor))
			ar.Post("/courses/{courseID}/quizzes", CreateQuizHandler(svc, log))
			ar.Put("/courses/{courseID}/quizzes/{quizID}", EditQuizHandler(svc, log))
			ar.Get("/courses/{courseID}/quizzes/{quizID}/questions/new/{code}", NewQuestionFormHandler())
			ar.Post("/courses/{courseID}/quizzes/{quizID}/questions/new/{code}", CreateQuestionHandler(svc, log))
			ar.Get("/courses/{courseID}/quizzes/{quizID}/questions/{questionID}/edit", EditQuestionFormHandler(svc, log))
			ar.Put("/courses/{courseID}/quizzes/{quizID}/questions/{questionID}", EditQuestionHandler(svc, log))
			ar.Delete("/courses/{courseID}/quizzes/{quizID}/questions/{questionID}", DeleteQuestionHandler(svc, log))
			ar.Get("/questions/{questionID}/answers", AnswerFormHandler(svc, log))
			ar.Put("/questions/{questionID}/answers", SaveAnswersHandler(svc, log))
		})

		pr.With(rbac.Require(rbac.PermAttemptViewAll)).
			Get("/courses/{courseID}/quizzes/{quizID}/attempts", QuizAttemptsHandler(svc, log))

		pr.With(rbac.Require(rbac.PermEventsRead)).Get("/events", EventsHandler(d.DB, d.Events, log))

		pr.Group(func(ar chi.Router) {
			ar.Use(rbac.Require(rbac.PermUsersManage))
			ar.Get("/users", ListUsersHandler(d.Users, log))
			ar.Post("/users/import", ImportUsersHandler(d.Users, log))
			ar.Patch("/users/{userID}", UpdateUserRoleHandler(d.Users, log))
		})

		if d.Blobs != nil {
			pr.With(rbac.Require(rbac.PermAssetView)).Route("/assets", func(ar chi.Router) {
				MountAssets(ar, d.Blobs, log)
			})
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
