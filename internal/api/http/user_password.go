package http

import (
	"errors"
	"net/http"

	authmw "github.com/mind-engage/learning-site/internal/auth/middleware"
	"github.com/mind-engage/learning-site/internal/forms"
	"github.com/mind-engage/learning-site/internal/logger"
	"github.com/mind-engage/learning-site/internal/rbac"
)

// POST /auth/password  { "old_password": "...", "new_password": "..." }
func ChangePasswordHandler(users *authmw.UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, MsgUnauthenticated, http.StatusUnauthorized)
			return
		}
		var f forms.PasswordChangeForm
		if !decodeJSON(w, r, &f) {
			return
		}
		if err := f.Validate(); err != nil {
			fail(w, r, log, err, nil)
			return
		}
		err := users.ChangePassword(r.Context(), userID, f.OldPassword, f.NewPassword)
		if errors.Is(err, authmw.ErrBadCredentials) {
			writeJSON(w, http.StatusForbidden, errorBody{
				Error:  MsgInvalidForm,
				Fields: map[string]string{"old_password": "Your old password was entered incorrectly."},
			})
			return
		}
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
