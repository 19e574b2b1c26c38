package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mind-engage/learning-site/internal/rbac"
)

// AttachRoleFromDB replaces the token's role with the one stored for the
// subject, so a demoted user loses permissions before the token expires.
// Tokens for users that no longer exist are rejected.
func AttachRoleFromDB(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := rbac.SubjectFromContext(ctx)
			if sub == "" {
				next.ServeHTTP(w, r)
				return
			}
			var role string
			err := db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, sub).Scan(&role)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "unknown user", http.StatusUnauthorized)
			default:
				http.Error(w, "lookup user", http.StatusInternalServerError)
			}
		})
	}
}
