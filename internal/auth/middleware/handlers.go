package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/learning-site/internal/forms"
	"github.com/mind-engage/learning-site/internal/rbac"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

func (a *AuthService) respond(w http.ResponseWriter, status int, u User) {
	tok, err := a.IssueJWT(u.ID, u.Role)
	if err != nil {
		http.Error(w, "issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, tokenResponse{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int64(a.ttl.Seconds()),
		User:        u,
	})
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, users *UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f forms.LoginForm
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := f.Validate(); err != nil {
			writeValidation(w, err)
			return
		}
		u, err := users.Authenticate(r.Context(), f.Username, f.Password)
		if errors.Is(err, ErrBadCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		a.respond(w, http.StatusOK, u)
	}
}

// POST /auth/register  { "username", "email", "password", "staff_status" }
func RegisterHandler(a *AuthService, users *UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f forms.RegisterForm
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := f.Validate(); err != nil {
			writeValidation(w, err)
			return
		}
		role := rbac.RoleStudent
		if f.StaffStatus {
			role = rbac.RoleStaff
		}
		u, err := users.Create(r.Context(), f.Username, f.Email, f.Password, role)
		if errors.Is(err, ErrUsernameTaken) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":  "invalid form",
				"fields": map[string]string{"username": "A user with that username already exists."},
			})
			return
		}
		if err != nil {
			http.Error(w, "register failed", http.StatusInternalServerError)
			return
		}
		a.respond(w, http.StatusCreated, u)
	}
}

func writeValidation(w http.ResponseWriter, err error) {
	var ve *forms.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "invalid form", "fields": ve.Fields})
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
