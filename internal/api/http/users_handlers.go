package http

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/learning-site/internal/auth/middleware"
	"github.com/mind-engage/learning-site/internal/logger"
	"github.com/mind-engage/learning-site/internal/rbac"
)

// Account administration. Routes are guarded by users:manage.

// GET /users?role=staff
func ListUsersHandler(users *authmw.UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// PATCH /users/{userID}  {"role": "staff"}; userID may also be a username.
func UpdateUserRoleHandler(users *authmw.UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Role string `json:"role"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		role := strings.ToLower(strings.TrimSpace(body.Role))
		if !rbac.ValidRole(role) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{
				Error: MsgInvalidForm, Fields: map[string]string{"role": "Select a valid choice."},
			})
			return
		}
		u, err := users.SetRole(r.Context(), chi.URLParam(r, "userID"), role)
		switch {
		case errors.Is(err, authmw.ErrUserNotFound):
			writeJSON(w, http.StatusNotFound, errorBody{Error: MsgNotFound})
		case errors.Is(err, authmw.ErrLastAdmin):
			writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		case err != nil:
			fail(w, r, log, err, nil)
		default:
			log.Info("role changed", "user", u.ID, "role", role, "by", rbac.SubjectFromContext(r.Context()))
			writeJSON(w, http.StatusOK, u)
		}
	}
}

// POST /users/import
//
// Body is a JSON array of accounts, or a multipart "file" holding either a
// JSON array or CSV with a username,email,role,password header.
func ImportUsersHandler(users *authmw.UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var src io.Reader = r.Body
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer f.Close()
			src = f
		}
		rows, err := readImportRows(src)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ins, upd, err := users.Import(r.Context(), rows)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
			return
		}
		log.Info("users imported", "inserted", ins, "updated", upd)
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

// readImportRows sniffs the first non-space byte to tell JSON from CSV.
func readImportRows(src io.Reader) ([]authmw.ImportRow, error) {
	br := bufio.NewReader(src)
	for {
		b, err := br.Peek(1)
		if err != nil {
			return nil, errors.New("empty import")
		}
		if b[0] != ' ' && b[0] != '\n' && b[0] != '\r' && b[0] != '\t' {
			break
		}
		_, _ = br.ReadByte()
	}
	if b, _ := br.Peek(1); b[0] == '[' {
		var rows []authmw.ImportRow
		if err := json.NewDecoder(br).Decode(&rows); err != nil {
			return nil, errors.New("bad json")
		}
		return rows, nil
	}
	return parseUsersCSV(br)
}

func parseUsersCSV(r io.Reader) ([]authmw.ImportRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, errors.New("bad csv: " + err.Error())
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["username"]; !ok {
		return nil, errors.New("bad csv: missing column username")
	}
	col := func(rec []string, name string) string {
		if i, ok := idx[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var rows []authmw.ImportRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.New("bad csv: " + err.Error())
		}
		rows = append(rows, authmw.ImportRow{
			Username: col(rec, "username"),
			Email:    col(rec, "email"),
			Role:     strings.ToLower(col(rec, "role")),
			Password: col(rec, "password"),
		})
	}
	return rows, nil
}
