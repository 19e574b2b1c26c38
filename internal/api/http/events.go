package http

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/mind-engage/learning-site/internal/logger"
	syncx "github.com/mind-engage/learning-site/internal/sync"
)

// GET /events?after=<seq>&limit=<n>
//
// Attempt lifecycle feed for downstream consumers. Admin only.
func EventsHandler(dbh *sql.DB, events *syncx.EventRepo, log *logger.Logger) http.HandlerFunc {
	type row struct {
		Seq       int64  `json:"seq"`
		SiteID    string `json:"site_id"`
		Type      string `json:"type"`
		Key       string `json:"key"`
		Data      string `json:"data"`
		CreatedAt int64  `json:"created_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		list, err := events.Since(r.Context(), dbh, after, limit)
		if err != nil {
			fail(w, r, log, err, nil)
			return
		}
		out := make([]row, 0, len(list))
		next := after
		for _, e := range list {
			out = append(out, row{e.Seq, e.SiteID, e.Type, e.Key, e.DataJSON, e.CreatedAt})
			next = e.Seq
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": out, "next": next})
	}
}
