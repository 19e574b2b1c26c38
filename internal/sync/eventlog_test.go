package syncx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/learning-site/internal/db"
	syncx "github.com/mind-engage/learning-site/internal/sync"
)

func TestAppendAndSince(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })

	repo := syncx.NewEventRepo("")
	ev, err := syncx.NewEvent(syncx.TypeAttemptGraded, "12", map[string]any{"correct_answers": 2})
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, dbh, ev))

	tx, err := dbh.BeginTx(ctx, nil)
	require.NoError(t, err)
	ev2, _ := syncx.NewEvent(syncx.TypeAttemptRetaken, "13", nil)
	require.NoError(t, repo.Append(ctx, tx, ev2))
	require.NoError(t, tx.Rollback())

	events, err := repo.Since(ctx, dbh, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, syncx.TypeAttemptGraded, events[0].Type)
	assert.Equal(t, "12", events[0].Key)
	assert.Equal(t, "local", events[0].SiteID)
	assert.JSONEq(t, `{"correct_answers":2}`, events[0].DataJSON)
}
