package checker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/depprobe/internal/checker"
	"github.com/hazz-dev/depprobe/internal/health"
)

func TestSQLChecker_SQLite(t *testing.T) {
	db, err := checker.OpenSQL("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	result := checker.NewSQL(db, "local", discardLogger()).Check(context.Background())
	assert.Equal(t, health.StatusHealthy, result.Status)
	assert.Equal(t, "OK. 'local' is available.", result.Message)
}

func TestSQLChecker_ClosedDB(t *testing.T) {
	db, err := checker.OpenSQL("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	result := checker.NewSQL(db, "local", discardLogger()).Check(context.Background())
	assert.Equal(t, health.StatusUnhealthy, result.Status)
	assert.Equal(t, "Failed. 'local' is unavailable.", result.Message)
	assert.Error(t, result.Err)
}

func TestOpenSQL_UnknownDriver(t *testing.T) {
	_, err := checker.OpenSQL("oracle", "whatever")
	assert.Error(t, err)
}

type fakeQuerier struct {
	value int
	err   error
	query string
}

func (f *fakeQuerier) GetContext(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
	f.query = query
	if f.err != nil {
		return f.err
	}
	*(dest.(*int)) = f.value
	return nil
}

func TestSQLChecker_RunsAliveQuery(t *testing.T) {
	q := &fakeQuerier{value: 1}
	result := checker.NewSQL(q, "orders", discardLogger()).Check(context.Background())

	assert.Equal(t, health.StatusHealthy, result.Status)
	assert.Equal(t, "SELECT 1", q.query)
}

func TestSQLChecker_UnexpectedValue(t *testing.T) {
	result := checker.NewSQL(&fakeQuerier{value: 2}, "orders", discardLogger()).Check(context.Background())

	assert.Equal(t, health.StatusUnhealthy, result.Status)
	assert.EqualError(t, result.Err, "SELECT 1 returned 2")
}
