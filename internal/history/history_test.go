package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theKBro/gcovr/internal/coverage"
)

func testData(covered, total int) coverage.Data {
	fc := coverage.NewFileCoverage("main.cpp")
	for i := 1; i <= total; i++ {
		count := int64(0)
		if i <= covered {
			count = 1
		}
		fc.AddLine(i, count)
	}
	d := coverage.Data{}
	d.Merge(fc)
	return d
}

func TestStore_RecordAndList(t *testing.T) {
	store, err := Open(DefaultPath(t.TempDir()))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	t0 := time.Unix(1700000000, 0)

	run1, err := store.Record(ctx, testData(5, 10), t0)
	require.NoError(t, err)
	assert.Equal(t, 50.0, run1.LinePercent)

	_, err = store.Record(ctx, testData(8, 10), t0.Add(time.Minute))
	require.NoError(t, err)

	runs, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// newest first
	assert.Equal(t, 80.0, runs[0].LinePercent)
	assert.Equal(t, 50.0, runs[1].LinePercent)
	assert.Equal(t, t0.Unix(), runs[1].Timestamp.Unix())
	assert.Equal(t, 1, runs[0].Files)
	assert.Equal(t, 10, runs[0].LinesTotal)
}

func TestStore_ListLimit(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, testData(i, 5), time.Now())
		require.NoError(t, err)
	}

	runs, err := store.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Record(context.Background(), testData(1, 2), time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
