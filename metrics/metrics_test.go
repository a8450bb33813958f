package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/acooeaz/index"
	"github.com/poiesic/acooeaz/search"
	"github.com/poiesic/acooeaz/storage/badger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildMonitor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	mon := m.RebuildMonitor()

	mon.IndexRecreated(index.Products)
	mon.BulkWritten(index.Products, 3, index.BulkResult{Indexed: 3})
	mon.BulkWritten(index.Products, 2, index.BulkResult{Indexed: 1, Failed: 1})
	mon.Progress("articles", 2)
	mon.Finish(&index.Report{Duration: 2 * time.Second}, nil)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.IndexRows.WithLabelValues(index.Products)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BulkFailedRows.WithLabelValues(index.Products)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsSeen.WithLabelValues("articles")))
	assert.Zero(t, testutil.ToFloat64(m.RebuildFailures))
	assert.Positive(t, testutil.ToFloat64(m.LastRebuild))

	mon.IndexRecreated(index.Products)
	assert.Zero(t, testutil.ToFloat64(m.IndexRows.WithLabelValues(index.Products)), "recreating resets the row count")

	mon.Finish(&index.Report{}, errors.New("engine down"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RebuildFailures))

	count, err := testutil.GatherAndCount(reg, "acooeaz_rebuild_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type emptyEngine struct{}

func (emptyEngine) DropIndex(context.Context, string) error   { return nil }
func (emptyEngine) CreateIndex(context.Context, string) error { return nil }
func (emptyEngine) Bulk(context.Context, string, []index.Document) (index.BulkResult, error) {
	return index.BulkResult{}, nil
}
func (emptyEngine) Search(context.Context, index.SearchRequest) ([]index.Hit, error) {
	return nil, nil
}
func (emptyEngine) Close() error { return nil }

func TestSearchMonitor_WiredIntoSearcher(t *testing.T) {
	m := New(prometheus.NewRegistry())
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	s, err := search.NewSearcher(emptyEngine{}, store, search.WithMonitor(m.SearchMonitor()))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.Query(ctx, index.Products, index.FieldProduct, "*aspirin*")
	require.NoError(t, err)
	_, err = s.Query(ctx, index.Products, index.FieldProduct, "**")
	require.NoError(t, err)
	s.Monitor().StaleReference(index.Products, "42")
	s.Monitor().QueryFailed(index.Products, "*aspirin*", errors.New("cluster unavailable"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueries.WithLabelValues(index.Products)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchSkipped.WithLabelValues(index.Products)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleReferences.WithLabelValues(index.Products)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchFailures.WithLabelValues(index.Products)))
}
