// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes rebuild and search activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/poiesic/acooeaz/index"
	"github.com/poiesic/acooeaz/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "acooeaz"

// Metrics holds the collectors. Both monitors it hands out write to the
// same registry.
type Metrics struct {
	RebuildDuration prometheus.Histogram
	RebuildFailures prometheus.Counter
	LastRebuild     prometheus.Gauge
	IndexRows       *prometheus.GaugeVec
	BulkFailedRows  *prometheus.CounterVec
	DocumentsSeen   *prometheus.GaugeVec

	SearchQueries   *prometheus.CounterVec
	SearchSkipped   *prometheus.CounterVec
	SearchFailures  *prometheus.CounterVec
	StaleReferences *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of index rebuilds in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		RebuildFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuild_failures_total",
			Help:      "Total number of failed index rebuilds",
		}),
		LastRebuild: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_rebuild_success_timestamp_seconds",
			Help:      "Unix time of the last successful rebuild",
		}),
		IndexRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_rows",
			Help:      "Rows written to each index since it was last recreated",
		}, []string{"index"}),
		BulkFailedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_failed_rows_total",
			Help:      "Rows the search engine rejected during bulk writes",
		}, []string{"index"}),
		DocumentsSeen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rebuild_documents_seen",
			Help:      "Documents visited by the running or last rebuild",
		}, []string{"family"}),
		SearchQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Queries submitted to the search engine",
		}, []string{"index"}),
		SearchSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_skipped_total",
			Help:      "Queries answered empty because they carry no letter or digit",
		}, []string{"index"}),
		SearchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_failures_total",
			Help:      "Queries the search engine answered with an error",
		}, []string{"index"}),
		StaleReferences: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_stale_references_total",
			Help:      "Hits dropped because the referenced document no longer exists",
		}, []string{"index"}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of search engine queries in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"index"}),
	}
}

// RebuildMonitor returns an index.Monitor recording into m.
func (m *Metrics) RebuildMonitor() index.Monitor {
	return &rebuildMonitor{m: m}
}

// SearchMonitor returns a search.Monitor recording into m.
func (m *Metrics) SearchMonitor() search.Monitor {
	return &searchMonitor{m: m}
}

type rebuildMonitor struct {
	m *Metrics
}

var _ index.Monitor = (*rebuildMonitor)(nil)

func (r *rebuildMonitor) IndexRecreated(name string) {
	r.m.IndexRows.WithLabelValues(name).Set(0)
}

func (r *rebuildMonitor) Progress(family string, seen int) {
	r.m.DocumentsSeen.WithLabelValues(family).Set(float64(seen))
}

func (r *rebuildMonitor) BulkWritten(name string, _ int, result index.BulkResult) {
	r.m.IndexRows.WithLabelValues(name).Add(float64(result.Indexed))
	if result.Failed > 0 {
		r.m.BulkFailedRows.WithLabelValues(name).Add(float64(result.Failed))
	}
}

func (r *rebuildMonitor) Finish(report *index.Report, err error) {
	if report != nil {
		r.m.RebuildDuration.Observe(report.Duration.Seconds())
	}
	if err != nil {
		r.m.RebuildFailures.Inc()
		return
	}
	r.m.LastRebuild.SetToCurrentTime()
}

type searchMonitor struct {
	m *Metrics
}

var _ search.Monitor = (*searchMonitor)(nil)

func (s *searchMonitor) QueryIssued(name, _ string) {
	s.m.SearchQueries.WithLabelValues(name).Inc()
}

func (s *searchMonitor) QuerySkipped(name, _ string) {
	s.m.SearchSkipped.WithLabelValues(name).Inc()
}

func (s *searchMonitor) StaleReference(name, _ string) {
	s.m.StaleReferences.WithLabelValues(name).Inc()
}

func (s *searchMonitor) QueryFailed(name, _ string, _ error) {
	s.m.SearchFailures.WithLabelValues(name).Inc()
}

func (s *searchMonitor) Finish(name string, _ int, elapsed time.Duration) {
	s.m.SearchDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}
