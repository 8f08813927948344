// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup outcomes recorded on todoq_query_reads_total.
const (
	ReadHit   = "hit"
	ReadMiss  = "miss"
	ReadDedup = "dedup"
)

// Metrics holds the collectors for the query cache and the mutation executor.
// All methods are safe to call on a nil receiver, which records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	reads         *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	discarded     *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	entries       prometheus.Gauge
	mutations     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	reads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todoq_query_reads_total",
		Help: "Total cache reads by outcome",
	}, []string{"key", "outcome"})

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todoq_query_fetches_total",
		Help: "Total fetcher invocations",
	}, []string{"key"})

	fetchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todoq_query_fetch_errors_total",
		Help: "Total fetches that settled in error",
	}, []string{"key"})

	discarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todoq_query_discarded_total",
		Help: "Total fetch results dropped because a newer fetch superseded them",
	}, []string{"key"})

	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todoq_query_invalidations_total",
		Help: "Total key invalidations",
	}, []string{"key"})

	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todoq_query_evictions_total",
		Help: "Total entries removed after inactivity",
	}, []string{"key"})

	entries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "todoq_query_entries",
		Help: "Entries currently held by the cache",
	})

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "todoq_mutations_total",
		Help: "Total settled mutations by status",
	}, []string{"status"})

	registry.MustRegister(reads, fetches, fetchErrors, discarded, invalidations, evictions, entries, mutations)

	return &Metrics{
		registry:      registry,
		reads:         reads,
		fetches:       fetches,
		fetchErrors:   fetchErrors,
		discarded:     discarded,
		invalidations: invalidations,
		evictions:     evictions,
		entries:       entries,
		mutations:     mutations,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRead(key string, outcome string) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(key, outcome).Inc()
}

func (m *Metrics) ObserveFetch(key string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(key).Inc()
}

func (m *Metrics) ObserveFetchError(key string) {
	if m == nil {
		return
	}
	m.fetchErrors.WithLabelValues(key).Inc()
}

func (m *Metrics) ObserveDiscard(key string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(key).Inc()
}

func (m *Metrics) ObserveInvalidate(key string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(key).Inc()
}

func (m *Metrics) ObserveEvict(key string) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(key).Inc()
}

func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}

func (m *Metrics) ObserveMutation(status string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(status).Inc()
}
