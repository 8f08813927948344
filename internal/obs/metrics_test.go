// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package obs

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveRead("todos", ReadMiss)
	m.ObserveRead("todos", ReadHit)
	m.ObserveRead("todos", ReadHit)
	m.ObserveFetch("todos")
	m.ObserveFetchError("todos")
	m.ObserveDiscard("todos")
	m.ObserveInvalidate("todos")
	m.ObserveEvict("todos")
	m.SetEntries(3)
	m.ObserveMutation("success")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reads.WithLabelValues("todos", ReadHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reads.WithLabelValues("todos", ReadMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("todos")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchErrors.WithLabelValues("todos")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discarded.WithLabelValues("todos")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invalidations.WithLabelValues("todos")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions.WithLabelValues("todos")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.entries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("success")))
}

func TestMetrics_NilIsInert(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRead("todos", ReadDedup)
		m.ObserveFetch("todos")
		m.SetEntries(1)
		m.ObserveMutation("error")
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveFetch("todos")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `todoq_query_fetches_total{key="todos"} 1`)
}
