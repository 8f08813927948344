// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/staranto/todoq/internal/mutation"
	"github.com/staranto/todoq/internal/query"
	"github.com/staranto/todoq/internal/todo"
)

var sample = []todo.Record{
	{UserID: 1, ID: 1, Title: "A"},
	{UserID: 2, ID: 2, Title: "B"},
}

func TestPresent(t *testing.T) {
	boom := errors.New("boom")

	idle := query.Entry[[]todo.Record]{Status: query.StatusIdle}
	loading := query.Entry[[]todo.Record]{Status: query.StatusLoading}
	ok := query.Entry[[]todo.Record]{Status: query.StatusSuccess, Data: sample, HasData: true}
	failed := query.Entry[[]todo.Record]{Status: query.StatusError, Err: boom}
	failedWithData := query.Entry[[]todo.Record]{Status: query.StatusError, Err: boom, Data: sample, HasData: true}

	mIdle := mutation.State{Status: mutation.StatusIdle}
	mLoading := mutation.State{Status: mutation.StatusLoading}
	mOK := mutation.State{Status: mutation.StatusSuccess}
	mFailed := mutation.State{Status: mutation.StatusError, Err: boom}

	tests := []struct {
		name     string
		entry    query.Entry[[]todo.Record]
		mut      mutation.State
		want     Kind
		showList bool
	}{
		{name: "cache loading", entry: loading, mut: mIdle, want: KindLoading},
		{name: "mutation loading", entry: ok, mut: mLoading, want: KindLoading},
		{name: "loading beats error", entry: failed, mut: mLoading, want: KindLoading},
		{name: "cache loading beats mutation error", entry: loading, mut: mFailed, want: KindLoading},
		{name: "cache error", entry: failed, mut: mIdle, want: KindError},
		{name: "cache error keeps data hidden", entry: failedWithData, mut: mOK, want: KindError},
		{name: "mutation error", entry: ok, mut: mFailed, want: KindError},
		{name: "success", entry: ok, mut: mIdle, want: KindForm, showList: true},
		{name: "success after submit", entry: ok, mut: mOK, want: KindForm, showList: true},
		{name: "idle", entry: idle, mut: mIdle, want: KindForm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Present(tt.entry, tt.mut)
			assert.Equal(t, tt.want, got.Kind)
			assert.Equal(t, tt.showList, got.ShowList)
			if tt.showList {
				assert.Equal(t, sample, got.Records)
			} else {
				assert.Nil(t, got.Records)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "form", KindForm.String())
	assert.Equal(t, "loading", KindLoading.String())
	assert.Equal(t, "error", KindError.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
