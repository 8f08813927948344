// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package todo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoTodos = `[
  {"userId": 1, "id": 1, "title": "A", "completed": false},
  {"userId": 2, "id": 2, "title": "B", "completed": true}
]`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, ReadPath, r.URL.Path)
		_, _ = io.WriteString(w, twoTodos)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{UserID: 1, ID: 1, Title: "A"},
		{UserID: 2, ID: 2, Title: "B", Completed: true},
	}, got)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErr    error
	}{
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{}`,
			wantStatus: http.StatusInternalServerError,
			wantErr:    ErrUnexpectedStatus,
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       ``,
			wantStatus: http.StatusNotFound,
			wantErr:    ErrUnexpectedStatus,
		},
		{
			name:       "not json",
			status:     http.StatusOK,
			body:       `<html>`,
			wantStatus: http.StatusOK,
			wantErr:    ErrMalformedPayload,
		},
		{
			name:       "object not array",
			status:     http.StatusOK,
			body:       `{"id": 1}`,
			wantStatus: http.StatusOK,
			wantErr:    ErrMalformedPayload,
		},
		{
			name:       "array of scalars",
			status:     http.StatusOK,
			body:       `[1, 2]`,
			wantStatus: http.StatusOK,
			wantErr:    ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, 0).Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.wantStatus, fe.StatusCode)
			assert.Equal(t, srv.URL+ReadPath, fe.URL)
		})
	}
}

func TestFetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, 0).Fetch(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.StatusCode)
}

func TestFetch_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name   string
		rec    NewRecord
		status int
		want   string
		ok     bool
	}{
		{
			name:   "numeric user",
			rec:    NewRecord{Title: "X", UserID: "2"},
			status: http.StatusCreated,
			want:   `{"title":"X","userId":2}`,
			ok:     true,
		},
		{
			name:   "textual user",
			rec:    NewRecord{Title: "X", UserID: "bob"},
			status: http.StatusCreated,
			want:   `{"title":"X","userId":"bob"}`,
			ok:     true,
		},
		{
			name:   "empty fields",
			rec:    NewRecord{},
			status: http.StatusOK,
			want:   `{"title":"","userId":""}`,
			ok:     true,
		},
		{
			name:   "rejected",
			rec:    NewRecord{Title: "X", UserID: "2"},
			status: http.StatusBadRequest,
			want:   `{"title":"X","userId":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, WritePath, r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				body, _ = io.ReadAll(r.Body)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"id": 101}`)
			}))
			defer srv.Close()

			err := NewClient(srv.URL, 0).Create(context.Background(), tt.rec)
			assert.JSONEq(t, tt.want, string(body))
			if tt.ok {
				assert.NoError(t, err)
				return
			}

			var we *WriteError
			require.ErrorAs(t, err, &we)
			assert.Equal(t, tt.status, we.StatusCode)
			assert.ErrorIs(t, err, ErrUnexpectedStatus)
		})
	}
}

func TestUserRef_MarshalJSON(t *testing.T) {
	tests := map[UserRef]string{
		"7":   `7`,
		" 7 ": `7`,
		"-3":  `-3`,
		"7a":  `"7a"`,
		"":    `""`,
		"1.5": `"1.5"`,
		"ünï": `"ünï"`,
	}
	for in, want := range tests {
		got, err := json.Marshal(in)
		require.NoError(t, err)
		assert.Equal(t, want, string(got), "input %q", string(in))
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", 0)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)

	c = NewClient("http://example.test/", 0)
	assert.Equal(t, "http://example.test", c.BaseURL)
}

func TestDelta(t *testing.T) {
	a := []Record{{UserID: 1, ID: 1, Title: "A"}}
	b := []Record{{UserID: 1, ID: 1, Title: "A"}, {UserID: 2, ID: 101, Title: "X"}}

	d, err := Delta(a, a)
	require.NoError(t, err)
	assert.Empty(t, d)

	d, err = Delta(a, b)
	require.NoError(t, err)
	assert.Contains(t, d, "X")
}
