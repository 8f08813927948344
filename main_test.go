// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/todoq/internal/config"
)

func TestMangleArguments(t *testing.T) {
	_, err := config.Load("internal/config/testdata/nested.yaml")
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "named set is spliced in place",
			args: []string{"todoq", "list", "@done", "-o", "json"},
			want: []string{"todoq", "list", "--filter", "completed=true", "-o", "json"},
		},
		{
			name: "set after flags",
			args: []string{"todoq", "list", "-o", "json", "@done"},
			want: []string{"todoq", "list", "-o", "json", "--filter", "completed=true"},
		},
		{
			name: "unknown set is dropped",
			args: []string{"todoq", "list", "@nope", "-t"},
			want: []string{"todoq", "list", "-t"},
		},
		{
			name: "no defaults configured",
			args: []string{"todoq", "add", "--title", "milk"},
			want: []string{"todoq", "add", "--title", "milk"},
		},
		{
			name: "bare at sign is an argument",
			args: []string{"todoq", "add", "--title", "@"},
			want: []string{"todoq", "add", "--title", "@"},
		},
		{
			name: "help wins",
			args: []string{"todoq", "list", "@done", "-h"},
			want: []string{"todoq", "list", "--help"},
		},
		{
			name: "leading flag",
			args: []string{"todoq", "--version"},
			want: []string{"todoq", "--version"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mangleArguments(tt.args))
		})
	}
}
