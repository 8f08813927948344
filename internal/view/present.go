// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package view

import (
	"github.com/staranto/todoq/internal/mutation"
	"github.com/staranto/todoq/internal/query"
	"github.com/staranto/todoq/internal/todo"
)

// ErrorText is shown for any fetch or submit failure.
const ErrorText = "Error: Failed to fetch or submit data"

// Kind is the top level presentation of the screen.
type Kind int

const (
	KindForm Kind = iota
	KindLoading
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindForm:
		return "form"
	case KindLoading:
		return "loading"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Screen is the outcome of Present.
type Screen struct {
	Kind Kind
	// ShowList is set when the form is shown and the list entry holds a
	// successful result.
	ShowList bool
	Records  []todo.Record
}

// Present applies the presentation rules in order: any loading state wins,
// then any error, then the form with the list when there is one.
func Present(e query.Entry[[]todo.Record], m mutation.State) Screen {
	switch {
	case e.Loading() || m.Loading():
		return Screen{Kind: KindLoading}
	case e.Failed() || m.Failed():
		return Screen{Kind: KindError}
	case e.Success():
		return Screen{Kind: KindForm, ShowList: true, Records: e.Data}
	default:
		return Screen{Kind: KindForm}
	}
}
