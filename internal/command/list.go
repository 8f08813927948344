// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"reflect"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/todoq/internal/attrs"
	"github.com/staranto/todoq/internal/meta"
	"github.com/staranto/todoq/internal/todo"
)

// ListCommandAction is the action handler for the "list" subcommand. It
// reads the todo list once and renders it through the output pipeline.
func ListCommandAction(ctx context.Context, cmd *cli.Command) error {
	runner := &QueryActionRunner{
		CommandName:  "list",
		SchemaType:   reflect.TypeOf(todo.Record{}),
		DefaultAttrs: attrs.TodoDefaults,
		FetchFn: func(ctx context.Context, cmd *cli.Command) ([]todo.Record, error) {
			sess, err := NewSession(cmd)
			if err != nil {
				return nil, err
			}
			defer sess.Close()

			records, err := readTodos(ctx, sess)
			if err != nil {
				return nil, err
			}
			log.Debugf("read %d todos, updated %s", len(records),
				humanize.Time(sess.Todos().UpdatedAt))
			return records, nil
		},
	}

	return runner.Run(ctx, cmd)
}

// ListCommandBuilder constructs the cli.Command for "list".
func ListCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "list",
		Usage:     "list todos",
		UsageText: "todoq list [@set] [options]",
		Action:    ListCommandAction,
		Meta:      meta,
	}).Build()
}
