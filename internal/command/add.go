// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"reflect"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/todoq/internal/attrs"
	"github.com/staranto/todoq/internal/meta"
	"github.com/staranto/todoq/internal/todo"
)

// AddCommandAction is the action handler for the "add" subcommand. It
// submits one todo and, with --list, renders the list refetched after the
// write.
func AddCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args)

	if ShortCircuitTLDR(ctx, cmd, "add") {
		return nil
	}
	if DumpSchemaIfRequested(cmd, reflect.TypeOf(todo.NewRecord{})) {
		return nil
	}

	al, err := BuildAttrs(cmd, attrs.TodoDefaults)
	if err != nil {
		return err
	}

	sess, err := NewSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	rec := todo.NewRecord{
		Title:  cmd.String("title"),
		UserID: todo.UserRef(cmd.String("user")),
	}

	// Reading first gives the write something to invalidate, so the read
	// below observes a refetch rather than a first load.
	if cmd.Bool("list") {
		if _, err := readTodos(ctx, sess); err != nil {
			log.WithError(err).Warn("add: initial read failed")
		}
	}

	state, err := sess.Submit(rec).Wait(ctx)
	if err != nil {
		return err
	}
	if state.Failed() {
		return state.Err
	}
	log.Debugf("mutation %d settled in %s", state.ID, state.SettledAt.Sub(state.StartedAt))

	if !cmd.Bool("list") {
		fmt.Fprintf(cmd.Root().Writer, "created %q for user %s\n", rec.Title, rec.UserID)
		return nil
	}

	records, err := readTodos(ctx, sess)
	if err != nil {
		return err
	}
	return EmitRecords(records, al, cmd)
}

// AddCommandBuilder constructs the cli.Command for "add".
func AddCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "add",
		Usage:     "create a todo",
		UsageText: "todoq add --title TITLE --user USER [--list] [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "title",
				Usage: "title of the new todo",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "user id of the new todo",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
			&cli.BoolFlag{
				Name:        "list",
				Aliases:     []string{"l"},
				Usage:       "list todos after the write",
				HideDefault: true,
			},
		},
		Action: AddCommandAction,
		Meta:   meta,
	}).Build()
}
