// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"reflect"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/todoq/internal/attrs"
	"github.com/staranto/todoq/internal/config"
	"github.com/staranto/todoq/internal/meta"
	"github.com/staranto/todoq/internal/output"
	"github.com/staranto/todoq/internal/query"
	"github.com/staranto/todoq/internal/session"
	"github.com/staranto/todoq/internal/todo"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr todoq <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "todoq", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// DumpSchemaIfRequested prints the attributes of the provided type when
// --schema is set, and returns true if it handled the request.
func DumpSchemaIfRequested(cmd *cli.Command, t reflect.Type) bool {
	if cmd.Bool("schema") {
		output.DumpSchema(cmd.Root().Writer, t)
		return true
	}
	return false
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults string) (attrs.AttrList, error) {
	al, err := attrs.Parse(defaults, cmd.String("attrs"))
	if err != nil {
		return nil, fmt.Errorf("invalid --attrs: %w", err)
	}
	return al, nil
}

// EmitRecords marshals the records and passes them to the common output
// routine.
func EmitRecords(records []todo.Record, al attrs.AttrList, cmd *cli.Command) error {
	if records == nil {
		records = []todo.Record{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	return output.SliceDiceSpit(raw, al, output.OptionsFromCommand(cmd), cmd.Root().Writer)
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// NewSession builds a session against the service named by the --endpoint
// and --timeout flags. Cache timings come from cache.gc and cache.stale.
func NewSession(cmd *cli.Command) (*session.Session, error) {
	m := GetMeta(cmd)

	gc, err := config.GetDuration("cache.gc", query.DefaultGCTime)
	if err != nil {
		return nil, fmt.Errorf("invalid cache.gc: %w", err)
	}
	stale, err := config.GetDuration("cache.stale", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid cache.stale: %w", err)
	}

	client := todo.NewClient(cmd.String("endpoint"), cmd.Duration("timeout"))
	log.Debugf("endpoint: %s gc=%s stale=%s", client.BaseURL, gc, stale)

	return session.New(client, session.Options{
		GCTime:    gc,
		StaleTime: stale,
		Metrics:   m.Metrics,
	})
}

// QueryCommandBuilder is a helper that constructs a cli.Command for the
// subcommands that talk to the todo service using a consistent pattern.
// The builder automatically wires metadata, adds tldr/schema flags, applies
// endpoint and, unless Interactive, global output flags, and sets up
// validators.
type QueryCommandBuilder struct {
	Name        string
	Usage       string
	UsageText   string
	Flags       []cli.Flag
	Action      func(context.Context, *cli.Command) error
	Meta        meta.Meta
	Interactive bool
}

// Build returns a configured cli.Command from the builder.
func (qcb *QueryCommandBuilder) Build() *cli.Command {
	flags := append(qcb.Flags, tldrFlag)
	flags = append(flags, NewEndpointFlags(qcb.Name)...)
	if !qcb.Interactive {
		flags = append(flags, schemaFlag)
		flags = append(flags, NewGlobalFlags(qcb.Name)...)
	}

	return &cli.Command{
		Name:      qcb.Name,
		Usage:     qcb.Usage,
		UsageText: qcb.UsageText,
		Metadata: map[string]any{
			"meta": qcb.Meta,
		},
		Flags: flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: qcb.Action,
	}
}

// QueryActionRunner encapsulates the common query action pattern. It handles
// GetMeta, the short-circuit checks, BuildAttrs and output emission, with
// the data fetching provided by FetchFn.
type QueryActionRunner struct {
	CommandName  string
	SchemaType   reflect.Type
	DefaultAttrs string
	FetchFn      func(context.Context, *cli.Command) ([]todo.Record, error)
}

// Run executes the query action with the provided context and command.
func (qar *QueryActionRunner) Run(
	ctx context.Context,
	cmd *cli.Command,
) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args)

	if ShortCircuitTLDR(ctx, cmd, qar.CommandName) {
		return nil
	}
	if DumpSchemaIfRequested(cmd, qar.SchemaType) {
		return nil
	}

	al, err := BuildAttrs(cmd, qar.DefaultAttrs)
	if err != nil {
		return err
	}
	log.Debugf("attrs: %v", al)

	results, err := qar.FetchFn(ctx, cmd)
	if err != nil {
		return err
	}

	return EmitRecords(results, al, cmd)
}

// readTodos reads the list through sess and turns a failed entry into its
// error.
func readTodos(ctx context.Context, sess *session.Session) ([]todo.Record, error) {
	entry, err := sess.Read(ctx)
	if err != nil {
		return nil, err
	}
	if entry.Failed() {
		return nil, entry.Err
	}
	return entry.Data, nil
}
