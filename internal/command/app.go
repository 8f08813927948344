// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/todoq/internal/config"
	"github.com/staranto/todoq/internal/meta"
	"github.com/staranto/todoq/internal/obs"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// The arg[1] immediately following the binary (arg[0]) is the todoq
	// subcommand and also represents the namespace key to be used when retrieving
	// config values. arg[1] could be -h/--help, so ignore it if it appears to be
	// a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load()
	cfg.Namespace = ns
	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		Metrics:     obs.NewMetrics(),
		StartingDir: sd,
	}

	app := &cli.Command{
		Name:  "todoq",
		Usage: "Todo list query and update",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "todoq version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		AddCommandBuilder(app, meta),
		CompletionCommandBuilder(app, meta),
		ListCommandBuilder(app, meta),
		UICommandBuilder(app, meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
