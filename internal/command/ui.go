// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/apex/log"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	mylog "github.com/staranto/todoq/internal/log"
	"github.com/staranto/todoq/internal/meta"
	"github.com/staranto/todoq/internal/view"
)

// UICommandAction is the action handler for the "ui" subcommand. It runs the
// interactive screen until the user quits.
func UICommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args)

	if ShortCircuitTLDR(ctx, cmd, "ui") {
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("ui requires an interactive terminal")
	}

	sess, err := NewSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if addr := cmd.String("metrics-addr"); addr != "" {
		stop, err := serveMetrics(addr, m)
		if err != nil {
			return err
		}
		defer stop()
	}

	// The screen owns the terminal from here on.
	restore, err := mylog.Redirect()
	if err != nil {
		return err
	}
	defer func() {
		_ = restore()
		mylog.InitLogger()
	}()

	p := tea.NewProgram(view.New(sess), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui failed: %w", err)
	}
	return nil
}

// serveMetrics exposes the process metrics on addr until the returned func
// is called.
func serveMetrics(addr string, m meta.Meta) (func(), error) {
	if m.Metrics == nil {
		return nil, errors.New("metrics are not enabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.Debugf("serving metrics on %s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// UICommandBuilder constructs the cli.Command for "ui".
func UICommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return (&QueryCommandBuilder{
		Name:      "ui",
		Usage:     "interactive todo list and form",
		UsageText: "todoq ui [--metrics-addr host:port]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on host:port while running",
			},
		},
		Action:      UICommandAction,
		Meta:        meta,
		Interactive: true,
	}).Build()
}
