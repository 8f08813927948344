// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apex/log"

	"github.com/staranto/todoq/internal/command"
	"github.com/staranto/todoq/internal/config"
	mylog "github.com/staranto/todoq/internal/log"
	"github.com/staranto/todoq/internal/version"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments splices the config value <cmd>.<set> into the args in
// place of an @set argument. With no @set, <cmd>.defaults is used.
func mangleArguments(args []string) []string {
	// We know the first two args are going to be the executable and command.
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	// Short-circuit for --help/-h. If help is requested, just keep the preamble
	// and add --help flag.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	// A leading flag means there is no subcommand to namespace a set under.
	if strings.HasPrefix(args[1], "-") {
		return args
	}

	workingArgs := append(preamble, args[2:]...)

	idx := 2
	set := "defaults"
	// See if there is a @set specified. If so, that becomes the insertion point
	// and the @set entry is removed from args.
	for i, a := range workingArgs[idx:] {
		if strings.HasPrefix(a, "@") && len(a) > 1 {
			set = a[1:]
			idx += i
			workingArgs = append(workingArgs[:idx], workingArgs[idx+1:]...)
			break
		}
	}

	setArgs, _ := config.GetStringSlice(workingArgs[1] + "." + set)
	for _, arg := range setArgs {
		parts := strings.Fields(arg)
		workingArgs = append(workingArgs[:idx], append(parts, workingArgs[idx:]...)...)
		idx += len(parts)
	}

	log.Debugf("idx=%d, set=%s, args=%v", idx, set, workingArgs)
	return workingArgs
}
