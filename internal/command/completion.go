// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/todoq/internal/meta"
)

const bashCompletionScript = `# bash completion for todoq
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_todoq()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "add list ui completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local endpoint="--endpoint -e --timeout --tldr"
    local common="$endpoint --attrs -a --color -c --filter -f --find --output -o --schema --sort -s --titles -t"

    case "$cmd" in
        add)
            local opts="$common --title --user -u --list -l"
            ;;
        list)
            local opts="$common"
            ;;
        ui)
            local opts="$endpoint --metrics-addr"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _todoq todoq
`

const zshCompletionScript = `#compdef todoq

_todoq() {
  local -a cmds
  cmds=(
    'add:create a todo'
    'list:list todos'
    'ui:interactive todo list and form'
    'completion:generate shell completion script'
  )

  local -a endpoint
  endpoint=(
  '(-e --endpoint)'{-e,--endpoint}'[base URL of the todo service]:url'
  '--timeout[HTTP timeout]:duration'
  '--tldr[show tldr page]'
  )

  local -a common
  common=(
  $endpoint
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '--find[fuzzy pattern]:pattern'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '--schema[dump schema]'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'todoq commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    add)
      _arguments -C \
        $common \
        '--title[title of the new todo]:title' \
        '(-u --user)'{-u,--user}'[user id of the new todo]:user' \
        '(-l --list)'{-l,--list}'[list todos after the write]'
      ;;
    list)
      _arguments -C $common '::set:'
      ;;
    ui)
      _arguments -C \
        $endpoint \
        '--metrics-addr[serve metrics on host:port]:addr'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _todoq todoq
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: todoq completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "todoq completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
