// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"

	"github.com/staranto/todoq/internal/config"
	"github.com/staranto/todoq/internal/obs"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	// Metrics is shared by every cache and executor built for the process.
	Metrics     *obs.Metrics
	StartingDir string
}
