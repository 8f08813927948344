// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: MIT

// Package obs provides the Prometheus collectors shared by the query cache
// and the mutation executor.
package obs
