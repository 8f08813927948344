// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

const (
	EnvLevel = "TODOQ_LOG"
	EnvFile  = "TODOQ_LOG_FILE"
)

// InitLogger sets up Apex with a custom handler and a log level from the
// TODOQ_LOG env variable. Messages go to stderr so they never mix with
// command output.
func InitLogger() {
	level := strings.ToUpper(os.Getenv(EnvLevel))
	if level == "" {
		level = "ERROR"
	}
	log.SetHandler(&CustomHandler{Writer: os.Stderr})
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.ErrorLevel
	}
	log.SetLevel(lvl)
}

// Redirect sends log output to the file named by TODOQ_LOG_FILE, or
// discards it when that is unset. It is used while a full screen program
// owns the terminal. The returned func closes the file.
func Redirect() (func() error, error) {
	path := os.Getenv(EnvFile)
	if path == "" {
		log.SetHandler(&CustomHandler{Writer: io.Discard})
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetHandler(&CustomHandler{Writer: f})
	return f.Close, nil
}

// CustomHandler formats log messages and writes them to Writer.
type CustomHandler struct {
	Writer io.Writer
	mu     sync.Mutex
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	level := strings.ToUpper(e.Level.String())

	message := e.Message
	for _, name := range e.Fields.Names() {
		message += fmt.Sprintf(" %s=%v", name, e.Fields.Get(name))
	}

	w := h.Writer
	if w == nil {
		w = os.Stderr
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(w, "%s %.1s %s\n", timestamp.Format("2006-01-02 15:04:05"), level, message)
	return err
}
