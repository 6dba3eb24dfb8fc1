package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
)

// terminal prints notices to w and remembers the last navigation target.
type terminal struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
	route  domain.Route
}

func newTerminal(w io.Writer, logger *slog.Logger) *terminal {
	return &terminal{w: w, logger: logger}
}

func (t *terminal) Success(msg string) { t.print("ok", msg) }
func (t *terminal) Error(msg string)   { t.print("error", msg) }
func (t *terminal) Info(msg string)    { t.print("info", msg) }

func (t *terminal) print(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[%s] %s\n", level, msg)
}

func (t *terminal) Navigate(route domain.Route) {
	t.mu.Lock()
	t.route = route
	t.mu.Unlock()
	t.logger.Debug("navigate", slog.String("route", string(route)))
}

// Route returns the last navigation target.
func (t *terminal) Route() domain.Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.route
}
