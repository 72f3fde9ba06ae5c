// Package logging adapts the teacher's context-carried tracing
// (pkg/minikanren/context_utils.go's ContextMonitor, wfs_trace.go's
// atomic-bool enable gate) into the concrete stand-in for the spec's §6
// Logger external interface: a thread-safe, variadic, one-line-per-call
// print sink, backed by zerolog.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type workerIDKey struct{}

// WithWorker returns a context carrying a stable worker id, used in place
// of the original's thread-local thread_id() counter (shadowarch/print.hpp)
// since Go has no thread-local storage: the driver assigns an id once per
// goroutine it spawns and threads it through context.Context.
func WithWorker(ctx context.Context, id uint32) context.Context {
	return context.WithValue(ctx, workerIDKey{}, id)
}

func workerFrom(ctx context.Context) (uint32, bool) {
	id, ok := ctx.Value(workerIDKey{}).(uint32)
	return id, ok
}

// Printer is a thread-safe, enable-gated print sink: one zerolog event per
// call, newline-terminated by zerolog's writer, and atomic per invocation
// the same way the original's ios_printer locks a mutex for the duration
// of one operator() call.
type Printer struct {
	logger  zerolog.Logger
	enabled atomic.Bool
	nextID  atomic.Uint32
}

// New returns a Printer writing to w. enabled mirrors ios_printer's
// constructor flag (`ios_printer print{std::cout, true}`).
func New(w io.Writer, enabled bool) *Printer {
	p := &Printer{logger: zerolog.New(w).With().Timestamp().Logger()}
	p.enabled.Store(enabled)
	return p
}

// Disabled returns a Printer that drops every call, for use in tests where
// worker chatter would only add noise.
func Disabled() *Printer {
	return New(io.Discard, false)
}

// SetEnabled toggles whether Log calls reach the underlying writer.
func (p *Printer) SetEnabled(enabled bool) { p.enabled.Store(enabled) }

// AssignWorker hands out the next stable worker id, for callers that want
// one without threading it through an existing context (e.g. the driver
// assigning one id per spawned goroutine before calling WithWorker).
func (p *Printer) AssignWorker() uint32 {
	return p.nextID.Add(1) - 1
}

// Log writes one line built from args, concatenated with no separator after
// fmt.Sprint formatting of each value — the same heterogeneous-values, one-line
// contract as ios_printer::operator()(Args&&...). The worker id carried on
// ctx (if any) is attached as a structured field rather than a string
// prefix, since zerolog events are structured by nature.
func (p *Printer) Log(ctx context.Context, args ...any) {
	if !p.enabled.Load() {
		return
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	event := p.logger.Info()
	if id, ok := workerFrom(ctx); ok {
		event = event.Uint32("worker", id)
	}
	event.Msg(strings.Join(parts, ""))
}

// Range formats a slice of values the way ios_printer::range<Iterator>
// does: space-separated, with no surrounding brackets, suitable for
// passing as one of Log's args.
func Range[T any](items []T) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprint(it)
	}
	return strings.Join(parts, " ")
}
