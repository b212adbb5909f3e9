// Package progress reports run progress while the orchestrator works.
//
// Progress is advisory. Reporters never return errors; a reporter that
// cannot deliver an update logs it and carries on.
package progress

import (
	"context"
	"sync"

	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
)

// Event describes one finished candidate.
type Event struct {
	Done  int    `json:"done"`
	Total int    `json:"total"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Percent is the share of finished candidates, 0 to 100.
func (e Event) Percent() int {
	if e.Total <= 0 {
		return 100
	}
	return e.Done * 100 / e.Total
}

// Reporter receives progress from the orchestrator's collector goroutine.
type Reporter interface {
	Start(ctx context.Context, total int)
	Update(ctx context.Context, ev Event)
	Finish(ctx context.Context)
}

// Nop discards progress.
type Nop struct{}

func (Nop) Start(context.Context, int)    {}
func (Nop) Update(context.Context, Event) {}
func (Nop) Finish(context.Context)        {}

// Multi fans progress out to several reporters in order.
type Multi []Reporter

func (m Multi) Start(ctx context.Context, total int) {
	for _, r := range m {
		r.Start(ctx, total)
	}
}

func (m Multi) Update(ctx context.Context, ev Event) {
	for _, r := range m {
		r.Update(ctx, ev)
	}
}

func (m Multi) Finish(ctx context.Context) {
	for _, r := range m {
		r.Finish(ctx)
	}
}

// LogReporter logs at every 10% step.
type LogReporter struct {
	mu       sync.Mutex
	lastStep int
}

// NewLogReporter creates a LogReporter.
func NewLogReporter() *LogReporter {
	return &LogReporter{lastStep: -1}
}

func (l *LogReporter) Start(ctx context.Context, total int) {
	l.mu.Lock()
	l.lastStep = 0
	l.mu.Unlock()
	ctxlog.FromContext(ctx).Info("📦 Bundling started.", "candidates", total)
}

func (l *LogReporter) Update(ctx context.Context, ev Event) {
	step := ev.Percent() / 10
	l.mu.Lock()
	if step <= l.lastStep {
		l.mu.Unlock()
		return
	}
	l.lastStep = step
	l.mu.Unlock()
	ctxlog.FromContext(ctx).Info("Bundling progress.", "done", ev.Done, "total", ev.Total, "percent", step*10)
}

func (l *LogReporter) Finish(ctx context.Context) {
	ctxlog.FromContext(ctx).Debug("Progress reporting finished.")
}
