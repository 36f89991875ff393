package device

import (
	"context"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/farmbot-watering/internal/model/messages"
)

// Command is one call made on a Recorder.
type Command struct {
	Kind string
	Args map[string]any
}

// Recorder is a Device that only logs and records what it is asked to do.
// It backs --dry-run and the controller tests.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	fail     map[string]error
}

var _ Device = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{fail: make(map[string]error)}
}

// FailOn makes every later command of kind return err.
func (r *Recorder) FailOn(kind string, err error) {
	r.mu.Lock()
	r.fail[kind] = err
	r.mu.Unlock()
}

// Commands returns a copy of what was recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Kinds returns the kind of every recorded command, in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.commands))
	for i, c := range r.commands {
		out[i] = c.Kind
	}
	return out
}

func (r *Recorder) record(kind string, args map[string]any) error {
	L.Info("dry-run", "kind", kind, "args", args)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, Command{Kind: kind, Args: args})
	return r.fail[kind]
}

func (r *Recorder) MoveAbsolute(_ context.Context, x, y, z float64) error {
	return r.record(messages.KindMoveAbsolute, map[string]any{"x": x, "y": y, "z": z})
}

func (r *Recorder) WritePin(_ context.Context, pin, mode, value int) error {
	return r.record(messages.KindWritePin, map[string]any{"pin": pin, "mode": mode, "value": value})
}

func (r *Recorder) ReadPin(_ context.Context, pin, mode int) error {
	return r.record(messages.KindReadPin, map[string]any{"pin": pin, "mode": mode})
}

func (r *Recorder) ExecSequence(_ context.Context, sequenceID, toolID int) error {
	return r.record(messages.KindExecute, map[string]any{"sequence_id": sequenceID, "tool_id": toolID})
}

// Wait returns at once, unless ctx is already done.
func (r *Recorder) Wait(ctx context.Context, d time.Duration) error {
	if err := r.record("wait", map[string]any{"duration": d}); err != nil {
		return err
	}
	return ctx.Err()
}
