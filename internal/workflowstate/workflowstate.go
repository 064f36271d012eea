package workflowstate

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/durableio/rewind/backend/converter"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/core"
	"github.com/durableio/rewind/internal/command"
	"github.com/durableio/rewind/internal/sync"
)

type key int

var workflowCtxKey key

// DecodingSettable resolves a pending future with a raw payload or an error.
// The payload is decoded into the future's type before setting it.
type DecodingSettable func(v payload.Payload, err error) error

// AsDecodingSettable wraps a typed future so the executor can resolve it from
// a history event payload.
func AsDecodingSettable[T any](cv converter.Converter, name string, f sync.SettableFuture[T]) DecodingSettable {
	return func(v payload.Payload, err error) error {
		if v != nil {
			var t T
			if err := cv.From(v, &t); err != nil {
				return fmt.Errorf("converting result payload for %q: %w", name, err)
			}

			return f.Set(t, err)
		}

		var z T
		return f.Set(z, err)
	}
}

type WfState struct {
	instance        *core.WorkflowInstance
	scheduleEventID int64
	commands        []command.Command
	pendingFutures  map[int64]DecodingSettable
	signalChannels  map[string]*signalChannel
	pendingSignals  map[string][]payload.Payload
	handlers        *Handlers
	replaying       bool

	clock clock.Clock
	time  time.Time

	logger *slog.Logger
	rand   *rand.Rand
}

func NewWorkflowState(instance *core.WorkflowInstance, logger *slog.Logger, clock clock.Clock) *WfState {
	state := &WfState{
		instance:        instance,
		scheduleEventID: 1,
		commands:        []command.Command{},
		pendingFutures:  map[int64]DecodingSettable{},
		signalChannels:  make(map[string]*signalChannel),
		pendingSignals:  map[string][]payload.Payload{},
		handlers:        NewHandlers(),
		clock:           clock,

		// Seed deterministically from the execution so random values replay
		rand: rand.New(rand.NewSource(executionSeed(instance))),
	}

	state.logger = NewReplayLogger(state, logger)

	return state
}

func executionSeed(instance *core.WorkflowInstance) int64 {
	h := fnv.New64a()
	h.Write([]byte(instance.InstanceID))
	h.Write([]byte(instance.ExecutionID))
	return int64(h.Sum64())
}

func WorkflowState(ctx sync.Context) *WfState {
	return ctx.Value(workflowCtxKey).(*WfState)
}

func WithWorkflowState(ctx sync.Context, wfState *WfState) sync.Context {
	return sync.WithValue(ctx, workflowCtxKey, wfState)
}

func (wf *WfState) GetNextScheduleEventID() int64 {
	scheduleEventID := wf.scheduleEventID
	wf.scheduleEventID++
	return scheduleEventID
}

func (wf *WfState) TrackFuture(scheduleEventID int64, f DecodingSettable) {
	wf.pendingFutures[scheduleEventID] = f
}

func (wf *WfState) FutureByScheduleEventID(scheduleEventID int64) (DecodingSettable, bool) {
	f, ok := wf.pendingFutures[scheduleEventID]
	return f, ok
}

func (wf *WfState) RemoveFuture(scheduleEventID int64) {
	delete(wf.pendingFutures, scheduleEventID)
}

func (wf *WfState) HasPendingFutures() bool {
	return len(wf.pendingFutures) > 0
}

// PendingFutureIDs returns the schedule event ids of all unresolved futures,
// sorted for deterministic reporting.
func (wf *WfState) PendingFutureIDs() []int64 {
	ids := make([]int64, 0, len(wf.pendingFutures))
	for id := range wf.pendingFutures {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

func (wf *WfState) Commands() []command.Command {
	return wf.commands
}

func (wf *WfState) AddCommand(cmd command.Command) {
	wf.commands = append(wf.commands, cmd)
}

func (wf *WfState) CommandByScheduleEventID(scheduleEventID int64) command.Command {
	for _, c := range wf.commands {
		if c.ID() == scheduleEventID {
			return c
		}
	}

	return nil
}

func (wf *WfState) RemoveCommand(cmd command.Command) {
	for i, c := range wf.commands {
		if c == cmd {
			wf.commands = append(wf.commands[:i], wf.commands[i+1:]...)
			return
		}
	}
}

func (wf *WfState) ClearCommands() {
	wf.commands = []command.Command{}
}

func (wf *WfState) Handlers() *Handlers {
	return wf.handlers
}

func (wf *WfState) SetReplaying(replaying bool) {
	wf.replaying = replaying
}

func (wf *WfState) Replaying() bool {
	return wf.replaying
}

func (wf *WfState) SetTime(t time.Time) {
	wf.time = t
}

// Time is the deterministic workflow time, advanced by WorkflowTaskStarted
// events only.
func (wf *WfState) Time() time.Time {
	return wf.time
}

func (wf *WfState) Instance() *core.WorkflowInstance {
	return wf.instance
}

func (wf *WfState) Logger() *slog.Logger {
	return wf.logger
}

// Rand is a deterministic source of randomness scoped to this execution.
func (wf *WfState) Rand() *rand.Rand {
	return wf.rand
}
