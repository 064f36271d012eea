package workflowstate

import (
	"sort"

	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/internal/contextvalue"
	"github.com/durableio/rewind/internal/sync"
)

type signalChannel struct {
	receive func(input payload.Payload)
	channel interface{}
}

// ReceiveSignal delivers a signal to the channel for the given name. Signals
// arriving before any channel exists are buffered; a channel created later
// drains the buffer.
func ReceiveSignal(wf *WfState, name string, arg payload.Payload) {
	sc, ok := wf.signalChannels[name]
	if ok {
		sc.receive(arg)
		return
	}

	wf.pendingSignals[name] = append(wf.pendingSignals[name], arg)
}

// PendingSignalNames returns the names of signals buffered without a channel,
// sorted for deterministic dispatch.
func PendingSignalNames(wf *WfState) []string {
	names := make([]string, 0, len(wf.pendingSignals))
	for name := range wf.pendingSignals {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// DrainPendingSignals removes and returns the buffered signals for the given
// name, in arrival order.
func DrainPendingSignals(wf *WfState, name string) []payload.Payload {
	pending := wf.pendingSignals[name]
	delete(wf.pendingSignals, name)

	return pending
}

func GetSignalChannel[T any](ctx sync.Context, wf *WfState, name string) sync.Channel[T] {
	// Check for existing channel, if exists return
	sc, ok := wf.signalChannels[name]
	if ok {
		return sc.channel.(sync.Channel[T])
	}

	c := sync.NewBufferedChannel[T](10_000)

	cv := contextvalue.Converter(ctx)

	wf.signalChannels[name] = &signalChannel{
		receive: func(input payload.Payload) {
			var t T
			if err := cv.From(input, &t); err != nil {
				panic(err)
			}

			// Channel is buffered, send without potentially blocking on a Yield
			c.SendNonblocking(t)
		},
		channel: c,
	}

	// Drain signals that arrived before the channel existed, in arrival order
	if pendingSignals, ok := wf.pendingSignals[name]; ok {
		for _, p := range pendingSignals {
			var t T
			if err := cv.From(p, &t); err != nil {
				panic(err)
			}

			c.SendNonblocking(t)
		}

		delete(wf.pendingSignals, name)
	}

	return c
}
