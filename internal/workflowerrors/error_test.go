package workflowerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/internal/sync"
)

func TestFromError_KeepsCauseChain(t *testing.T) {
	inner := errors.New("inner")
	outer := fmt.Errorf("outer: %w", inner)

	e := FromError(outer)
	require.Equal(t, "outer: inner", e.Message)
	require.NotNil(t, e.Cause)
	require.Equal(t, "inner", e.Cause.Error())
}

func TestError_JSONRoundtrip(t *testing.T) {
	e := FromError(fmt.Errorf("outer: %w", errors.New("inner")))

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var e2 Error
	require.NoError(t, json.Unmarshal(b, &e2))

	require.Equal(t, e.Message, e2.Message)
	require.NotNil(t, e2.Unwrap())
	require.Equal(t, "inner", e2.Unwrap().Error())
}

func TestToError_RestoresPanicError(t *testing.T) {
	e := FromError(NewPanicError("panic in workflow: oops"))

	restored := ToError(e)
	require.IsType(t, &PanicError{}, restored)
	require.Equal(t, "panic in workflow: oops", restored.Error())
}

func TestCanRetry(t *testing.T) {
	require.True(t, CanRetry(errors.New("transient")))
	require.False(t, CanRetry(NewPermanentError(errors.New("fatal"))))
}

func TestFromError_MarksDeterministicFailuresPermanent(t *testing.T) {
	// Retrying either of these replays the same history and fails the same way
	e := FromError(fmt.Errorf("executing workflow: %w", &sync.DeadlockError{Budget: time.Second}))
	require.True(t, e.Permanent)
	require.False(t, CanRetry(e))

	e = FromError(NewDeterminismError("ScheduleTimer(id=1)", "ActivityScheduled(id=1)"))
	require.True(t, e.Permanent)
	require.False(t, CanRetry(e))
}

func TestDeterminismError(t *testing.T) {
	err := NewDeterminismError("ScheduleTimer(id=1)", "ActivityScheduled(id=1)")
	require.True(t, IsDeterminismError(err))
	require.Contains(t, err.Error(), "ScheduleTimer(id=1)")
	require.Contains(t, err.Error(), "ActivityScheduled(id=1)")

	restored := ToError(FromError(err))
	require.IsType(t, &DeterminismError{}, restored)
}
