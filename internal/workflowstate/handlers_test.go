package workflowstate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/durableio/rewind/internal/sync"
)

func Test_Handlers_Add(t *testing.T) {
	h := NewHandlers()
	require.Equal(t, int64(0), h.Version())

	require.NoError(t, h.Add(HandlerKind_Signal, "sig", func(ctx sync.Context, arg string) {}))
	require.Equal(t, int64(1), h.Version())

	handler, ok := h.Handler(HandlerKind_Signal, "sig")
	require.True(t, ok)
	require.Equal(t, "sig", handler.Name)
	require.Equal(t, HandlerKind_Signal, handler.Kind)

	_, ok = h.Handler(HandlerKind_Query, "sig")
	require.False(t, ok)
}

func Test_Handlers_DuplicateName(t *testing.T) {
	h := NewHandlers()

	require.NoError(t, h.Add(HandlerKind_Query, "state", func(ctx sync.Context) (string, error) { return "", nil }))
	require.ErrorContains(t,
		h.Add(HandlerKind_Query, "state", func(ctx sync.Context) (string, error) { return "", nil }),
		"already registered")
}

func Test_Handlers_RequiresName(t *testing.T) {
	h := NewHandlers()

	require.ErrorContains(t, h.Add(HandlerKind_Signal, "", func(ctx sync.Context) {}), "requires a name")
}

func Test_Handlers_SignalReturnValues(t *testing.T) {
	h := NewHandlers()

	require.NoError(t, h.Add(HandlerKind_Signal, "a", func(ctx sync.Context, arg int) {}))
	require.NoError(t, h.Add(HandlerKind_Signal, "b", func(ctx sync.Context, arg int) error { return nil }))
	require.Error(t, h.Add(HandlerKind_Signal, "c", func(ctx sync.Context, arg int) (int, int) { return 0, 0 }))
	require.Error(t, h.Add(HandlerKind_Signal, "d", 42))
}

func Test_Handlers_QueryMustReturnValue(t *testing.T) {
	h := NewHandlers()

	require.NoError(t, h.Add(HandlerKind_Query, "a", func(ctx sync.Context) (int, error) { return 0, nil }))
	require.NoError(t, h.Add(HandlerKind_Query, "b", func(ctx sync.Context) int { return 0 }))
	require.Error(t, h.Add(HandlerKind_Query, "c", func(ctx sync.Context) error { return nil }))
	require.Error(t, h.Add(HandlerKind_Query, "d", func(ctx sync.Context) {}))
}

func Test_Handlers_Update(t *testing.T) {
	h := NewHandlers()

	require.NoError(t, h.AddUpdate("u",
		func(ctx sync.Context, arg int) (int, error) { return arg, nil },
		func(arg int) error { return nil },
	))

	handler, ok := h.Handler(HandlerKind_Update, "u")
	require.True(t, ok)
	require.True(t, handler.Validator.IsValid())
}

func Test_Handlers_UpdateWithoutValidator(t *testing.T) {
	h := NewHandlers()

	require.NoError(t, h.AddUpdate("u", func(ctx sync.Context, arg int) error { return nil }, nil))

	handler, _ := h.Handler(HandlerKind_Update, "u")
	require.False(t, handler.Validator.IsValid())
}

func Test_Handlers_UpdateValidatorMismatch(t *testing.T) {
	h := NewHandlers()

	// Wrong return type
	require.Error(t, h.AddUpdate("a",
		func(ctx sync.Context, arg int) error { return nil },
		func(arg int) int { return 0 },
	))

	// Mismatched inputs
	require.Error(t, h.AddUpdate("b",
		func(ctx sync.Context, arg int) error { return nil },
		func(a, b int) error { return nil },
	))
}
