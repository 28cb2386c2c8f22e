package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	b := NewScriptedBackend(
		Reply{Content: "unused"},
		Reply{Content: "second try"},
	).FailWith(0, &Error{Backend: "test", StatusCode: 503, Msg: "overloaded", Transient: true})

	reply, err := fastPolicy().Send(context.Background(), b, []Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "second try", reply.Content)
	assert.Len(t, b.Calls, 2)
}

func TestRetry_FatalErrorNotRetried(t *testing.T) {
	fatal := &Error{Backend: "test", StatusCode: 401, Msg: "bad key"}
	b := NewScriptedBackend(Reply{Content: "never"}).FailWith(0, fatal)

	_, err := fastPolicy().Send(context.Background(), b, nil, nil)
	require.Error(t, err)
	assert.Len(t, b.Calls, 1)

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 401, be.StatusCode)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	transient := &Error{Backend: "test", StatusCode: 500, Msg: "boom", Transient: true}
	b := NewScriptedBackend().
		FailWith(0, transient).
		FailWith(1, transient).
		FailWith(2, transient)

	_, err := fastPolicy().Send(context.Background(), b, nil, nil)
	require.Error(t, err)
	assert.Len(t, b.Calls, 3)
}

func TestRetry_PlainErrorsAreFatal(t *testing.T) {
	b := NewScriptedBackend(Reply{Content: "never"}).FailWith(0, errors.New("unclassified"))

	_, err := fastPolicy().Send(context.Background(), b, nil, nil)
	require.Error(t, err)
	assert.Len(t, b.Calls, 1)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	transient := &Error{Backend: "test", Msg: "slow down", Transient: true, RetryAfter: 30}
	b := NewScriptedBackend().FailWith(0, transient).FailWith(1, transient)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := fastPolicy().Send(ctx, b, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	// The Retry-After hint asked for 30s; cancellation must cut that short.
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, b.Calls, 1)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&Error{Transient: true}))
	assert.False(t, IsTransient(&Error{}))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))
}

func TestClassifyStatus(t *testing.T) {
	assert.True(t, classifyStatus("x", 429, "", 0).Transient)
	assert.True(t, classifyStatus("x", 408, "", 0).Transient)
	assert.True(t, classifyStatus("x", 500, "", 0).Transient)
	assert.True(t, classifyStatus("x", 503, "", 0).Transient)
	assert.False(t, classifyStatus("x", 400, "", 0).Transient)
	assert.False(t, classifyStatus("x", 404, "", 0).Transient)
}
