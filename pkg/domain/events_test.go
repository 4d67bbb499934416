package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleHooksMerge(t *testing.T) {
	var calls []string

	a := LifecycleHooks{
		OnTaskStart: func(ctx context.Context, e *TaskEvent) { calls = append(calls, "a:"+e.Task) },
	}
	b := LifecycleHooks{
		OnTaskStart: func(ctx context.Context, e *TaskEvent) { calls = append(calls, "b:"+e.Task) },
		OnMessage:   func(ctx context.Context, e *MessageEvent) { calls = append(calls, "b:msg") },
	}

	merged := a.Merge(b)
	merged.OnTaskStart(context.Background(), &TaskEvent{Task: "sqrt"})
	merged.OnMessage(context.Background(), &MessageEvent{})

	assert.Nil(t, merged.OnTaskFinish)
	assert.Equal(t, []string{"a:sqrt", "b:sqrt", "b:msg"}, calls)
}
