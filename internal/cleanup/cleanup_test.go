package cleanup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublish_RetriesOnceThenDrops(t *testing.T) {
	b := &Bus{handlers: make(map[EventType][]Handler)}

	attempts := 0
	b.Subscribe(NodeRemoved, func(ctx context.Context, ev Event) error {
		attempts++
		return errors.New("transient")
	})

	b.Publish(context.Background(), Event{Type: NodeRemoved, LabID: "lab-1"})
	assert.Equal(t, 2, attempts)
}

func TestPublish_IsolatesHandlerFailures(t *testing.T) {
	b := &Bus{handlers: make(map[EventType][]Handler)}

	secondRan := false
	b.Subscribe(NodeRemoved, func(ctx context.Context, ev Event) error {
		panic("boom")
	})
	b.Subscribe(NodeRemoved, func(ctx context.Context, ev Event) error {
		secondRan = true
		return nil
	})

	b.Publish(context.Background(), Event{Type: NodeRemoved})
	assert.True(t, secondRan)
}

func TestPublish_SucceedsWithoutRetry(t *testing.T) {
	b := &Bus{handlers: make(map[EventType][]Handler)}

	attempts := 0
	b.Subscribe(JobCompleted, func(ctx context.Context, ev Event) error {
		attempts++
		return nil
	})

	b.Publish(context.Background(), Event{Type: JobCompleted})
	assert.Equal(t, 1, attempts)
}
