// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers delivered messages across handler goroutines.
type collector struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collector) handle(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) waitFor(t *testing.T, n int) []Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.msgs)
		c.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) < n {
		t.Fatalf("expected %d messages, got %d", n, len(c.msgs))
	}
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func TestBus_PublishDeliversToTypeSubscribers(t *testing.T) {
	bus := NewBus()
	var c collector
	bus.Subscribe("scorer", []Type{TypeTaskComplete}, c.handle)

	id := bus.Publish(TypeTaskComplete, "pool", Broadcast,
		TaskLifecyclePayload{TaskID: "t1", HypothesisID: "h1"},
		PublishOptions{Priority: PriorityCritical})
	require.NotEmpty(t, id)

	msgs := c.waitFor(t, 1)
	assert.Equal(t, TypeTaskComplete, msgs[0].Type)
	assert.Equal(t, PriorityCritical, msgs[0].Priority)
	payload, ok := msgs[0].Payload.(TaskLifecyclePayload)
	require.True(t, ok)
	assert.Equal(t, "h1", payload.HypothesisID)
}

func TestBus_TypeFilterExcludesOtherTypes(t *testing.T) {
	bus := NewBus()
	var c collector
	bus.Subscribe("scorer", []Type{TypeTaskComplete}, c.handle)

	bus.Publish(TypeTaskQueued, "pool", Broadcast, TaskLifecyclePayload{}, PublishOptions{})
	bus.Publish(TypeTaskComplete, "pool", Broadcast, TaskLifecyclePayload{}, PublishOptions{})

	msgs := c.waitFor(t, 1)
	assert.Equal(t, TypeTaskComplete, msgs[0].Type)
}

func TestBus_TargetedDelivery(t *testing.T) {
	bus := NewBus()
	var forAlice, forBob collector
	bus.Subscribe("alice", nil, forAlice.handle)
	bus.Subscribe("bob", nil, forBob.handle)

	bus.Publish(TypePoolStatus, "pool", "alice", PoolStatusPayload{TotalActive: 1}, PublishOptions{})
	bus.Publish(TypePoolStatus, "pool", Broadcast, PoolStatusPayload{TotalActive: 2}, PublishOptions{})

	msgs := forAlice.waitFor(t, 2)
	assert.Len(t, msgs, 2)

	bobMsgs := forBob.waitFor(t, 1)
	for _, m := range bobMsgs {
		assert.Equal(t, Broadcast, m.Target)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	var c collector
	subID := bus.Subscribe("scorer", nil, c.handle)

	require.NoError(t, bus.Unsubscribe(subID))
	assert.Equal(t, 0, bus.SubscriberCount())
	assert.ErrorIs(t, bus.Unsubscribe(subID), ErrSubscriptionNotFound)

	bus.Publish(TypeTaskQueued, "pool", Broadcast, TaskLifecyclePayload{}, PublishOptions{})
	time.Sleep(20 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.msgs)
}

func TestBus_PublishError(t *testing.T) {
	bus := NewBus()
	var c collector
	bus.Subscribe("dashboard", []Type{TypeError}, c.handle)

	bus.PublishError("bridge", "pool unreachable", true)

	msgs := c.waitFor(t, 1)
	assert.Equal(t, PriorityCritical, msgs[0].Priority)
	assert.Equal(t, Broadcast, msgs[0].Target)
	payload, ok := msgs[0].Payload.(ErrorPayload)
	require.True(t, ok)
	assert.True(t, payload.Recoverable)
	assert.Equal(t, "pool unreachable", payload.Message)
}

func TestBus_RecentRingBounded(t *testing.T) {
	bus := NewBus(WithRecentCapacity(8))

	for i := 0; i < 40; i++ {
		bus.Publish(TypePoolStatus, "pool", Broadcast, PoolStatusPayload{TotalActive: i}, PublishOptions{})
	}

	recent := bus.Recent(0)
	assert.LessOrEqual(t, len(recent), 8)
	assert.EqualValues(t, 40, bus.Published())

	// Newest message must always survive the ring.
	last := recent[len(recent)-1].Payload.(PoolStatusPayload)
	assert.Equal(t, 39, last.TotalActive)
}

func TestType_StringCoversAllKinds(t *testing.T) {
	kinds := []Type{
		TypeTaskQueued, TypeTaskStarted, TypeTaskComplete, TypeTaskFailed,
		TypeCacheHit, TypeEvaluationComplete, TypeScoreAdjustment,
		TypeValidationStarted, TypeValidationComplete, TypeValidationTimeout,
		TypeValidationFailed, TypePoolStatus, TypeWarmupStarted,
		TypeWarmupComplete, TypeError,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		name := k.String()
		assert.NotEqual(t, "unknown", name)
		assert.False(t, seen[name], "duplicate wire name %q", name)
		seen[name] = true
	}
}
