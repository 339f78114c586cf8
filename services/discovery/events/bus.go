// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package events

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSubscriptionNotFound is returned by Unsubscribe for unknown IDs.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Handler processes a delivered message. Handlers run on their own
// goroutines; a slow handler delays only itself.
type Handler func(msg Message)

// Subscription is one registered handler with its routing filters.
type Subscription struct {
	// ID uniquely identifies this subscription.
	ID string

	// AgentID is the subscriber identity used for targeted delivery.
	AgentID string

	// Types limits which message types are delivered (nil = all types).
	Types []Type

	// Handler processes matching messages.
	Handler Handler
}

func (s *Subscription) matches(msg Message) bool {
	if msg.Target != Broadcast && msg.Target != "" && msg.Target != s.AgentID {
		return false
	}
	if len(s.Types) == 0 {
		return true
	}
	for _, t := range s.Types {
		if t == msg.Type {
			return true
		}
	}
	return false
}

// PublishOptions carries the optional fields of Publish.
type PublishOptions struct {
	Priority  Priority
	Iteration int
	Metadata  map[string]string
}

// Bus routes typed messages between pipeline components.
//
// # Description
//
// Bus keeps a subscription registry and a bounded ring of recent messages
// for inspection. Delivery is fire-and-forget: Publish returns as soon as
// the message is recorded and handler goroutines are launched.
//
// # Thread Safety
//
// Safe for concurrent use via an internal RWMutex.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	recent        []Message
	recentCap     int
	logger        *slog.Logger
	published     int64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithRecentCapacity sets how many recent messages the bus retains.
func WithRecentCapacity(n int) BusOption {
	return func(b *Bus) {
		if n > 0 {
			b.recentCap = n
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		subscriptions: make(map[string]*Subscription),
		recentCap:     256,
		logger:        slog.Default().With(slog.String("component", "event_bus")),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.recent = make([]Message, 0, b.recentCap)
	return b
}

// Publish routes a message to all matching subscribers.
//
// # Description
//
// The message is stamped with an ID and publish time, retained in the recent
// ring, and dispatched to every subscription whose agent/type filters match.
// Each handler runs on its own goroutine; Publish never blocks on handlers.
//
// # Inputs
//
//   - msgType: The closed message kind.
//   - sourceAgent: Publisher identity.
//   - target: Subscriber agent ID, or Broadcast.
//   - payload: One of the typed payload structs.
//   - opts: Priority, iteration tag, and metadata. Zero value is valid.
//
// # Outputs
//
//   - string: The assigned message ID.
func (b *Bus) Publish(msgType Type, sourceAgent, target string, payload any, opts PublishOptions) string {
	msg := Message{
		ID:          uuid.NewString(),
		Type:        msgType,
		SourceAgent: sourceAgent,
		Target:      target,
		Payload:     payload,
		Priority:    opts.Priority,
		Iteration:   opts.Iteration,
		Metadata:    opts.Metadata,
		PublishedAt: time.Now(),
	}

	b.mu.Lock()
	b.published++
	if len(b.recent) >= b.recentCap {
		// Drop the oldest half rather than shifting on every publish.
		b.recent = append(b.recent[:0], b.recent[b.recentCap/2:]...)
	}
	b.recent = append(b.recent, msg)
	matched := make([]*Subscription, 0, 4)
	for _, sub := range b.subscriptions {
		if sub.matches(msg) {
			matched = append(matched, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range matched {
		go sub.Handler(msg)
	}

	b.logger.Debug("message published",
		slog.String("type", msgType.String()),
		slog.String("source", sourceAgent),
		slog.String("target", target),
		slog.Int("subscribers", len(matched)))

	return msg.ID
}

// PublishError broadcasts a component error as a critical TypeError message.
func (b *Bus) PublishError(sourceAgent, message string, recoverable bool) string {
	return b.Publish(TypeError, sourceAgent, Broadcast,
		ErrorPayload{Message: message, Recoverable: recoverable},
		PublishOptions{Priority: PriorityCritical})
}

// Subscribe registers a handler for the given message types.
//
// # Inputs
//
//   - agentID: Subscriber identity for targeted delivery.
//   - types: Message types to receive (empty = all types).
//   - handler: Function invoked per matching message. Must not be nil.
//
// # Outputs
//
//   - string: Subscription ID for Unsubscribe.
func (b *Bus) Subscribe(agentID string, types []Type, handler Handler) string {
	sub := &Subscription{
		ID:      uuid.NewString(),
		AgentID: agentID,
		Types:   types,
		Handler: handler,
	}

	b.mu.Lock()
	b.subscriptions[sub.ID] = sub
	b.mu.Unlock()

	return sub.ID
}

// Unsubscribe removes a subscription. Unknown IDs return
// ErrSubscriptionNotFound.
func (b *Bus) Unsubscribe(subscriptionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscriptions[subscriptionID]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(b.subscriptions, subscriptionID)
	return nil
}

// Recent returns up to n of the most recently published messages, oldest
// first.
func (b *Bus) Recent(n int) []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > len(b.recent) {
		n = len(b.recent)
	}
	out := make([]Message, n)
	copy(out, b.recent[len(b.recent)-n:])
	return out
}

// Published returns the total number of messages accepted by the bus.
func (b *Bus) Published() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.published
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
