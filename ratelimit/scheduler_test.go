// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lrstanley/twitchirc/sendqueue"
)

// recordingSender captures every line it was asked to send, along with
// the time it was asked.
type recordingSender struct {
	mu   sync.Mutex
	sent []time.Time
}

func (s *recordingSender) SendInstant(_ context.Context, _ string) error {
	s.mu.Lock()
	s.sent = append(s.sent, time.Now())
	s.mu.Unlock()
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSender) at(i int) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[i]
}

// scaledConfig keeps Relaxed looser than Normal (a higher bound and a
// shorter per-channel delta), as in Twitch's real limits, but shrinks
// the window, bounds and deltas so tests don't take 32 seconds to run.
func scaledConfig() Config {
	return Config{
		Window:       300 * time.Millisecond,
		NormalBound:  4,
		RelaxedBound: 8,
		NormalDelta:  20 * time.Millisecond,
		RelaxedDelta: 5 * time.Millisecond,
	}
}

func alwaysNormal(string) Class { return Normal }

func waitForCount(t *testing.T, sender *recordingSender, n int, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if sender.count() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sends, got %d", n, sender.count())
}

func TestScheduler_DrainsUnderBoundImmediately(t *testing.T) {
	q := sendqueue.New()
	sender := &recordingSender{}
	sched := New(scaledConfig(), q, alwaysNormal, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	for i := 0; i < 3; i++ {
		q.Enqueue(sendqueue.OutboundMessage{ChannelID: "a", WireLine: "x"})
	}

	waitForCount(t, sender, 3, time.Second)
}

func TestScheduler_WindowOccupancyNeverExceedsBound(t *testing.T) {
	cfg := scaledConfig()
	q := sendqueue.New()
	sender := &recordingSender{}
	sched := New(cfg, q, alwaysNormal, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	total := cfg.NormalBound + 3
	for i := 0; i < total; i++ {
		q.Enqueue(sendqueue.OutboundMessage{ChannelID: "a", WireLine: "x"})
	}

	waitForCount(t, sender, total, 3*time.Second)

	// Across any trailing window-length slice of the recorded sends, the
	// count must never exceed the bound.
	for i := 0; i+cfg.NormalBound < total; i++ {
		span := sender.at(i + cfg.NormalBound).Sub(sender.at(i))
		if span < cfg.Window {
			t.Fatalf("sends %d..%d are only %v apart, want >= %v", i, i+cfg.NormalBound, span, cfg.Window)
		}
	}
}

func TestScheduler_RespectsPerChannelSpacing(t *testing.T) {
	cfg := scaledConfig()
	q := sendqueue.New()
	sender := &recordingSender{}
	sched := New(cfg, q, alwaysNormal, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	for i := 0; i < 3; i++ {
		q.Enqueue(sendqueue.OutboundMessage{ChannelID: "same-channel", WireLine: "x"})
	}

	waitForCount(t, sender, 3, time.Second)

	for i := 1; i < 3; i++ {
		if gap := sender.at(i).Sub(sender.at(i - 1)); gap < cfg.NormalDelta {
			t.Fatalf("sends %d and %d are only %v apart, want >= %v", i-1, i, gap, cfg.NormalDelta)
		}
	}
}

func TestScheduler_DifferentChannelsNotSpaced(t *testing.T) {
	cfg := scaledConfig()
	q := sendqueue.New()
	sender := &recordingSender{}
	sched := New(cfg, q, alwaysNormal, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	q.Enqueue(sendqueue.OutboundMessage{ChannelID: "a", WireLine: "x"})
	q.Enqueue(sendqueue.OutboundMessage{ChannelID: "b", WireLine: "x"})

	waitForCount(t, sender, 2, time.Second)

	if gap := sender.at(1).Sub(sender.at(0)); gap >= cfg.NormalDelta {
		t.Fatalf("distinct-channel sends were spaced %v apart, did not expect per-channel delta to apply", gap)
	}
}

func TestScheduler_RelaxedClassGetsHigherBound(t *testing.T) {
	cfg := scaledConfig()
	q := sendqueue.New()
	sender := &recordingSender{}
	sched := New(cfg, q, func(string) Class { return Relaxed }, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	// More than the Normal bound, but within the Relaxed bound: every
	// message should ship without waiting on the window to roll over.
	total := cfg.NormalBound + 2
	for i := 0; i < total; i++ {
		q.Enqueue(sendqueue.OutboundMessage{ChannelID: "mod-channel", WireLine: "x"})
	}

	waitForCount(t, sender, total, cfg.Window)
}

func TestScheduler_CancelStopsPromptly(t *testing.T) {
	q := sendqueue.New()
	sender := &recordingSender{}
	sched := New(scaledConfig(), q, alwaysNormal, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected Run to return ctx.Err() on cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not exit promptly after cancellation")
	}
}

func TestScheduler_Stats(t *testing.T) {
	q := sendqueue.New()
	sender := &recordingSender{}
	sched := New(scaledConfig(), q, alwaysNormal, sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	q.Enqueue(sendqueue.OutboundMessage{ChannelID: "a", WireLine: "x"})
	waitForCount(t, sender, 1, time.Second)

	stats := sched.Stats()
	if stats.WindowOccupancy != 1 {
		t.Fatalf("WindowOccupancy = %d, want 1", stats.WindowOccupancy)
	}
}
