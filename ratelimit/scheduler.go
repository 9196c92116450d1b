// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Package ratelimit implements the outbound scheduler that drains a
// sendqueue.Queue against Twitch's sliding-window send limits: a global
// count of sends in the trailing window (20 when the destination channel
// is Normal, 100 when it is Relaxed because the account is a moderator
// or the channel owner), plus a minimum
// spacing between two sends to the same channel.
package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lrstanley/twitchirc/sendqueue"
)

// Class selects which bound and spacing apply to a send, based on the
// relationship between the account and the destination channel.
type Class int

const (
	// Normal applies to channels where the account has no elevated
	// status.
	Normal Class = iota
	// Relaxed applies to channels where the account is a moderator (or
	// the channel owner), which Twitch grants a higher limit.
	Relaxed
)

// Config holds the window, bounds and per-channel spacing the scheduler
// enforces. DefaultConfig matches Twitch's documented limits; tests use
// a scaled-down Config to keep real-time sleeps short.
type Config struct {
	Window       time.Duration
	NormalBound  int
	RelaxedBound int
	NormalDelta  time.Duration
	RelaxedDelta time.Duration
}

// DefaultConfig returns Twitch's documented chat rate limits.
func DefaultConfig() Config {
	return Config{
		Window:       32 * time.Second,
		NormalBound:  20,
		RelaxedBound: 100,
		NormalDelta:  1250 * time.Millisecond,
		RelaxedDelta: 50 * time.Millisecond,
	}
}

func (c Config) bound(class Class) int {
	if class == Relaxed {
		return c.RelaxedBound
	}
	return c.NormalBound
}

func (c Config) delta(class Class) time.Duration {
	if class == Relaxed {
		return c.RelaxedDelta
	}
	return c.NormalDelta
}

// Sender performs the actual blocking write of a single already-formatted
// wire line. The scheduler treats a non-nil error as transient: it logs
// and moves on to the next queued message rather than retrying or
// shutting the connection down.
type Sender interface {
	SendInstant(ctx context.Context, line string) error
}

// ClassifyFunc reports which Class applies to sends targeting channelID.
type ClassifyFunc func(channelID string) Class

// Stats is a snapshot of scheduler state for diagnostics.
type Stats struct {
	WindowOccupancy int
	QueueDepth      int
}

// Scheduler drains a sendqueue.Queue one message at a time, enforcing
// the sliding-window bound and per-channel spacing before each send.
type Scheduler struct {
	cfg      Config
	queue    *sendqueue.Queue
	classify ClassifyFunc
	sender   Sender
	logger   *log.Logger

	mu             sync.Mutex
	sendTimestamps []time.Time
	lastSend       map[string]time.Time
}

// New returns a Scheduler draining queue, classifying destinations with
// classify and performing sends through sender. A nil logger discards
// send errors silently.
func New(cfg Config, queue *sendqueue.Queue, classify ClassifyFunc, sender Sender, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		queue:    queue,
		classify: classify,
		sender:   sender,
		logger:   logger,
		lastSend: make(map[string]time.Time),
	}
}

// Run drains the queue until ctx is canceled, alternating between a
// drain phase (send everything currently eligible) and a hibernate
// phase (sleep until either more work arrives or the window makes room).
// It returns only when ctx is canceled, and then returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.drain(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.hibernate(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Stats reports a point-in-time snapshot of scheduler state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trimLocked(time.Now())
	return Stats{
		WindowOccupancy: len(s.sendTimestamps),
		QueueDepth:      s.queue.Len(),
	}
}

// drain sends messages from the head of the queue until the queue is
// empty or the head is blocked on the window bound, in which case it
// stops without error. When the head is only blocked on per-channel
// spacing, drain sleeps for the remaining time (interruptible only by
// ctx) and then sends it.
func (s *Scheduler) drain(ctx context.Context) error {
	for {
		head, ok := s.queue.Peek()
		if !ok {
			return nil
		}

		class := s.classify(head.ChannelID)
		bound := s.cfg.bound(class)
		delta := s.cfg.delta(class)

		s.mu.Lock()
		s.trimLocked(time.Now())
		if len(s.sendTimestamps) >= bound {
			s.mu.Unlock()
			return nil
		}
		last, hasLast := s.lastSend[head.ChannelID]
		s.mu.Unlock()

		if hasLast {
			if wait := time.Until(last.Add(delta)); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				}
			}
		}

		msg, ok := s.queue.TryDequeue()
		if !ok {
			// Single consumer: the head we peeked cannot have vanished.
			continue
		}

		if err := s.sender.SendInstant(ctx, msg.WireLine); err != nil {
			if s.logger != nil {
				s.logger.Printf("ratelimit: send to %s failed: %v", msg.ChannelID, err)
			}
			continue
		}

		sentAt := time.Now()
		s.mu.Lock()
		s.sendTimestamps = append(s.sendTimestamps, sentAt)
		s.lastSend[msg.ChannelID] = sentAt
		s.mu.Unlock()
	}
}

// hibernate waits until the scheduler should look at the queue again:
// either new work arrived, the window has made room for the channel at
// the head of the queue, or ctx was canceled.
func (s *Scheduler) hibernate(ctx context.Context) error {
	head, ok := s.queue.Peek()
	if !ok {
		select {
		case <-s.queue.Wake():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	bound := s.cfg.bound(s.classify(head.ChannelID))

	s.mu.Lock()
	now := time.Now()
	s.trimLocked(now)
	var wait time.Duration
	if len(s.sendTimestamps) >= bound {
		idx := len(s.sendTimestamps) - bound
		wait = s.sendTimestamps[idx].Add(s.cfg.Window).Sub(now)
	}
	s.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-s.queue.Wake():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trimLocked drops timestamps older than the sliding window. Callers
// must hold s.mu.
func (s *Scheduler) trimLocked(now time.Time) {
	cutoff := now.Add(-s.cfg.Window)
	i := 0
	for i < len(s.sendTimestamps) && s.sendTimestamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		s.sendTimestamps = s.sendTimestamps[i:]
	}
}
