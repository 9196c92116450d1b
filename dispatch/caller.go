// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package dispatch

import (
	"fmt"
	"strings"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map"
)

// Handler receives a dispatched Event. It must not block; delivery runs
// synchronously on whichever goroutine called Caller.exec, which in
// practice is the receive-pump goroutine.
type Handler func(Event)

// Caller is a nested registry of Handlers keyed by event Kind, mirroring
// the two-level command -> subscriber-id map a Caller keeps internally,
// but trimmed to the single (no internal/external split) registry this
// package needs: dispatch routing calls exec directly rather than going
// through registered handlers of its own.
type Caller struct {
	subs cmap.ConcurrentMap // kind -> cmap.ConcurrentMap (id -> Handler)
	seq  uint64
}

// NewCaller returns an empty Caller.
func NewCaller() *Caller {
	return &Caller{subs: cmap.New()}
}

// On registers h for the given kind and returns a subscription id that
// can later be passed to Off. Use KindAll to receive every event
// regardless of kind.
func (c *Caller) On(kind string, h Handler) string {
	kind = strings.ToUpper(kind)
	id := fmt.Sprintf("%s:%d", kind, atomic.AddUint64(&c.seq, 1))

	c.subs.SetIfAbsent(kind, cmap.New())
	bucketVal, _ := c.subs.Get(kind)
	bucketVal.(cmap.ConcurrentMap).Set(id, h)

	return id
}

// Off removes a previously registered subscription. It reports whether
// the id was found.
func (c *Caller) Off(id string) bool {
	i := strings.IndexByte(id, ':')
	if i < 0 {
		return false
	}

	bucketVal, ok := c.subs.Get(id[:i])
	if !ok {
		return false
	}
	bucket := bucketVal.(cmap.ConcurrentMap)

	if !bucket.Has(id) {
		return false
	}
	bucket.Remove(id)
	return true
}

// exec delivers ev to every subscriber of kind, then to every wildcard
// subscriber.
func (c *Caller) exec(kind string, ev Event) {
	c.deliver(kind, ev)
	if kind != KindAll {
		c.deliver(KindAll, ev)
	}
}

func (c *Caller) deliver(kind string, ev Event) {
	bucketVal, ok := c.subs.Get(kind)
	if !ok {
		return
	}
	for entry := range bucketVal.(cmap.ConcurrentMap).IterBuffered() {
		entry.Val.(Handler)(ev)
	}
}
