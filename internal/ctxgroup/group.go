// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Package ctxgroup runs a small set of goroutines tied to a shared
// context: the first one to return an error cancels the rest, and Wait
// reports that first error.
package ctxgroup

import (
	"context"
	"sync"
)

// Group tracks a set of goroutines launched with Go. Cancel is called
// automatically the first time one of them returns a non-nil error.
type Group struct {
	cancel context.CancelFunc

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// New returns a Group along with a context that is canceled once any
// goroutine started with Go returns an error, or when the parent ctx is
// canceled.
func New(ctx context.Context) (*Group, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{cancel: cancel}, ctx
}

// Go runs fn in a new goroutine. The first non-nil error returned by any
// fn passed to Go cancels the group's context and is the error Wait
// returns.
func (g *Group) Go(fn func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := fn(); err != nil {
			g.errOnce.Do(func() {
				g.err = err
				g.cancel()
			})
		}
	}()
}

// Cancel cancels the group's context directly, without requiring one of
// the goroutines started with Go to return an error first.
func (g *Group) Cancel() {
	g.cancel()
}

// Wait blocks until every goroutine started with Go has returned, then
// releases resources associated with the group's context and returns the
// first error, if any.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()
	return g.err
}
