// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package twitchirc

import (
	"context"
	"sync"
)

type fakeTransport struct {
	mu        sync.Mutex
	sent      []string
	onConnect func()
	onDisc    func()
	onMessage func(string)
	connected bool
}

func (f *fakeTransport) Connect(ctx context.Context, url string) error {
	f.connected = true
	if f.onConnect != nil {
		f.onConnect()
	}
	return nil
}

func (f *fakeTransport) Disconnect(ctx context.Context, reason string) error {
	f.connected = false
	if f.onDisc != nil {
		f.onDisc()
	}
	return nil
}

func (f *fakeTransport) Send(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, line)
}

func (f *fakeTransport) SendInstant(ctx context.Context, line string) error {
	f.Send(line)
	return nil
}

func (f *fakeTransport) OnConnect(h func())       { f.onConnect = h }
func (f *fakeTransport) OnDisconnect(h func())    { f.onDisc = h }
func (f *fakeTransport) OnMessage(h func(string)) { f.onMessage = h }

func (f *fakeTransport) deliver(frame string) { f.onMessage(frame) }

func (f *fakeTransport) sentLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeAuth struct {
	token string
	login string
}

func (a *fakeAuth) HasTokens() bool                       { return a.token != "" }
func (a *fakeAuth) TokenIsValid() bool                     { return a.token != "" }
func (a *fakeAuth) AccessToken() string                    { return a.token }
func (a *fakeAuth) LoggedInUser() string                   { return a.login }
func (a *fakeAuth) RefreshTokens(ctx context.Context) error { return nil }
func (a *fakeAuth) OnCredentialsChanged(func())             {}

type fakeChannels struct {
	active      []string
	moderatedIn map[string]bool
}

func (c *fakeChannels) GetAllActiveLoginNames() []string { return c.active }
func (c *fakeChannels) IsModerator(channel string) bool  { return c.moderatedIn[channel] }
func (c *fakeChannels) OnChannelsUpdated(func(enabled, disabled []string)) {}
