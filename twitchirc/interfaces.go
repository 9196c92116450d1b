// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Package twitchirc wires the parser, dispatcher, send queue and
// rate-limit scheduler together into a single service that owns a
// connection's lifecycle. It never implements transport, authentication
// or channel membership itself; those are supplied by the caller as
// the interfaces below.
package twitchirc

import "context"

// Transport is the duplex connection to Twitch's chat gateway. The core
// never dials a socket itself.
type Transport interface {
	Connect(ctx context.Context, url string) error
	Disconnect(ctx context.Context, reason string) error

	// Send is fire-and-forget; used for control frames that bypass the
	// rate-limit scheduler (handshake, JOIN/PART).
	Send(line string)
	// SendInstant performs a single blocking send and surfaces any
	// transport error. Used by the rate-limit scheduler.
	SendInstant(ctx context.Context, line string) error

	OnConnect(func())
	OnDisconnect(func())
	OnMessage(func(frame string))
}

// Auth supplies the credentials used during the handshake.
type Auth interface {
	HasTokens() bool
	TokenIsValid() bool
	AccessToken() string
	LoggedInUser() string

	RefreshTokens(ctx context.Context) error
	OnCredentialsChanged(func())
}

// ChannelRegistry supplies the set of channels the service should be
// joined to, and whether the logged-in account holds elevated status in
// a given channel (which the rate-limit scheduler needs to pick a
// Normal vs Relaxed bound, see ratelimit.ClassifyFunc).
type ChannelRegistry interface {
	GetAllActiveLoginNames() []string
	IsModerator(channel string) bool

	OnChannelsUpdated(func(enabled, disabled []string))
}
