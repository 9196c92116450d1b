// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Package dispatch turns a parsed ircparse.Line into the handful of
// domain events the rest of the system cares about, plus a small set of
// control actions the caller must actually perform (sending a line,
// joining the channels an account is logged into, starting the
// rate-limit scheduler). Routing itself never touches a network
// connection; it only calls registered handlers and returns actions for
// someone else to execute.
package dispatch

import "github.com/lrstanley/twitchirc/ircparse"

// Event is delivered to every Caller subscriber matching its Kind (and
// to wildcard subscribers). It carries the fields subscribers most
// commonly want directly, plus the raw Line for anything else.
type Event struct {
	Kind     string
	Channel  string
	Trailing string
	Tags     ircparse.Tags
	Prefix   string
	Line     ircparse.Line
}

// Event kinds for the core events the facade exposes.
const (
	KindAll              = "ALL_EVENTS"
	KindLogin            = "LOGIN"
	KindJoinChannel      = "JOIN_CHANNEL"
	KindLeaveChannel     = "LEAVE_CHANNEL"
	KindRoomStateChanged = "ROOM_STATE_CHANGED"
	KindMessageReceived  = "MESSAGE_RECEIVED"
)
