// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package dispatch

import (
	"strings"

	"github.com/lrstanley/twitchirc/ircparse"
)

// ActionKind identifies a side effect Route is asking the caller to
// perform. Route itself never does I/O; it only reports what needs to
// happen.
type ActionKind int

const (
	// ActionSendLine asks the caller to send Action.Line as-is,
	// fire-and-forget, bypassing the rate-limit scheduler.
	ActionSendLine ActionKind = iota
	// ActionJoinActiveLogins asks the caller to issue a JOIN for every
	// channel the active login is a member of, per the channel
	// registry, bypassing the rate-limit scheduler.
	ActionJoinActiveLogins
	// ActionStartScheduler asks the caller to start draining the
	// outbound send queue through the rate-limit scheduler.
	ActionStartScheduler
)

// Action is one side effect produced by routing a line.
type Action struct {
	Kind ActionKind
	Line string
}

// reservedHooks are commands with no core behavior of their own, but
// that consumers may still want to subscribe to directly by name.
var reservedHooks = map[string]bool{
	"NOTICE":     true,
	"CLEARCHAT":  true,
	"CLEARMSG":   true,
	"HOSTTARGET": true,
	"RECONNECT":  true,
}

// Route applies the command table to line: it delivers the matching
// domain Event (if any) to caller's subscribers, and returns any
// Actions the line requires. Route is pure with respect to I/O; it
// never sends anything itself.
func Route(line ircparse.Line, caller *Caller) []Action {
	switch line.Command {
	case "PING":
		return []Action{{Kind: ActionSendLine, Line: "PONG :" + line.Trailing}}

	case "376":
		caller.exec(KindLogin, Event{Kind: KindLogin, Line: line})
		return []Action{{Kind: ActionJoinActiveLogins}, {Kind: ActionStartScheduler}}

	case "JOIN":
		caller.exec(KindJoinChannel, Event{
			Kind: KindJoinChannel, Channel: stripHash(line.Channel),
			Prefix: line.Prefix, Line: line,
		})

	case "PART":
		caller.exec(KindLeaveChannel, Event{
			Kind: KindLeaveChannel, Channel: stripHash(line.Channel),
			Prefix: line.Prefix, Line: line,
		})

	case "PRIVMSG", "USERNOTICE":
		caller.exec(KindMessageReceived, Event{
			Kind: KindMessageReceived, Channel: stripHash(line.Channel),
			Trailing: line.Trailing, Tags: line.Tags, Prefix: line.Prefix, Line: line,
		})

	case "ROOMSTATE", "USERSTATE", "GLOBALUSERSTATE":
		caller.exec(KindRoomStateChanged, Event{
			Kind: KindRoomStateChanged, Channel: stripHash(line.Channel),
			Tags: line.Tags, Line: line,
		})

	case "CAP":
		routeCAP(line, caller)

	default:
		if reservedHooks[line.Command] {
			caller.exec(line.Command, Event{Kind: line.Command, Trailing: line.Trailing, Tags: line.Tags, Line: line})
		}
	}

	return nil
}

// routeCAP delivers CAP ACK/NAK as their own kinds ("CAP_ACK",
// "CAP_NAK") so a facade's capability handshake can observe whether
// Twitch granted the requested capabilities, and so consumers can
// subscribe directly. This is not in the base command table; CAP
// negotiation only exists because the facade's handshake sends CAP REQ.
func routeCAP(line ircparse.Line, caller *Caller) {
	parts := strings.Fields(line.Channel)
	if len(parts) < 2 {
		return
	}
	kind := "CAP_" + strings.ToUpper(parts[1])
	caller.exec(kind, Event{Kind: kind, Trailing: line.Trailing, Line: line})
}

func stripHash(channel string) string {
	return strings.TrimPrefix(channel, "#")
}
