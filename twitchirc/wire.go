// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package twitchirc

import (
	"strings"

	"github.com/google/uuid"
)

const capRequest = "CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership"

func passLine(token string) string {
	return "PASS oauth:" + strings.TrimPrefix(token, "oauth:")
}

func nickLine(login string) string {
	if login == "" {
		login = "."
	}
	return "NICK " + login
}

func joinLine(channel string) string {
	return "JOIN #" + channel
}

func partLine(channel string) string {
	return "PART #" + channel
}

// privmsgLine formats a chat message with a unique id tag, matching
// Twitch's own outbound tagging so echoed messages can be deduplicated
// against locally-sent ones.
func privmsgLine(channel, text string) string {
	return "@id=" + uuid.New().String() + " PRIVMSG #" + channel + " :" + text
}
