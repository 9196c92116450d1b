// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircparse

import "strings"

const (
	tagValueSep byte = '='
	tagSep      byte = ';'
)

// Tags represents the key-value pairs carried in an IRCv3 "@..." prefix.
// Values are stored exactly as they appear on the wire: the \s, \r, \n,
// \:, \\ escapes are deliberately not decoded here (see design notes on
// tag-value escaping).
type Tags map[string]string

// ParseTags parses the body of an IRCv3 tag section, i.e. the substring
// between "@" and the space that terminates it. It runs a two-state scan
// over the ';'-delimited pairs: '=' flips from key to value, ';' closes
// a pair and resets to key mode. Bare keys (no '=') are accepted with an
// empty value, matching the recommendation to support both tag forms.
func ParseTags(body string) Tags {
	if body == "" {
		return nil
	}

	tags := make(Tags)

	start := 0
	for start <= len(body) {
		end := strings.IndexByte(body[start:], tagSep)
		var pair string
		if end < 0 {
			pair = body[start:]
			start = len(body) + 1
		} else {
			pair = body[start : start+end]
			start += end + 1
		}

		if pair == "" {
			continue
		}

		if eq := strings.IndexByte(pair, tagValueSep); eq >= 0 {
			tags[pair[:eq]] = pair[eq+1:]
		} else {
			tags[pair] = ""
		}
	}

	if len(tags) == 0 {
		return nil
	}
	return tags
}

// Get returns the raw (still-escaped) value for key and whether it was
// present at all.
func (t Tags) Get(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}
