// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircparse

import "strings"

// String reconstructs the canonical wire form of a Tags map. Key order is
// not meaningful on the wire, but Go's random map iteration means the same
// Tags value can serialize differently between calls; callers that need a
// stable encoding (e.g. tests comparing strings) should sort beforehand.
func (t Tags) String() string {
	if len(t) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte(tagPrefix)
	first := true
	for k, v := range t {
		if !first {
			b.WriteByte(tagSep)
		}
		first = false
		b.WriteString(k)
		if v != "" {
			b.WriteByte(tagValueSep)
			b.WriteString(v)
		}
	}
	return b.String()
}

// String reconstructs the canonical grammar form of a parsed Line. It is
// used by the parser's round-trip property tests: reparsing the output
// must yield an equal Line.
func (l Line) String() string {
	var b strings.Builder

	if l.Tags != nil {
		b.WriteString(l.Tags.String())
		b.WriteByte(space)
	}

	if l.HasPrefix {
		b.WriteByte(sourcePrefix)
		b.WriteString(l.Prefix)
		b.WriteByte(space)
	}

	b.WriteString(l.Command)

	if l.HasChannel {
		b.WriteByte(space)
		b.WriteString(l.Channel)
	}

	if l.HasTrailing {
		b.WriteByte(space)
		b.WriteByte(sourcePrefix)
		b.WriteString(l.Trailing)
	}

	return b.String()
}
