// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wireerr is the §7 error taxonomy: a structured error value that
// round-trips as an RPC {error: e} reply payload, modeled on
// dmitrymomot-foundation's gokit.Error (a struct implementing error,
// carrying a machine-readable Kind, JSON-serializable) crossed with
// bgpfix-bgpfix's flat sentinel-var style.
package wireerr

import "fmt"

// Kind is the machine-readable error classification carried on the wire.
type Kind string

const (
	KindNotFound                  Kind = "not-found"
	KindNotDescendant             Kind = "not-descendant"
	KindTopologyViolation         Kind = "topology-violation"
	KindChannelClosedPrematurely  Kind = "channel-closed-prematurely"
	KindPropertyNotSet            Kind = "property-not-set"
	KindProtocolViolation         Kind = "protocol-violation"
)

// Error is the wire representation of a failure: it implements the error
// interface and serializes cleanly as the payload of a {error: e} reply
// frame.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is allows errors.Is(err, wireerr.NotFound) style comparisons by kind,
// ignoring Message.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) Error {
	return Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is comparisons against a bare kind, message-free.
var (
	NotFound                 = Error{Kind: KindNotFound}
	NotDescendant            = Error{Kind: KindNotDescendant}
	TopologyViolation        = Error{Kind: KindTopologyViolation}
	ChannelClosedPrematurely = Error{Kind: KindChannelClosedPrematurely}
	PropertyNotSet           = Error{Kind: KindPropertyNotSet}
	ProtocolViolation        = Error{Kind: KindProtocolViolation}
)
