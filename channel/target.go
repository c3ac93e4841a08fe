// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package channel provides the uniform send/receive primitives the rest of
// the host is built on: a Target capability interface standing in for the
// browser's MessageChannel/MessagePort/Window/Worker union, sub-channel
// creation, and the close-signaling convention substrate.
package channel

// Frame is the only payload ever carried across a Target. It is not a
// discriminated wire format by itself (rpcproto defines those shapes on
// top); it is simply "one message", optionally carrying a transfer list of
// sub-channel ports. A frame with a nil Body and a single-element Transfers
// is the spec's "bare transferred MessagePort as frame payload" sub-channel
// offer shape; a frame with a non-nil Body and a non-empty Transfers is a
// request carrying transferables alongside its call/args.
type Frame struct {
	// Body is the call/result/error/close payload, opaque to this package.
	Body any
	// Transfers lists sub-channel targets handed off to the receiver along
	// with this frame (the analogue of posting MessagePorts as
	// transferables). Typed as the Target capability rather than the
	// concrete in-process *Port so a remote transport can hand over a
	// wire-backed bridge target in its place.
	Transfers []Target
}

// Target is any endpoint capable of the three capabilities spec.md §4.A
// requires: subscribing to inbound frames (with an optional once-only
// mode), unsubscribing, and posting a frame with an optional transfer list.
// Window-like and Port-like endpoints differ only in their optional
// capabilities, exposed via the interfaces below and tested with a type
// assertion exactly as the spec's is-message-target duck type would be.
type Target interface {
	// Post sends a frame, including any sub-channel ports listed in its
	// Transfers.
	Post(f Frame) error

	// Subscribe registers handler for every inbound frame. If once is
	// true the subscription is removed after the first delivery. It
	// returns an unsubscribe closure, idempotent on repeated calls.
	Subscribe(once bool, handler func(Frame)) (unsubscribe func())
}

// Starter is implemented by Targets that require explicit activation (a
// MessagePort's start()) before their first message is delivered.
type Starter interface {
	Start()
}

// Closer is implemented by Port-like targets.
type Closer interface {
	Close() error
}

// Terminator is implemented by Worker-like targets: processes spawned from
// a URL that can be killed outright, not just asked to close their channel.
type Terminator interface {
	Terminate()
}

// IsMessageTarget reports whether x satisfies the Target capability
// interface. In idiomatic Go this is just a type assertion, the direct
// analogue of the spec's duck-typed is-message-target(x) predicate.
func IsMessageTarget(x any) bool {
	_, ok := x.(Target)
	return ok
}

// start invokes x's Start method if it implements Starter. Safe to call on
// any Target.
func start(t Target) {
	if s, ok := t.(Starter); ok {
		s.Start()
	}
}
