// Copyright 2015 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package channel

import (
	"context"
	"errors"
)

// ErrPortClosed is returned by Post on a closed Port.
var ErrPortClosed = errors.New("channel: port closed")

// ErrChannelClosedPrematurely is the spec §7 channel-closed-prematurely
// error: the next frame on a Target turned out to be the close control
// frame instead of the reply the caller was waiting for.
var ErrChannelClosedPrematurely = errors.New("channel: closed prematurely")

// closeBody is the sentinel payload of the {channel:"close"} control frame.
// rpcproto and property recognize it through IsClose; channel itself needs
// it to implement GetOneMessage.
type closeBody struct{}

// CloseFrame is the canonical {channel:"close"} control frame.
var CloseFrame = Frame{Body: closeBody{}}

// IsClose reports whether f is the close control frame.
func IsClose(f Frame) bool {
	_, ok := f.Body.(closeBody)
	return ok
}

// SignalClose best-effort posts the close control frame on t and then
// closes it if it supports Closer. Failures are swallowed: t may already
// be gone, or its peer may have transferred it away, exactly as spec §4.A
// describes for the unload hook.
func SignalClose(t Target) {
	_ = t.Post(CloseFrame)
	if c, ok := t.(Closer); ok {
		_ = c.Close()
	}
}

// GetOneMessage returns a future (via channel) resolving to the next
// inbound frame on t. If that frame is the close control frame, the
// returned error is ErrChannelClosedPrematurely. Start is invoked on t if
// it supports Starter.
func GetOneMessage(ctx context.Context, t Target) (Frame, error) {
	type result struct {
		f   Frame
		err error
	}
	ch := make(chan result, 1)
	var unsubscribe func()
	unsubscribe = t.Subscribe(true, func(f Frame) {
		if IsClose(f) {
			ch <- result{err: ErrChannelClosedPrematurely}
			return
		}
		ch <- result{f: f}
	})
	// Start only once the listener is in place, so frames buffered before
	// activation are delivered to it rather than to nobody.
	start(t)
	select {
	case r := <-ch:
		return r.f, r.err
	case <-ctx.Done():
		unsubscribe()
		return Frame{}, ctx.Err()
	}
}
